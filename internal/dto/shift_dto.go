package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OpenShiftRequest struct {
	OpeningCash decimal.Decimal `json:"openingCash" binding:"required"`
}

type CloseShiftRequest struct {
	ClosingCash decimal.Decimal `json:"closingCash" binding:"required"`
}

type CashMovementRequest struct {
	Type   string          `json:"type" binding:"required,oneof=SUPPLY WITHDRAWAL"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required,min=3"`
}

type CashMovementResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Method    *string         `json:"method,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ShiftResponse struct {
	ID           uuid.UUID        `json:"id"`
	Number       int64            `json:"number"`
	UserID       uuid.UUID        `json:"userId"`
	UserName     string           `json:"userName,omitempty"`
	Status       string           `json:"status"`
	OpeningCash  decimal.Decimal  `json:"openingCash"`
	ClosingCash  *decimal.Decimal `json:"closingCash,omitempty"`
	ExpectedCash *decimal.Decimal `json:"expectedCash,omitempty"`
	Discrepancy  *decimal.Decimal `json:"discrepancy,omitempty"`
	TotalSales   decimal.Decimal  `json:"totalSales"`
	TotalCash    decimal.Decimal  `json:"totalCash"`
	OpenedAt     time.Time        `json:"openedAt"`
	ClosedAt     *time.Time       `json:"closedAt,omitempty"`
}

// ShiftSummary is the live view of an open shift before closing.
type ShiftSummary struct {
	Shift         ShiftResponse          `json:"shift"`
	ExpectedCash  decimal.Decimal        `json:"expectedCash"`
	SalesByMethod map[string]decimal.Decimal `json:"salesByMethod"`
	TotalSales    decimal.Decimal        `json:"totalSales"`
	SalesCount    int64                  `json:"salesCount"`
	AverageTicket decimal.Decimal        `json:"averageTicket"`
	Supplies      decimal.Decimal        `json:"supplies"`
	Withdrawals   decimal.Decimal        `json:"withdrawals"`
	Movements     []CashMovementResponse `json:"movements"`
}
