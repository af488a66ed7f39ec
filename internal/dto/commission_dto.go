package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCommissionRequest accrues a commission outside the automatic sale
// flow. Rate is optional; absent, the seller's configured rate applies.
type CreateCommissionRequest struct {
	SaleID   uuid.UUID        `json:"saleId" binding:"required"`
	SellerID uuid.UUID        `json:"sellerId" binding:"required"`
	Rate     *decimal.Decimal `json:"rate"`
}

type PayCommissionsRequest struct {
	CommissionIDs []uuid.UUID `json:"commissionIds" binding:"required,min=1"`
}

type CommissionResponse struct {
	ID         uuid.UUID       `json:"id"`
	SaleID     uuid.UUID       `json:"saleId"`
	SaleNumber int64           `json:"saleNumber,omitempty"`
	SellerID   uuid.UUID       `json:"sellerId"`
	SellerName string          `json:"sellerName,omitempty"`
	SaleBase   decimal.Decimal `json:"saleBase"`
	Rate       decimal.Decimal `json:"rate"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// CommissionSummary aggregates a seller's commissions over a period.
type CommissionSummary struct {
	SellerID       uuid.UUID       `json:"sellerId"`
	SellerName     string          `json:"sellerName"`
	SalesCount     int             `json:"salesCount"`
	TotalSales     decimal.Decimal `json:"totalSales"`
	TotalPending   decimal.Decimal `json:"totalPending"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalCancelled decimal.Decimal `json:"totalCancelled"`
}

type CommissionReport struct {
	From      time.Time           `json:"from"`
	To        time.Time           `json:"to"`
	Sellers   []CommissionSummary `json:"sellers"`
	TotalDue  decimal.Decimal     `json:"totalDue"`
	TotalPaid decimal.Decimal     `json:"totalPaid"`
}
