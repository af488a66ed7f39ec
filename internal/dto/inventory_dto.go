package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StockMovementRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Type      string    `json:"type" binding:"required,oneof=IN OUT ADJUSTMENT TRANSFER"`
	Quantity  int       `json:"quantity" binding:"required,gte=0"`
	Reason    string    `json:"reason" binding:"required,min=3"`
	Location  *string   `json:"location"`
}

type StockMovementResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"productId"`
	ProductName   string    `json:"productName,omitempty"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
	Reason        string    `json:"reason"`
	Location      *string   `json:"location,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type InventoryAlertResponse struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    uuid.UUID  `json:"productId"`
	ProductName  string     `json:"productName,omitempty"`
	Type         string     `json:"type"`
	Message      string     `json:"message"`
	CurrentStock int        `json:"currentStock"`
	Threshold    int        `json:"threshold"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type LowStockItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"minStock"`
	CostPrice decimal.Decimal `json:"costPrice"`
}
