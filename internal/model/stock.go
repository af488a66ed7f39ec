package model

import (
	"time"

	"github.com/google/uuid"
)

// StockMovement records every stock change on a product. Append-only ledger:
// rows are never mutated after creation, and NewStock must always equal
// PreviousStock plus the signed effect of Type.
// Type: "IN" | "OUT" | "ADJUSTMENT" | "TRANSFER"
type StockMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(15);not null"`
	// Quantity is the positive magnitude supplied by the caller; the sign is
	// implied by Type (OUT/TRANSFER subtract, IN adds, ADJUSTMENT sets).
	Quantity      int    `gorm:"not null"`
	PreviousStock int    `gorm:"not null"`
	NewStock      int    `gorm:"not null"`
	Reason        string
	ReferenceID   *uuid.UUID `gorm:"type:uuid"` // sale or purchase id if applicable
	UserID        uuid.UUID  `gorm:"type:uuid;not null"`
	Location      *string
	CreatedAt     time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }

// InventoryAlert is raised when a StockMovement crosses a threshold and
// resolved automatically when stock recovers (or manually by a supervisor).
// Type: "LOW_STOCK" | "OUT_OF_STOCK" | "OVERSTOCK"
type InventoryAlert struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Type         string    `gorm:"type:varchar(15);not null"`
	Message      string    `gorm:"not null"`
	CurrentStock int       `gorm:"not null"`
	Threshold    int       `gorm:"not null"`
	Resolved     bool      `gorm:"not null;default:false"`
	ResolvedAt   *time.Time
	CreatedAt    time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
