package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission is a seller incentive derived from a completed sale.
// Status transitions are one-directional:
//
//	PENDING → PAID → CANCELLED
//	PENDING ────────→ CANCELLED
//
// Amount is computed once at creation and never recomputed.
type Commission struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID   uuid.UUID `gorm:"type:uuid;index;not null"`
	SellerID uuid.UUID `gorm:"type:uuid;index;not null"`
	// SaleBase is the sale amount the rate was applied to (subtotal or total,
	// per the commission_base policy in effect at creation).
	SaleBase decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Rate     decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status   string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaidAt   *time.Time
	CreatedAt time.Time

	Seller *User `gorm:"foreignKey:SellerID"`
	Sale   *Sale `gorm:"foreignKey:SaleID"`
}

// FinancialMovement records monetary in/out flows outside the cash drawer:
// commission payouts, shift supplies/withdrawals mirrored to the books.
// Type: "INCOME" | "EXPENSE"
type FinancialMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type        string          `gorm:"type:varchar(10);not null"`
	Description string          `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Category    string          `gorm:"not null"`
	Date        time.Time       `gorm:"not null"`
	Status      string          `gorm:"type:varchar(20);not null;default:'COMPLETED'"`
	CreatedAt   time.Time
}
