package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shift represents the lifecycle of a cash-register shift.
// Status: "OPEN" | "CLOSED". A user has at most one OPEN shift at a time
// (enforced by a partial unique index, see infra.applySchemaPatches).
// Aggregates are finalized exactly once at close; the row is immutable after.
type Shift struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number      int64           `gorm:"not null;index"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status      string          `gorm:"type:varchar(10);not null;default:'OPEN'"`
	OpeningCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ClosingCash is the amount declared by the operator at close.
	ClosingCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// ExpectedCash = openingCash + supplies - withdrawals + cash sales,
	// computed at close.
	ExpectedCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Discrepancy  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalSales   decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCash    decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	OpenedAt     time.Time
	ClosedAt     *time.Time

	User      *User          `gorm:"foreignKey:UserID"`
	Movements []CashMovement `gorm:"foreignKey:ShiftID"`
}

// CashMovement is an immutable event in the shift's cash ledger.
// Type: "SUPPLY" | "WITHDRAWAL" | "SALE" | "CANCELLATION"
// Amount is signed: supplies and cash sales positive, withdrawals negative.
// Movements are NEVER modified or deleted — cancellations create inverse entries.
type CashMovement struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID uuid.UUID `gorm:"type:uuid;index;not null"`
	Type    string    `gorm:"type:varchar(20);not null"`
	Method  *string   `gorm:"type:varchar(20)"`
	Amount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason  string          `gorm:"not null"`
	UserID  uuid.UUID       `gorm:"type:uuid;not null"`
	// ReferenceID links to the originating Sale when Type is SALE/CANCELLATION.
	ReferenceID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}
