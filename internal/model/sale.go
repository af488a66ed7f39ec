package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the central transaction every other workflow hangs off:
// closing a sale decrements stock, accrues commission, records cash
// movements on the open shift and (optionally) triggers fiscal issuance.
// Status: "COMPLETED" | "CANCELLED"
type Sale struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number       int64     `gorm:"uniqueIndex;not null"`
	ShiftID      uuid.UUID `gorm:"type:uuid;index;not null"`
	SellerID     *uuid.UUID `gorm:"type:uuid;index"`
	CustomerName *string
	CustomerCPF  *string         `gorm:"type:varchar(14);column:customer_cpf"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status       string          `gorm:"type:varchar(20);not null;default:'COMPLETED'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items    []SaleItem    `gorm:"foreignKey:SaleID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID"`
	Seller   *User         `gorm:"foreignKey:SellerID"`
}

type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// SalePayment splits a sale total across payment methods.
// Method: "dinheiro" | "debito" | "credito" | "pix"
type SalePayment struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Method string          `gorm:"type:varchar(20);not null"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
