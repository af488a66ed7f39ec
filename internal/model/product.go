package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable stock-keeping unit.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"uniqueIndex;not null"` // barcode or internal code
	Name      string    `gorm:"index;not null"`
	Category  string    `gorm:"not null;default:'geral'"`
	// NCM and CFOP feed the NFC-e line items.
	NCM       string          `gorm:"type:varchar(8);not null;default:'00000000'"`
	CFOP      string          `gorm:"type:varchar(4);not null;default:'5102'"`
	CostPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SalePrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock     int             `gorm:"not null;default:0"`
	MinStock  int             `gorm:"not null;default:5"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
