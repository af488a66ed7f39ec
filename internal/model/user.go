package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an operator of the system.
// Role: "caixa" | "vendedor" | "supervisor" | "admin"
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null;default:'caixa'"`
	// CommissionRate is a fraction in [0,1] applied to the sale base when no
	// explicit rate is given at commission creation.
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
