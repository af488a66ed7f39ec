// Package dto holds the request and response shapes of the HTTP API.
// Validation tags are enforced by handler.bindAndValidate.
package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type CreateUserRequest struct {
	Name           string          `json:"name" binding:"required,min=3"`
	Email          string          `json:"email" binding:"required,email"`
	Password       string          `json:"password" binding:"required,min=6"`
	Role           string          `json:"role" binding:"required,oneof=caixa vendedor supervisor admin"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

type UserResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           string          `json:"role"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	Active         bool            `json:"active"`
}
