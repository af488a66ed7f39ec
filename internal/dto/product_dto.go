package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Code      string          `json:"code" binding:"required"`
	Name      string          `json:"name" binding:"required,min=2"`
	NCM       string          `json:"ncm" binding:"omitempty,len=8"`
	CFOP      string          `json:"cfop" binding:"omitempty,len=4"`
	CostPrice decimal.Decimal `json:"costPrice" binding:"required"`
	SalePrice decimal.Decimal `json:"salePrice" binding:"required"`
	Stock     int             `json:"stock" binding:"gte=0"`
	MinStock  int             `json:"minStock" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name      *string          `json:"name" binding:"omitempty,min=2"`
	NCM       *string          `json:"ncm" binding:"omitempty,len=8"`
	CFOP      *string          `json:"cfop" binding:"omitempty,len=4"`
	CostPrice *decimal.Decimal `json:"costPrice"`
	SalePrice *decimal.Decimal `json:"salePrice"`
	MinStock  *int             `json:"minStock" binding:"omitempty,gte=0"`
	Active    *bool            `json:"active"`
}

type ProductResponse struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	NCM       string          `json:"ncm"`
	CFOP      string          `json:"cfop"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"minStock"`
	Active    bool            `json:"active"`
}
