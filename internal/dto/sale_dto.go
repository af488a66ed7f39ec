package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleItemRequest struct {
	ProductID uuid.UUID       `json:"productId" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Discount  decimal.Decimal `json:"discount"`
}

type SalePaymentRequest struct {
	Method string          `json:"method" binding:"required,oneof=dinheiro debito credito pix"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type CreateSaleRequest struct {
	SellerID     *uuid.UUID           `json:"sellerId"`
	CustomerName *string              `json:"customerName"`
	CustomerCPF  *string              `json:"customerCpf" binding:"omitempty,len=11"`
	Discount     decimal.Decimal      `json:"discount"`
	Items        []SaleItemRequest    `json:"items" binding:"required,min=1,dive"`
	Payments     []SalePaymentRequest `json:"payments" binding:"required,min=1,dive"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required,min=3"`
}

type SaleItemResponse struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

type SalePaymentResponse struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type SaleResponse struct {
	ID            uuid.UUID             `json:"id"`
	Number        int64                 `json:"number"`
	ShiftID       uuid.UUID             `json:"shiftId"`
	SellerID      *uuid.UUID            `json:"sellerId,omitempty"`
	CustomerName  *string               `json:"customerName,omitempty"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	DiscountTotal decimal.Decimal       `json:"discountTotal"`
	Total         decimal.Decimal       `json:"total"`
	Status        string                `json:"status"`
	Items         []SaleItemResponse    `json:"items"`
	Payments      []SalePaymentResponse `json:"payments"`
	CreatedAt     time.Time             `json:"createdAt"`
}
