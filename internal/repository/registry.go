// Package repository implements the persistence ports over GORM/Postgres.
// Services depend on the interfaces only; tests swap in memory fakes.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned by stock guards when a decrement would
// take a product below zero. Services translate it to a domain error.
var ErrInsufficientStock = errors.New("estoque insuficiente")

// Registry bundles every repository plus the transaction boundary.
// InTx hands the callback a Registry whose repositories all share one
// database transaction, so multi-table flows commit or roll back together.
type Registry struct {
	db *gorm.DB

	Users       UserRepository
	Products    ProductRepository
	Sales       SaleRepository
	Shifts      ShiftRepository
	Commissions CommissionRepository
	Financial   FinancialRepository
	Fiscal      FiscalRepository
	Stock       StockRepository
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		db:          db,
		Users:       NewUserRepository(db),
		Products:    NewProductRepository(db),
		Sales:       NewSaleRepository(db),
		Shifts:      NewShiftRepository(db),
		Commissions: NewCommissionRepository(db),
		Financial:   NewFinancialRepository(db),
		Fiscal:      NewFiscalRepository(db),
		Stock:       NewStockRepository(db),
	}
}

// Transactor is the unit-of-work port services depend on.
type Transactor interface {
	InTx(ctx context.Context, fn func(r *Registry) error) error
}

func (r *Registry) InTx(ctx context.Context, fn func(r *Registry) error) error {
	// A registry assembled without a database (memory fakes in tests) runs the
	// callback against itself; there is nothing to roll back.
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRegistry(tx))
	})
}
