package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type StockRepository interface {
	CreateMovement(ctx context.Context, m *model.StockMovement) error
	ListMovements(ctx context.Context, productID *uuid.UUID, movType string, from, to *time.Time) ([]model.StockMovement, error)

	CreateAlert(ctx context.Context, a *model.InventoryAlert) error
	FindOpenAlert(ctx context.Context, productID uuid.UUID, alertType string) (*model.InventoryAlert, error)
	FindAlertByID(ctx context.Context, id uuid.UUID) (*model.InventoryAlert, error)
	UpdateAlert(ctx context.Context, a *model.InventoryAlert) error
	ListAlerts(ctx context.Context, resolved *bool) ([]model.InventoryAlert, error)
	// ResolveOpenAlerts marks every unresolved alert for the product as
	// resolved. Used when stock recovers above the thresholds.
	ResolveOpenAlerts(ctx context.Context, productID uuid.UUID, now time.Time) error
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) CreateMovement(ctx context.Context, m *model.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *stockRepo) ListMovements(ctx context.Context, productID *uuid.UUID, movType string, from, to *time.Time) ([]model.StockMovement, error) {
	q := r.db.WithContext(ctx).Preload("Product").Order("created_at DESC")
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	if movType != "" {
		q = q.Where("type = ?", movType)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at < ?", *to)
	}
	var movs []model.StockMovement
	err := q.Find(&movs).Error
	return movs, err
}

func (r *stockRepo) CreateAlert(ctx context.Context, a *model.InventoryAlert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *stockRepo) FindOpenAlert(ctx context.Context, productID uuid.UUID, alertType string) (*model.InventoryAlert, error) {
	var a model.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND type = ? AND resolved = false", productID, alertType).
		First(&a).Error
	return &a, err
}

func (r *stockRepo) FindAlertByID(ctx context.Context, id uuid.UUID) (*model.InventoryAlert, error) {
	var a model.InventoryAlert
	err := r.db.WithContext(ctx).Preload("Product").First(&a, "id = ?", id).Error
	return &a, err
}

func (r *stockRepo) UpdateAlert(ctx context.Context, a *model.InventoryAlert) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *stockRepo) ListAlerts(ctx context.Context, resolved *bool) ([]model.InventoryAlert, error) {
	q := r.db.WithContext(ctx).Preload("Product").Order("created_at DESC")
	if resolved != nil {
		q = q.Where("resolved = ?", *resolved)
	}
	var alerts []model.InventoryAlert
	err := q.Find(&alerts).Error
	return alerts, err
}

func (r *stockRepo) ResolveOpenAlerts(ctx context.Context, productID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.InventoryAlert{}).
		Where("product_id = ? AND resolved = false", productID).
		Updates(map[string]any{"resolved": true, "resolved_at": now}).Error
}
