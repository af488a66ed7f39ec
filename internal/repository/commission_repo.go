package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type CommissionRepository interface {
	Create(ctx context.Context, c *model.Commission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Commission, error)
	FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Commission, error)
	Update(ctx context.Context, c *model.Commission) error
	List(ctx context.Context, sellerID *uuid.UUID, status string, from, to *time.Time) ([]model.Commission, error)
}

type commissionRepo struct{ db *gorm.DB }

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepo{db: db}
}

func (r *commissionRepo) Create(ctx context.Context, c *model.Commission) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *commissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Commission, error) {
	var c model.Commission
	err := r.db.WithContext(ctx).Preload("Seller").Preload("Sale").First(&c, "id = ?", id).Error
	return &c, err
}

func (r *commissionRepo) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Commission, error) {
	var c model.Commission
	err := r.db.WithContext(ctx).First(&c, "sale_id = ?", saleID).Error
	return &c, err
}

func (r *commissionRepo) Update(ctx context.Context, c *model.Commission) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *commissionRepo) List(ctx context.Context, sellerID *uuid.UUID, status string, from, to *time.Time) ([]model.Commission, error) {
	q := r.db.WithContext(ctx).Preload("Seller").Preload("Sale").Order("created_at DESC")
	if sellerID != nil {
		q = q.Where("seller_id = ?", *sellerID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at < ?", *to)
	}
	var commissions []model.Commission
	err := q.Find(&commissions).Error
	return commissions, err
}
