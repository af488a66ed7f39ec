package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type SaleRepository interface {
	Create(ctx context.Context, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	Update(ctx context.Context, s *model.Sale) error
	NextNumber(ctx context.Context) (int64, error)
	List(ctx context.Context, shiftID *uuid.UUID, from, to *time.Time) ([]model.Sale, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, s *model.Sale) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("Payments").
		Preload("Seller").
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) Update(ctx context.Context, s *model.Sale) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *saleRepo) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COALESCE(MAX(number), 0) + 1").
		Scan(&n).Error
	return n, err
}

func (r *saleRepo) List(ctx context.Context, shiftID *uuid.UUID, from, to *time.Time) ([]model.Sale, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if shiftID != nil {
		q = q.Where("shift_id = ?", *shiftID)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at < ?", *to)
	}
	var sales []model.Sale
	err := q.Preload("Items").Preload("Payments").Find(&sales).Error
	return sales, err
}
