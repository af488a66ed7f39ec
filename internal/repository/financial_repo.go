package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type FinancialRepository interface {
	Create(ctx context.Context, m *model.FinancialMovement) error
	List(ctx context.Context, movType string, from, to *time.Time) ([]model.FinancialMovement, error)
}

type financialRepo struct{ db *gorm.DB }

func NewFinancialRepository(db *gorm.DB) FinancialRepository {
	return &financialRepo{db: db}
}

func (r *financialRepo) Create(ctx context.Context, m *model.FinancialMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *financialRepo) List(ctx context.Context, movType string, from, to *time.Time) ([]model.FinancialMovement, error) {
	q := r.db.WithContext(ctx).Order("date DESC")
	if movType != "" {
		q = q.Where("type = ?", movType)
	}
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date < ?", *to)
	}
	var movs []model.FinancialMovement
	err := q.Find(&movs).Error
	return movs, err
}
