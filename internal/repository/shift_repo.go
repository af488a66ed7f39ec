package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type ShiftRepository interface {
	// Create relies on the partial unique index uq_shifts_open_user: a second
	// OPEN shift for the same user fails with gorm.ErrDuplicatedKey.
	Create(ctx context.Context, s *model.Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.Shift, error)
	Update(ctx context.Context, s *model.Shift) error
	NextNumber(ctx context.Context) (int64, error)
	ListClosed(ctx context.Context, userID *uuid.UUID, from, to *time.Time) ([]model.Shift, error)

	CreateMovement(ctx context.Context, m *model.CashMovement) error
	ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error)
	// SumMovements returns the signed totals per movement type.
	SumMovements(ctx context.Context, shiftID uuid.UUID) (map[string]decimal.Decimal, error)
	// SumSalesByMethod aggregates completed sale payments inside the shift.
	SumSalesByMethod(ctx context.Context, shiftID uuid.UUID) (map[string]decimal.Decimal, error)
	// CountSales counts the shift's completed sales.
	CountSales(ctx context.Context, shiftID uuid.UUID) (int64, error)
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) Create(ctx context.Context, s *model.Shift) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *shiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).
		Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("User").
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *shiftRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = 'OPEN'", userID).
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) Update(ctx context.Context, s *model.Shift) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *shiftRepo) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Shift{}).
		Select("COALESCE(MAX(number), 0) + 1").
		Scan(&n).Error
	return n, err
}

func (r *shiftRepo) ListClosed(ctx context.Context, userID *uuid.UUID, from, to *time.Time) ([]model.Shift, error) {
	q := r.db.WithContext(ctx).Where("status = 'CLOSED'").Order("closed_at DESC")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if from != nil {
		q = q.Where("opened_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("opened_at < ?", *to)
	}
	var shifts []model.Shift
	err := q.Preload("User").Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) CreateMovement(ctx context.Context, m *model.CashMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *shiftRepo) ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *shiftRepo) SumMovements(ctx context.Context, shiftID uuid.UUID) (map[string]decimal.Decimal, error) {
	type row struct {
		Type  string
		Total decimal.Decimal
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.CashMovement{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("shift_id = ?", shiftID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		sums[r.Type] = r.Total
	}
	return sums, nil
}

func (r *shiftRepo) SumSalesByMethod(ctx context.Context, shiftID uuid.UUID) (map[string]decimal.Decimal, error) {
	type row struct {
		Method string
		Total  decimal.Decimal
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("sale_payments").
		Select("sale_payments.method, COALESCE(SUM(sale_payments.amount), 0) AS total").
		Joins("JOIN sales ON sales.id = sale_payments.sale_id").
		Where("sales.shift_id = ? AND sales.status = 'COMPLETED'", shiftID).
		Group("sale_payments.method").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		sums[r.Method] = r.Total
	}
	return sums, nil
}

func (r *shiftRepo) CountSales(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("shift_id = ? AND status = 'COMPLETED'", shiftID).
		Count(&n).Error
	return n, err
}
