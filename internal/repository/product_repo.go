package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByCode(ctx context.Context, code string) (*model.Product, error)
	List(ctx context.Context, search string, activeOnly bool) ([]model.Product, error)
	ListBelowMinStock(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error

	// ApplyStockDelta adds delta to the product's stock in a single guarded
	// statement. A negative delta that would drive stock below zero affects
	// no rows and returns ErrInsufficientStock. Returns the updated product.
	ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error)
	// FindByIDForUpdate locks the row for the rest of the enclosing
	// transaction. Used by absolute stock adjustments.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, search string, activeOnly bool) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("active = true")
	}
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name ILIKE ? OR code ILIKE ?", like, like)
	}
	var products []model.Product
	err := q.Find(&products).Error
	return products, err
}

func (r *productRepo) ListBelowMinStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("active = true AND stock <= min_stock").
		Order("stock ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepo) ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("stock >= ?", -delta)
	}
	res := q.Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the product does not exist or the guard blocked the write.
		var p model.Product
		if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &p, ErrInsufficientStock
	}
	return r.FindByID(ctx, id)
}

func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", stock).Error
}
