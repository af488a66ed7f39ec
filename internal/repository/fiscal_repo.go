package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

type FiscalRepository interface {
	GetConfig(ctx context.Context) (*model.FiscalConfig, error)
	SaveConfig(ctx context.Context, c *model.FiscalConfig) error
	// AllocateNumber reserves the next NFC-e number for the active series.
	// The row lock serializes concurrent issuers so the sequence has no
	// duplicates; a number is consumed even if issuance later fails, and
	// retries reuse the persisted document rather than allocating again.
	AllocateNumber(ctx context.Context) (number int64, series int, err error)

	CreateDocument(ctx context.Context, d *model.FiscalDocument) error
	FindDocumentByID(ctx context.Context, id uuid.UUID) (*model.FiscalDocument, error)
	FindDocumentBySaleID(ctx context.Context, saleID uuid.UUID) (*model.FiscalDocument, error)
	UpdateDocument(ctx context.Context, d *model.FiscalDocument) error
	ListDocuments(ctx context.Context, status string, from, to *time.Time) ([]model.FiscalDocument, error)
	// ListDueRetries returns failed documents whose next_retry_at has passed.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]model.FiscalDocument, error)

	CreatePixCharge(ctx context.Context, p *model.PixCharge) error
	FindPixByTxID(ctx context.Context, txID string) (*model.PixCharge, error)
	ListPixBySale(ctx context.Context, saleID uuid.UUID) ([]model.PixCharge, error)
}

type fiscalRepo struct{ db *gorm.DB }

func NewFiscalRepository(db *gorm.DB) FiscalRepository { return &fiscalRepo{db: db} }

func (r *fiscalRepo) GetConfig(ctx context.Context) (*model.FiscalConfig, error) {
	var c model.FiscalConfig
	err := r.db.WithContext(ctx).First(&c).Error
	return &c, err
}

func (r *fiscalRepo) SaveConfig(ctx context.Context, c *model.FiscalConfig) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *fiscalRepo) AllocateNumber(ctx context.Context) (int64, int, error) {
	var number int64
	var series int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg model.FiscalConfig
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cfg).Error; err != nil {
			return err
		}
		number = cfg.NextNumber
		series = cfg.NfceSeries
		return tx.Model(&cfg).Update("next_number", gorm.Expr("next_number + 1")).Error
	})
	return number, series, err
}

func (r *fiscalRepo) CreateDocument(ctx context.Context, d *model.FiscalDocument) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *fiscalRepo) FindDocumentByID(ctx context.Context, id uuid.UUID) (*model.FiscalDocument, error) {
	var d model.FiscalDocument
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	return &d, err
}

func (r *fiscalRepo) FindDocumentBySaleID(ctx context.Context, saleID uuid.UUID) (*model.FiscalDocument, error) {
	var d model.FiscalDocument
	err := r.db.WithContext(ctx).First(&d, "sale_id = ?", saleID).Error
	return &d, err
}

func (r *fiscalRepo) UpdateDocument(ctx context.Context, d *model.FiscalDocument) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *fiscalRepo) ListDocuments(ctx context.Context, status string, from, to *time.Time) ([]model.FiscalDocument, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at < ?", *to)
	}
	var docs []model.FiscalDocument
	err := q.Find(&docs).Error
	return docs, err
}

func (r *fiscalRepo) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]model.FiscalDocument, error) {
	var docs []model.FiscalDocument
	err := r.db.WithContext(ctx).
		Where("status IN ('PENDENTE', 'ERRO') AND next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (r *fiscalRepo) CreatePixCharge(ctx context.Context, p *model.PixCharge) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *fiscalRepo) FindPixByTxID(ctx context.Context, txID string) (*model.PixCharge, error) {
	var p model.PixCharge
	err := r.db.WithContext(ctx).First(&p, "tx_id = ?", txID).Error
	return &p, err
}

func (r *fiscalRepo) ListPixBySale(ctx context.Context, saleID uuid.UUID) ([]model.PixCharge, error) {
	var charges []model.PixCharge
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at DESC").
		Find(&charges).Error
	return charges, err
}
