package service

// Shared in-memory repository fakes. The registry they assemble carries no
// database, so InTx runs callbacks directly with no rollback semantics —
// good enough for exercising service logic.

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

func newMemRegistry() (*repository.Registry, *memState) {
	st := &memState{
		users:      make(map[uuid.UUID]*model.User),
		products:   make(map[uuid.UUID]*model.Product),
		sales:      make(map[uuid.UUID]*model.Sale),
		documents:  make(map[uuid.UUID]*model.FiscalDocument),
		alerts:     make(map[uuid.UUID]*model.InventoryAlert),
		commission: make(map[uuid.UUID]*model.Commission),
	}
	shiftRepo := newMemShiftRepo()
	st.shifts = shiftRepo
	reg := &repository.Registry{
		Users:       &memUserRepo{st},
		Products:    &memProductRepo{st},
		Sales:       &memSaleRepo{st},
		Shifts:      shiftRepo,
		Commissions: &memCommissionRepo{st},
		Financial:   &memFinancialRepo{st},
		Fiscal:      &memFiscalRepo{st},
		Stock:       &memStockRepo{st},
	}
	return reg, st
}

type memState struct {
	users      map[uuid.UUID]*model.User
	products   map[uuid.UUID]*model.Product
	sales      map[uuid.UUID]*model.Sale
	saleNumber int64

	commission map[uuid.UUID]*model.Commission
	financial  []model.FinancialMovement

	fiscalConfig *model.FiscalConfig
	documents    map[uuid.UUID]*model.FiscalDocument
	pixCharges   []model.PixCharge

	stockMovements []model.StockMovement
	alerts         map[uuid.UUID]*model.InventoryAlert

	shifts *memShiftRepo
}

func (st *memState) addProduct(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	st.products[p.ID] = p
	return p
}

func (st *memState) addUser(u *model.User) *model.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	st.users[u.ID] = u
	return u
}

// ── Users ─────────────────────────────────────────────────────────────────────

type memUserRepo struct{ st *memState }

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.st.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.st.addUser(u)
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepo) Update(_ context.Context, u *model.User) error {
	r.st.users[u.ID] = u
	return nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

// ── Products ──────────────────────────────────────────────────────────────────

type memProductRepo struct{ st *memState }

func (r *memProductRepo) Create(_ context.Context, p *model.Product) error {
	for _, existing := range r.st.products {
		if existing.Code == p.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	r.st.addProduct(p)
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *memProductRepo) FindByCode(_ context.Context, code string) (*model.Product, error) {
	for _, p := range r.st.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProductRepo) List(_ context.Context, search string, activeOnly bool) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.st.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *memProductRepo) ListBelowMinStock(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.st.products {
		if p.Active && p.Stock <= p.MinStock {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memProductRepo) Update(_ context.Context, p *model.Product) error {
	r.st.products[p.ID] = p
	return nil
}

func (r *memProductRepo) ApplyStockDelta(_ context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if p.Stock+delta < 0 {
		// Guarded update affected no rows; caller gets the current product
		// for a readable error message.
		return p, repository.ErrInsufficientStock
	}
	p.Stock += delta
	return p, nil
}

func (r *memProductRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *memProductRepo) SetStock(_ context.Context, id uuid.UUID, stock int) error {
	p, ok := r.st.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock = stock
	return nil
}

var _ repository.ProductRepository = (*memProductRepo)(nil)

// ── Sales ─────────────────────────────────────────────────────────────────────

type memSaleRepo struct{ st *memState }

func (r *memSaleRepo) Create(_ context.Context, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	r.st.sales[s.ID] = s
	return nil
}

func (r *memSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.st.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *memSaleRepo) Update(_ context.Context, s *model.Sale) error {
	r.st.sales[s.ID] = s
	return nil
}

func (r *memSaleRepo) NextNumber(_ context.Context) (int64, error) {
	r.st.saleNumber++
	return r.st.saleNumber, nil
}

func (r *memSaleRepo) List(_ context.Context, shiftID *uuid.UUID, from, to *time.Time) ([]model.Sale, error) {
	var out []model.Sale
	for _, s := range r.st.sales {
		if shiftID != nil && s.ShiftID != *shiftID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

var _ repository.SaleRepository = (*memSaleRepo)(nil)

// ── Commissions ───────────────────────────────────────────────────────────────

type memCommissionRepo struct{ st *memState }

func (r *memCommissionRepo) Create(_ context.Context, c *model.Commission) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	r.st.commission[c.ID] = c
	return nil
}

func (r *memCommissionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Commission, error) {
	c, ok := r.st.commission[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if seller, ok := r.st.users[c.SellerID]; ok {
		c.Seller = seller
	}
	return c, nil
}

func (r *memCommissionRepo) FindBySaleID(_ context.Context, saleID uuid.UUID) (*model.Commission, error) {
	for _, c := range r.st.commission {
		if c.SaleID == saleID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCommissionRepo) Update(_ context.Context, c *model.Commission) error {
	r.st.commission[c.ID] = c
	return nil
}

func (r *memCommissionRepo) List(_ context.Context, sellerID *uuid.UUID, status string, from, to *time.Time) ([]model.Commission, error) {
	var out []model.Commission
	for _, c := range r.st.commission {
		if sellerID != nil && c.SellerID != *sellerID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		cc := *c
		if seller, ok := r.st.users[c.SellerID]; ok {
			cc.Seller = seller
		}
		out = append(out, cc)
	}
	return out, nil
}

var _ repository.CommissionRepository = (*memCommissionRepo)(nil)

// ── Financial ─────────────────────────────────────────────────────────────────

type memFinancialRepo struct{ st *memState }

func (r *memFinancialRepo) Create(_ context.Context, m *model.FinancialMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.st.financial = append(r.st.financial, *m)
	return nil
}

func (r *memFinancialRepo) List(_ context.Context, movType string, from, to *time.Time) ([]model.FinancialMovement, error) {
	var out []model.FinancialMovement
	for _, m := range r.st.financial {
		if movType != "" && m.Type != movType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

var _ repository.FinancialRepository = (*memFinancialRepo)(nil)

// ── Fiscal ────────────────────────────────────────────────────────────────────

type memFiscalRepo struct{ st *memState }

func (r *memFiscalRepo) GetConfig(_ context.Context) (*model.FiscalConfig, error) {
	if r.st.fiscalConfig == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.st.fiscalConfig, nil
}

func (r *memFiscalRepo) SaveConfig(_ context.Context, c *model.FiscalConfig) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.st.fiscalConfig = c
	return nil
}

func (r *memFiscalRepo) AllocateNumber(_ context.Context) (int64, int, error) {
	if r.st.fiscalConfig == nil {
		return 0, 0, gorm.ErrRecordNotFound
	}
	number := r.st.fiscalConfig.NextNumber
	r.st.fiscalConfig.NextNumber++
	return number, r.st.fiscalConfig.NfceSeries, nil
}

func (r *memFiscalRepo) CreateDocument(_ context.Context, d *model.FiscalDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	r.st.documents[d.ID] = d
	return nil
}

func (r *memFiscalRepo) FindDocumentByID(_ context.Context, id uuid.UUID) (*model.FiscalDocument, error) {
	d, ok := r.st.documents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *memFiscalRepo) FindDocumentBySaleID(_ context.Context, saleID uuid.UUID) (*model.FiscalDocument, error) {
	for _, d := range r.st.documents {
		if d.SaleID == saleID {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memFiscalRepo) UpdateDocument(_ context.Context, d *model.FiscalDocument) error {
	r.st.documents[d.ID] = d
	return nil
}

func (r *memFiscalRepo) ListDocuments(_ context.Context, status string, from, to *time.Time) ([]model.FiscalDocument, error) {
	var out []model.FiscalDocument
	for _, d := range r.st.documents {
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *memFiscalRepo) ListDueRetries(_ context.Context, now time.Time, limit int) ([]model.FiscalDocument, error) {
	var out []model.FiscalDocument
	for _, d := range r.st.documents {
		if (d.Status == "PENDENTE" || d.Status == "ERRO") &&
			d.NextRetryAt != nil && !d.NextRetryAt.After(now) {
			out = append(out, *d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memFiscalRepo) CreatePixCharge(_ context.Context, p *model.PixCharge) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.st.pixCharges = append(r.st.pixCharges, *p)
	return nil
}

func (r *memFiscalRepo) FindPixByTxID(_ context.Context, txID string) (*model.PixCharge, error) {
	for i := range r.st.pixCharges {
		if r.st.pixCharges[i].TxID == txID {
			return &r.st.pixCharges[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memFiscalRepo) ListPixBySale(_ context.Context, saleID uuid.UUID) ([]model.PixCharge, error) {
	var out []model.PixCharge
	for _, p := range r.st.pixCharges {
		if p.SaleID != nil && *p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ repository.FiscalRepository = (*memFiscalRepo)(nil)

// ── Stock ─────────────────────────────────────────────────────────────────────

type memStockRepo struct{ st *memState }

func (r *memStockRepo) CreateMovement(_ context.Context, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.st.stockMovements = append(r.st.stockMovements, *m)
	return nil
}

func (r *memStockRepo) ListMovements(_ context.Context, productID *uuid.UUID, movType string, from, to *time.Time) ([]model.StockMovement, error) {
	var out []model.StockMovement
	for _, m := range r.st.stockMovements {
		if productID != nil && m.ProductID != *productID {
			continue
		}
		if movType != "" && m.Type != movType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memStockRepo) CreateAlert(_ context.Context, a *model.InventoryAlert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	r.st.alerts[a.ID] = a
	return nil
}

func (r *memStockRepo) FindOpenAlert(_ context.Context, productID uuid.UUID, alertType string) (*model.InventoryAlert, error) {
	for _, a := range r.st.alerts {
		if a.ProductID == productID && a.Type == alertType && !a.Resolved {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memStockRepo) FindAlertByID(_ context.Context, id uuid.UUID) (*model.InventoryAlert, error) {
	a, ok := r.st.alerts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *memStockRepo) UpdateAlert(_ context.Context, a *model.InventoryAlert) error {
	r.st.alerts[a.ID] = a
	return nil
}

func (r *memStockRepo) ListAlerts(_ context.Context, resolved *bool) ([]model.InventoryAlert, error) {
	var out []model.InventoryAlert
	for _, a := range r.st.alerts {
		if resolved != nil && a.Resolved != *resolved {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *memStockRepo) ResolveOpenAlerts(_ context.Context, productID uuid.UUID, now time.Time) error {
	for _, a := range r.st.alerts {
		if a.ProductID == productID && !a.Resolved {
			a.Resolved = true
			a.ResolvedAt = &now
		}
	}
	return nil
}

var _ repository.StockRepository = (*memStockRepo)(nil)

// decimalFromStr builds decimals in test fixtures without error handling noise.
func decimalFromStr(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}
