package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

// ── In-memory ShiftRepository ────────────────────────────────────────────────

type memShiftRepo struct {
	shifts    map[uuid.UUID]*model.Shift
	movements []model.CashMovement
	// salesByMethod and salesCount simulate the aggregates over completed sales.
	salesByMethod map[uuid.UUID]map[string]decimal.Decimal
	salesCount    map[uuid.UUID]int64
	nextNumber    int64
}

func newMemShiftRepo() *memShiftRepo {
	return &memShiftRepo{
		shifts:        make(map[uuid.UUID]*model.Shift),
		salesByMethod: make(map[uuid.UUID]map[string]decimal.Decimal),
		salesCount:    make(map[uuid.UUID]int64),
	}
}

func (r *memShiftRepo) Create(_ context.Context, s *model.Shift) error {
	for _, existing := range r.shifts {
		if existing.UserID == s.UserID && existing.Status == "OPEN" {
			// Mirrors the partial unique index uq_shifts_open_user.
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.shifts[s.ID] = s
	return nil
}

func (r *memShiftRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.Movements = nil
	for _, m := range r.movements {
		if m.ShiftID == id {
			s.Movements = append(s.Movements, m)
		}
	}
	return s, nil
}

func (r *memShiftRepo) FindOpenByUser(_ context.Context, userID uuid.UUID) (*model.Shift, error) {
	for _, s := range r.shifts {
		if s.UserID == userID && s.Status == "OPEN" {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memShiftRepo) Update(_ context.Context, s *model.Shift) error {
	r.shifts[s.ID] = s
	return nil
}

func (r *memShiftRepo) NextNumber(_ context.Context) (int64, error) {
	r.nextNumber++
	return r.nextNumber, nil
}

func (r *memShiftRepo) ListClosed(_ context.Context, userID *uuid.UUID, from, to *time.Time) ([]model.Shift, error) {
	var out []model.Shift
	for _, s := range r.shifts {
		if s.Status != "CLOSED" {
			continue
		}
		if userID != nil && s.UserID != *userID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *memShiftRepo) CreateMovement(_ context.Context, m *model.CashMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *memShiftRepo) ListMovements(_ context.Context, shiftID uuid.UUID) ([]model.CashMovement, error) {
	var out []model.CashMovement
	for _, m := range r.movements {
		if m.ShiftID == shiftID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memShiftRepo) SumMovements(_ context.Context, shiftID uuid.UUID) (map[string]decimal.Decimal, error) {
	sums := make(map[string]decimal.Decimal)
	for _, m := range r.movements {
		if m.ShiftID == shiftID {
			sums[m.Type] = sums[m.Type].Add(m.Amount)
		}
	}
	return sums, nil
}

func (r *memShiftRepo) SumSalesByMethod(_ context.Context, shiftID uuid.UUID) (map[string]decimal.Decimal, error) {
	if sums, ok := r.salesByMethod[shiftID]; ok {
		return sums, nil
	}
	return map[string]decimal.Decimal{}, nil
}

func (r *memShiftRepo) CountSales(_ context.Context, shiftID uuid.UUID) (int64, error) {
	return r.salesCount[shiftID], nil
}

var _ repository.ShiftRepository = (*memShiftRepo)(nil)

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestOpenShift(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)

	resp, err := svc.Open(context.Background(), uuid.New(), dto.OpenShiftRequest{
		OpeningCash: decimal.NewFromInt(200),
	})

	require.NoError(t, err)
	assert.Equal(t, "OPEN", resp.Status)
	assert.Equal(t, int64(1), resp.Number)
	assert.Equal(t, "200", resp.OpeningCash.String())
}

func TestOpenShift_DuplicateForSameUser(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	_, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(50)})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.ErrorContains(t, err, "turno aberto")
}

func TestOpenShift_NegativeOpeningCash(t *testing.T) {
	svc := NewShiftService(newMemShiftRepo(), false)

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenShiftRequest{
		OpeningCash: decimal.NewFromInt(-10),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRecordMovement_WithdrawalExceedsDrawer(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	// 100 in drawer, withdrawing 150 must be rejected
	_, err = svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type:   "WITHDRAWAL",
		Amount: decimal.NewFromInt(150),
		Reason: "Sangria para o cofre",
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRecordMovement_WithdrawalAllowedWhenNegativeCashPermitted(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, true)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	mov, err := svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type:   "WITHDRAWAL",
		Amount: decimal.NewFromInt(150),
		Reason: "Sangria autorizada",
	})
	require.NoError(t, err)
	// Withdrawals are stored negative
	assert.Equal(t, "-150", mov.Amount.String())
}

func TestRecordMovement_SupplyIncreasesDrawer(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(50)})
	require.NoError(t, err)

	_, err = svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type:   "SUPPLY",
		Amount: decimal.NewFromInt(100),
		Reason: "Reforço de troco",
	})
	require.NoError(t, err)

	// 50 + 100 = 150 in drawer; withdrawing 120 now fits
	_, err = svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type:   "WITHDRAWAL",
		Amount: decimal.NewFromInt(120),
		Reason: "Sangria",
	})
	assert.NoError(t, err)
}

func TestCloseShift_BlindCountDiscrepancy(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(200)})
	require.NoError(t, err)
	shiftID := resp.ID

	// Simulate a cash sale entry in the ledger: +300 dinheiro
	method := "dinheiro"
	repo.movements = append(repo.movements, model.CashMovement{
		ID: uuid.New(), ShiftID: shiftID, Type: "SALE",
		Method: &method, Amount: decimal.NewFromInt(300),
		Reason: "Venda 1", UserID: userID,
	})
	repo.salesByMethod[shiftID] = map[string]decimal.Decimal{
		"dinheiro": decimal.NewFromInt(300),
		"debito":   decimal.NewFromInt(80),
	}

	// Expected drawer: 200 + 300 = 500. Operator declares 480 → discrepancy -20.
	closed, err := svc.Close(context.Background(), shiftID, dto.CloseShiftRequest{
		ClosingCash: decimal.NewFromInt(480),
	})
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", closed.Status)
	assert.Equal(t, "500", closed.ExpectedCash.String())
	assert.Equal(t, "-20", closed.Discrepancy.String())
	assert.Equal(t, "380", closed.TotalSales.String())
	assert.Equal(t, "300", closed.TotalCash.String())
	require.NotNil(t, closed.ClosedAt)
}

func TestCloseShift_AlreadyClosed(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.Zero})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), resp.ID, dto.CloseShiftRequest{ClosingCash: decimal.Zero})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), resp.ID, dto.CloseShiftRequest{ClosingCash: decimal.Zero})
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestRecordMovement_ClosedShift(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), resp.ID, dto.CloseShiftRequest{ClosingCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type: "SUPPLY", Amount: decimal.NewFromInt(10), Reason: "Tarde demais",
	})
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestCloseShift_ReopenAfterCloseAllowed(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	first, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), first.ID, dto.CloseShiftRequest{ClosingCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	// A new shift may be opened once the previous one is closed
	second, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(150)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Number)
}

func TestShiftSummary(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type: "SUPPLY", Amount: decimal.NewFromInt(50), Reason: "Reforço",
	})
	require.NoError(t, err)
	_, err = svc.RecordMovement(context.Background(), userID, resp.ID, dto.CashMovementRequest{
		Type: "WITHDRAWAL", Amount: decimal.NewFromInt(30), Reason: "Sangria",
	})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "120", summary.ExpectedCash.String()) // 100 + 50 - 30
	assert.Equal(t, "50", summary.Supplies.String())
	assert.Equal(t, "30", summary.Withdrawals.String())
	assert.Len(t, summary.Movements, 2)

	// No sales yet: zeroed aggregates, no division by zero
	assert.Equal(t, int64(0), summary.SalesCount)
	assert.Equal(t, "0", summary.AverageTicket.String())
}

func TestShiftSummary_SalesCountAndAverageTicket(t *testing.T) {
	repo := newMemShiftRepo()
	svc := NewShiftService(repo, false)
	userID := uuid.New()

	resp, err := svc.Open(context.Background(), userID, dto.OpenShiftRequest{OpeningCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	// Three completed sales: 40 + 25 in cash, 60 in card
	repo.salesByMethod[resp.ID] = map[string]decimal.Decimal{
		"dinheiro": decimal.NewFromInt(65),
		"credito":  decimal.NewFromInt(60),
	}
	repo.salesCount[resp.ID] = 3

	summary, err := svc.Summary(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "125", summary.TotalSales.String())
	assert.Equal(t, int64(3), summary.SalesCount)
	assert.Equal(t, "41.67", summary.AverageTicket.String())
}
