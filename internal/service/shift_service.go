package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

type ShiftService interface {
	Open(ctx context.Context, userID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error)
	RecordMovement(ctx context.Context, userID, shiftID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error)
	Close(ctx context.Context, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error)
	Summary(ctx context.Context, shiftID uuid.UUID) (*dto.ShiftSummary, error)
	Current(ctx context.Context, userID uuid.UUID) (*dto.ShiftResponse, error)
	History(ctx context.Context, userID *uuid.UUID, from, to *time.Time) ([]dto.ShiftResponse, error)
}

type shiftService struct {
	shifts            repository.ShiftRepository
	allowNegativeCash bool
}

func NewShiftService(shifts repository.ShiftRepository, allowNegativeCash bool) ShiftService {
	return &shiftService{shifts: shifts, allowNegativeCash: allowNegativeCash}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *shiftService) Open(ctx context.Context, userID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error) {
	if req.OpeningCash.IsNegative() {
		return nil, apperr.Validation("fundo de troco não pode ser negativo")
	}

	number, err := s.shifts.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	shift := &model.Shift{
		Number:      number,
		UserID:      userID,
		Status:      "OPEN",
		OpeningCash: req.OpeningCash,
		OpenedAt:    time.Now(),
	}
	// The partial unique index on (user_id) WHERE status='OPEN' is the
	// authority here; a lost race surfaces as a duplicate key, not a stale read.
	if err := s.shifts.Create(ctx, shift); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("já existe um turno aberto para este operador")
		}
		return nil, err
	}
	return shiftToResponse(shift), nil
}

// ── RecordMovement ────────────────────────────────────────────────────────────
// Manual supply / withdrawal. Movements are immutable — no Update/Delete.

func (s *shiftService) RecordMovement(ctx context.Context, userID, shiftID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("valor do movimento deve ser positivo")
	}

	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, apperr.NotFound("turno não encontrado")
	}
	if shift.Status != "OPEN" {
		return nil, apperr.State("turno já está fechado")
	}

	amount := req.Amount
	if req.Type == "WITHDRAWAL" {
		amount = amount.Neg()
		if !s.allowNegativeCash {
			cash, err := s.cashInDrawer(ctx, shift)
			if err != nil {
				return nil, err
			}
			if cash.Add(amount).IsNegative() {
				return nil, apperr.Conflict("sangria excede o dinheiro em caixa")
			}
		}
	}

	mov := &model.CashMovement{
		ShiftID: shiftID,
		Type:    req.Type,
		Amount:  amount,
		Reason:  req.Reason,
		UserID:  userID,
	}
	if err := s.shifts.CreateMovement(ctx, mov); err != nil {
		return nil, err
	}
	return movementToResponse(mov), nil
}

// ── Close ─────────────────────────────────────────────────────────────────────
// Blind count: the operator declares the drawer before seeing the expected
// value. Aggregates are finalized exactly once here.

func (s *shiftService) Close(ctx context.Context, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error) {
	if req.ClosingCash.IsNegative() {
		return nil, apperr.Validation("valor declarado não pode ser negativo")
	}

	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, apperr.NotFound("turno não encontrado")
	}
	if shift.Status != "OPEN" {
		return nil, apperr.State("turno já está fechado")
	}

	expected, err := s.cashInDrawer(ctx, shift)
	if err != nil {
		return nil, err
	}
	salesByMethod, err := s.shifts.SumSalesByMethod(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	totalSales := decimal.Zero
	for _, v := range salesByMethod {
		totalSales = totalSales.Add(v)
	}

	now := time.Now()
	closing := req.ClosingCash
	discrepancy := closing.Sub(expected)

	shift.Status = "CLOSED"
	shift.ClosingCash = &closing
	shift.ExpectedCash = &expected
	shift.Discrepancy = &discrepancy
	shift.TotalSales = totalSales
	shift.TotalCash = salesByMethod["dinheiro"]
	shift.ClosedAt = &now

	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, err
	}
	return shiftToResponse(shift), nil
}

// ── Summary ───────────────────────────────────────────────────────────────────

func (s *shiftService) Summary(ctx context.Context, shiftID uuid.UUID) (*dto.ShiftSummary, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, apperr.NotFound("turno não encontrado")
	}

	sums, err := s.shifts.SumMovements(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	salesByMethod, err := s.shifts.SumSalesByMethod(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	salesCount, err := s.shifts.CountSales(ctx, shift.ID)
	if err != nil {
		return nil, err
	}

	expected := shift.OpeningCash
	for _, v := range sums {
		expected = expected.Add(v)
	}
	totalSales := decimal.Zero
	for _, v := range salesByMethod {
		totalSales = totalSales.Add(v)
	}
	averageTicket := decimal.Zero
	if salesCount > 0 {
		averageTicket = totalSales.DivRound(decimal.NewFromInt(salesCount), 2)
	}

	summary := &dto.ShiftSummary{
		Shift:         *shiftToResponse(shift),
		ExpectedCash:  expected,
		SalesByMethod: salesByMethod,
		TotalSales:    totalSales,
		SalesCount:    salesCount,
		AverageTicket: averageTicket,
		Supplies:      sums["SUPPLY"],
		Withdrawals:   sums["WITHDRAWAL"].Abs(),
		Movements:     make([]dto.CashMovementResponse, 0, len(shift.Movements)),
	}
	for i := range shift.Movements {
		summary.Movements = append(summary.Movements, *movementToResponse(&shift.Movements[i]))
	}
	return summary, nil
}

// ── Current / History ─────────────────────────────────────────────────────────

func (s *shiftService) Current(ctx context.Context, userID uuid.UUID) (*dto.ShiftResponse, error) {
	shift, err := s.shifts.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("nenhum turno aberto para este operador")
	}
	return shiftToResponse(shift), nil
}

func (s *shiftService) History(ctx context.Context, userID *uuid.UUID, from, to *time.Time) ([]dto.ShiftResponse, error) {
	shifts, err := s.shifts.ListClosed(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		out = append(out, *shiftToResponse(&shifts[i]))
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// cashInDrawer is openingCash plus every signed movement in the cash ledger
// (supplies, withdrawals and cash sale entries).
func (s *shiftService) cashInDrawer(ctx context.Context, shift *model.Shift) (decimal.Decimal, error) {
	sums, err := s.shifts.SumMovements(ctx, shift.ID)
	if err != nil {
		return decimal.Zero, err
	}
	cash := shift.OpeningCash
	for _, v := range sums {
		cash = cash.Add(v)
	}
	return cash, nil
}

func shiftToResponse(shift *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:           shift.ID,
		Number:       shift.Number,
		UserID:       shift.UserID,
		Status:       shift.Status,
		OpeningCash:  shift.OpeningCash,
		ClosingCash:  shift.ClosingCash,
		ExpectedCash: shift.ExpectedCash,
		Discrepancy:  shift.Discrepancy,
		TotalSales:   shift.TotalSales,
		TotalCash:    shift.TotalCash,
		OpenedAt:     shift.OpenedAt,
		ClosedAt:     shift.ClosedAt,
	}
	if shift.User != nil {
		resp.UserName = shift.User.Name
	}
	return resp
}

func movementToResponse(m *model.CashMovement) *dto.CashMovementResponse {
	return &dto.CashMovementResponse{
		ID:        m.ID,
		Type:      m.Type,
		Method:    m.Method,
		Amount:    m.Amount,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}
