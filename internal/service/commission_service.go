package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

type CommissionService interface {
	// AccrueForSale creates the PENDING commission for a completed sale.
	// Runs inside the sale transaction; a sale without a seller, or whose
	// seller has a zero rate, accrues nothing.
	AccrueForSale(ctx context.Context, reg *repository.Registry, sale *model.Sale, seller *model.User) error
	// CancelForSale voids the sale's commission when the sale is cancelled.
	// A PAID commission gets a compensating financial entry.
	CancelForSale(ctx context.Context, reg *repository.Registry, saleID uuid.UUID) error

	// Create accrues a commission explicitly, for sales the automatic flow
	// skipped or with a rate override. The rate must fall in [0,1].
	Create(ctx context.Context, req dto.CreateCommissionRequest) (*dto.CommissionResponse, error)
	Pay(ctx context.Context, req dto.PayCommissionsRequest) ([]dto.CommissionResponse, error)
	// Cancel voids a single commission. Allowed from PENDING or PAID;
	// a PAID commission gets a compensating financial entry.
	Cancel(ctx context.Context, id uuid.UUID) (*dto.CommissionResponse, error)
	List(ctx context.Context, sellerID *uuid.UUID, status string, from, to *time.Time) ([]dto.CommissionResponse, error)
	Report(ctx context.Context, from, to time.Time) (*dto.CommissionReport, error)
}

type commissionService struct {
	reg *repository.Registry
	// base is "subtotal" or "total": which sale amount the rate applies to.
	base string
}

func NewCommissionService(reg *repository.Registry, commissionBase string) CommissionService {
	if commissionBase != "total" {
		commissionBase = "subtotal"
	}
	return &commissionService{reg: reg, base: commissionBase}
}

// ── Accrual ───────────────────────────────────────────────────────────────────

func (s *commissionService) AccrueForSale(ctx context.Context, reg *repository.Registry, sale *model.Sale, seller *model.User) error {
	if seller == nil || !seller.CommissionRate.IsPositive() {
		return nil
	}

	base := s.saleBase(sale)

	commission := &model.Commission{
		SaleID:   sale.ID,
		SellerID: seller.ID,
		SaleBase: base,
		Rate:     seller.CommissionRate,
		Amount:   base.Mul(seller.CommissionRate).Round(2),
		Status:   "PENDING",
	}
	return reg.Commissions.Create(ctx, commission)
}

func (s *commissionService) Create(ctx context.Context, req dto.CreateCommissionRequest) (*dto.CommissionResponse, error) {
	sale, err := s.reg.Sales.FindByID(ctx, req.SaleID)
	if err != nil {
		return nil, apperr.NotFound("venda não encontrada")
	}
	if sale.Status != "COMPLETED" {
		return nil, apperr.State("somente vendas concluídas geram comissão")
	}
	seller, err := s.reg.Users.FindByID(ctx, req.SellerID)
	if err != nil {
		return nil, apperr.NotFound("vendedor não encontrado")
	}
	if existing, err := s.reg.Commissions.FindBySaleID(ctx, req.SaleID); err == nil && existing.Status != "CANCELLED" {
		return nil, apperr.Conflict("venda já possui comissão")
	}

	rate := seller.CommissionRate
	if req.Rate != nil {
		rate = *req.Rate
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, apperr.Validation("taxa de comissão deve estar entre 0 e 1")
	}

	base := s.saleBase(sale)
	commission := &model.Commission{
		SaleID:   sale.ID,
		SellerID: seller.ID,
		SaleBase: base,
		Rate:     rate,
		Amount:   base.Mul(rate).Round(2),
		Status:   "PENDING",
	}
	if err := s.reg.Commissions.Create(ctx, commission); err != nil {
		return nil, err
	}
	resp := commissionToResponse(commission)
	resp.SellerName = seller.Name
	return resp, nil
}

func (s *commissionService) CancelForSale(ctx context.Context, reg *repository.Registry, saleID uuid.UUID) error {
	commission, err := reg.Commissions.FindBySaleID(ctx, saleID)
	if err != nil {
		// No commission accrued for this sale.
		return nil
	}
	if commission.Status == "CANCELLED" {
		return nil
	}

	wasPaid := commission.Status == "PAID"
	commission.Status = "CANCELLED"
	if err := reg.Commissions.Update(ctx, commission); err != nil {
		return err
	}

	if wasPaid {
		return reg.Financial.Create(ctx, &model.FinancialMovement{
			Type:        "INCOME",
			Description: "Estorno de comissão (venda cancelada)",
			Amount:      commission.Amount,
			Category:    "comissao",
			Date:        time.Now(),
		})
	}
	return nil
}

// ── Payment ───────────────────────────────────────────────────────────────────

func (s *commissionService) Pay(ctx context.Context, req dto.PayCommissionsRequest) ([]dto.CommissionResponse, error) {
	var paid []dto.CommissionResponse

	err := s.reg.InTx(ctx, func(tx *repository.Registry) error {
		now := time.Now()
		for _, id := range req.CommissionIDs {
			commission, err := tx.Commissions.FindByID(ctx, id)
			if err != nil {
				return apperr.NotFound("comissão não encontrada: " + id.String())
			}
			if commission.Status != "PENDING" {
				return apperr.State("comissão " + id.String() + " não está pendente")
			}

			commission.Status = "PAID"
			commission.PaidAt = &now
			if err := tx.Commissions.Update(ctx, commission); err != nil {
				return err
			}

			description := "Pagamento de comissão"
			if commission.Seller != nil {
				description += " - " + commission.Seller.Name
			}
			if err := tx.Financial.Create(ctx, &model.FinancialMovement{
				Type:        "EXPENSE",
				Description: description,
				Amount:      commission.Amount,
				Category:    "comissao",
				Date:        now,
			}); err != nil {
				return err
			}
			paid = append(paid, *commissionToResponse(commission))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

func (s *commissionService) Cancel(ctx context.Context, id uuid.UUID) (*dto.CommissionResponse, error) {
	var resp *dto.CommissionResponse

	err := s.reg.InTx(ctx, func(tx *repository.Registry) error {
		commission, err := tx.Commissions.FindByID(ctx, id)
		if err != nil {
			return apperr.NotFound("comissão não encontrada")
		}
		if commission.Status == "CANCELLED" {
			return apperr.State("comissão já está cancelada")
		}

		wasPaid := commission.Status == "PAID"
		commission.Status = "CANCELLED"
		if err := tx.Commissions.Update(ctx, commission); err != nil {
			return err
		}

		if wasPaid {
			if err := tx.Financial.Create(ctx, &model.FinancialMovement{
				Type:        "INCOME",
				Description: "Estorno de comissão",
				Amount:      commission.Amount,
				Category:    "comissao",
				Date:        time.Now(),
			}); err != nil {
				return err
			}
		}
		resp = commissionToResponse(commission)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *commissionService) List(ctx context.Context, sellerID *uuid.UUID, status string, from, to *time.Time) ([]dto.CommissionResponse, error) {
	commissions, err := s.reg.Commissions.List(ctx, sellerID, status, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CommissionResponse, 0, len(commissions))
	for i := range commissions {
		out = append(out, *commissionToResponse(&commissions[i]))
	}
	return out, nil
}

func (s *commissionService) Report(ctx context.Context, from, to time.Time) (*dto.CommissionReport, error) {
	commissions, err := s.reg.Commissions.List(ctx, nil, "", &from, &to)
	if err != nil {
		return nil, err
	}

	bySeller := make(map[uuid.UUID]*dto.CommissionSummary)
	var order []uuid.UUID
	for i := range commissions {
		c := &commissions[i]
		summary, ok := bySeller[c.SellerID]
		if !ok {
			summary = &dto.CommissionSummary{SellerID: c.SellerID}
			if c.Seller != nil {
				summary.SellerName = c.Seller.Name
			}
			bySeller[c.SellerID] = summary
			order = append(order, c.SellerID)
		}
		summary.SalesCount++
		summary.TotalSales = summary.TotalSales.Add(c.SaleBase)
		switch c.Status {
		case "PENDING":
			summary.TotalPending = summary.TotalPending.Add(c.Amount)
		case "PAID":
			summary.TotalPaid = summary.TotalPaid.Add(c.Amount)
		case "CANCELLED":
			summary.TotalCancelled = summary.TotalCancelled.Add(c.Amount)
		}
	}

	report := &dto.CommissionReport{From: from, To: to}
	totalDue, totalPaid := decimal.Zero, decimal.Zero
	for _, id := range order {
		report.Sellers = append(report.Sellers, *bySeller[id])
		totalDue = totalDue.Add(bySeller[id].TotalPending)
		totalPaid = totalPaid.Add(bySeller[id].TotalPaid)
	}
	report.TotalDue = totalDue
	report.TotalPaid = totalPaid
	return report, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// saleBase picks the amount the rate applies to, per the commission_base policy.
func (s *commissionService) saleBase(sale *model.Sale) decimal.Decimal {
	if s.base == "total" {
		return sale.Total
	}
	return sale.Subtotal
}

func commissionToResponse(c *model.Commission) *dto.CommissionResponse {
	resp := &dto.CommissionResponse{
		ID:        c.ID,
		SaleID:    c.SaleID,
		SellerID:  c.SellerID,
		SaleBase:  c.SaleBase,
		Rate:      c.Rate,
		Amount:    c.Amount,
		Status:    c.Status,
		PaidAt:    c.PaidAt,
		CreatedAt: c.CreatedAt,
	}
	if c.Seller != nil {
		resp.SellerName = c.Seller.Name
	}
	if c.Sale != nil {
		resp.SaleNumber = c.Sale.Number
	}
	return resp
}
