package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
	"github.com/jrrjunior25/pdv-fiscal/internal/worker"
)

type SaleService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	Cancel(ctx context.Context, userID, saleID uuid.UUID, req dto.CancelSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error)
	List(ctx context.Context, shiftID *uuid.UUID, from, to *time.Time) ([]dto.SaleResponse, error)
}

type saleService struct {
	reg         *repository.Registry
	commissions CommissionService
	dispatcher  *worker.Dispatcher
}

func NewSaleService(reg *repository.Registry, commissions CommissionService, dispatcher *worker.Dispatcher) SaleService {
	return &saleService{reg: reg, commissions: commissions, dispatcher: dispatcher}
}

// ── Create ────────────────────────────────────────────────────────────────────
// Sale row, stock decrements, ledger entries, cash movement and commission
// accrual commit in one transaction. Fiscal issuance is enqueued after commit.

func (s *saleService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	var sale *model.Sale

	err := s.reg.InTx(ctx, func(tx *repository.Registry) error {
		shift, err := tx.Shifts.FindOpenByUser(ctx, userID)
		if err != nil {
			return apperr.State("nenhum turno aberto; abra o caixa antes de vender")
		}

		var seller *model.User
		if req.SellerID != nil {
			seller, err = tx.Users.FindByID(ctx, *req.SellerID)
			if err != nil {
				return apperr.NotFound("vendedor não encontrado")
			}
		}

		number, err := tx.Sales.NextNumber(ctx)
		if err != nil {
			return err
		}

		sale = &model.Sale{
			Number:       number,
			ShiftID:      shift.ID,
			SellerID:     req.SellerID,
			CustomerName: req.CustomerName,
			CustomerCPF:  req.CustomerCPF,
			Status:       "COMPLETED",
		}

		subtotal := decimal.Zero
		itemDiscounts := decimal.Zero
		for _, itemReq := range req.Items {
			product, err := tx.Products.FindByID(ctx, itemReq.ProductID)
			if err != nil {
				return apperr.NotFound("produto não encontrado: " + itemReq.ProductID.String())
			}
			if !product.Active {
				return apperr.Validation(fmt.Sprintf("produto %q está inativo", product.Name))
			}
			if itemReq.Discount.IsNegative() {
				return apperr.Validation("desconto de item não pode ser negativo")
			}

			gross := product.SalePrice.Mul(decimal.NewFromInt(int64(itemReq.Quantity)))
			lineTotal := gross.Sub(itemReq.Discount)
			if lineTotal.IsNegative() {
				return apperr.Validation(fmt.Sprintf("desconto maior que o valor do item %q", product.Name))
			}

			sale.Items = append(sale.Items, model.SaleItem{
				ProductID: product.ID,
				Quantity:  itemReq.Quantity,
				UnitPrice: product.SalePrice,
				Discount:  itemReq.Discount,
				Total:     lineTotal,
			})
			subtotal = subtotal.Add(gross)
			itemDiscounts = itemDiscounts.Add(itemReq.Discount)
		}

		if req.Discount.IsNegative() {
			return apperr.Validation("desconto não pode ser negativo")
		}
		total := subtotal.Sub(itemDiscounts).Sub(req.Discount)
		if total.IsNegative() {
			return apperr.Validation("desconto maior que o valor da venda")
		}

		paid := decimal.Zero
		for _, payment := range req.Payments {
			if !payment.Amount.IsPositive() {
				return apperr.Validation("valor de pagamento deve ser positivo")
			}
			paid = paid.Add(payment.Amount)
			sale.Payments = append(sale.Payments, model.SalePayment{
				Method: payment.Method,
				Amount: payment.Amount,
			})
		}
		if !paid.Equal(total) {
			return apperr.Validation(fmt.Sprintf(
				"pagamentos (%s) não conferem com o total (%s)", paid.StringFixed(2), total.StringFixed(2)))
		}

		sale.Subtotal = subtotal
		sale.DiscountTotal = itemDiscounts.Add(req.Discount)
		sale.Total = total

		if err := tx.Sales.Create(ctx, sale); err != nil {
			return err
		}

		// Guarded decrements: a concurrent sale of the same item loses here,
		// rolling back the whole sale.
		for i := range sale.Items {
			item := &sale.Items[i]
			mov, err := applyStockMovement(ctx, tx, userID, dto.StockMovementRequest{
				ProductID: item.ProductID,
				Type:      "OUT",
				Quantity:  item.Quantity,
				Reason:    fmt.Sprintf("Venda %d", sale.Number),
			}, &sale.ID)
			if err != nil {
				return err
			}
			item.Product = mov.Product
		}

		// Only cash hits the drawer ledger.
		for _, payment := range sale.Payments {
			if payment.Method != "dinheiro" {
				continue
			}
			method := payment.Method
			if err := tx.Shifts.CreateMovement(ctx, &model.CashMovement{
				ShiftID:     shift.ID,
				Type:        "SALE",
				Method:      &method,
				Amount:      payment.Amount,
				Reason:      fmt.Sprintf("Venda %d", sale.Number),
				UserID:      userID,
				ReferenceID: &sale.ID,
			}); err != nil {
				return err
			}
		}

		return s.commissions.AccrueForSale(ctx, tx, sale, seller)
	})
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueFiscal(ctx, worker.FiscalJobPayload{SaleID: sale.ID.String()}); err != nil {
			log.Warn().Err(err).Int64("sale", sale.Number).Msg("falha ao enfileirar emissão fiscal")
		}
	}
	return saleToResponse(sale), nil
}

// ── Cancel ────────────────────────────────────────────────────────────────────
// Reverses stock, cash and commission with compensating entries; the original
// records stay untouched.

func (s *saleService) Cancel(ctx context.Context, userID, saleID uuid.UUID, req dto.CancelSaleRequest) (*dto.SaleResponse, error) {
	var sale *model.Sale

	err := s.reg.InTx(ctx, func(tx *repository.Registry) error {
		var err error
		sale, err = tx.Sales.FindByID(ctx, saleID)
		if err != nil {
			return apperr.NotFound("venda não encontrada")
		}
		if sale.Status != "COMPLETED" {
			return apperr.State("somente vendas concluídas podem ser canceladas")
		}

		// The cash refund must land in an open drawer: the sale's own shift
		// when it is still running, otherwise the canceller's current shift.
		// A closed shift's ledger stays untouched.
		refundShiftID := sale.ShiftID
		if saleHasCashPayment(sale) {
			shift, err := tx.Shifts.FindByID(ctx, sale.ShiftID)
			if err != nil || shift.Status != "OPEN" {
				open, err := tx.Shifts.FindOpenByUser(ctx, userID)
				if err != nil {
					return apperr.State("estorno em dinheiro exige um turno aberto")
				}
				refundShiftID = open.ID
			}
		}

		for _, item := range sale.Items {
			if _, err := applyStockMovement(ctx, tx, userID, dto.StockMovementRequest{
				ProductID: item.ProductID,
				Type:      "IN",
				Quantity:  item.Quantity,
				Reason:    fmt.Sprintf("Cancelamento da venda %d: %s", sale.Number, req.Reason),
			}, &sale.ID); err != nil {
				return err
			}
		}

		for _, payment := range sale.Payments {
			if payment.Method != "dinheiro" {
				continue
			}
			method := payment.Method
			if err := tx.Shifts.CreateMovement(ctx, &model.CashMovement{
				ShiftID:     refundShiftID,
				Type:        "CANCELLATION",
				Method:      &method,
				Amount:      payment.Amount.Neg(),
				Reason:      fmt.Sprintf("Cancelamento da venda %d", sale.Number),
				UserID:      userID,
				ReferenceID: &sale.ID,
			}); err != nil {
				return err
			}
		}

		if err := s.commissions.CancelForSale(ctx, tx, sale.ID); err != nil {
			return err
		}

		sale.Status = "CANCELLED"
		return tx.Sales.Update(ctx, sale)
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *saleService) Get(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.reg.Sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, apperr.NotFound("venda não encontrada")
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, shiftID *uuid.UUID, from, to *time.Time) ([]dto.SaleResponse, error) {
	sales, err := s.reg.Sales.List(ctx, shiftID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, *saleToResponse(&sales[i]))
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func saleHasCashPayment(sale *model.Sale) bool {
	for _, payment := range sale.Payments {
		if payment.Method == "dinheiro" {
			return true
		}
	}
	return false
}

func saleToResponse(sale *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:            sale.ID,
		Number:        sale.Number,
		ShiftID:       sale.ShiftID,
		SellerID:      sale.SellerID,
		CustomerName:  sale.CustomerName,
		Subtotal:      sale.Subtotal,
		DiscountTotal: sale.DiscountTotal,
		Total:         sale.Total,
		Status:        sale.Status,
		CreatedAt:     sale.CreatedAt,
	}
	for _, item := range sale.Items {
		itemResp := dto.SaleItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			Total:     item.Total,
		}
		if item.Product != nil {
			itemResp.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, itemResp)
	}
	for _, payment := range sale.Payments {
		resp.Payments = append(resp.Payments, dto.SalePaymentResponse{
			Method: payment.Method,
			Amount: payment.Amount,
		})
	}
	return resp
}
