package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

type InventoryService interface {
	RecordMovement(ctx context.Context, userID uuid.UUID, req dto.StockMovementRequest) (*dto.StockMovementResponse, error)
	Movements(ctx context.Context, productID *uuid.UUID, movType string, from, to *time.Time) ([]dto.StockMovementResponse, error)
	Alerts(ctx context.Context, resolved *bool) ([]dto.InventoryAlertResponse, error)
	ResolveAlert(ctx context.Context, alertID uuid.UUID) (*dto.InventoryAlertResponse, error)
	LowStock(ctx context.Context) ([]dto.LowStockItem, error)
}

type inventoryService struct {
	reg *repository.Registry
}

func NewInventoryService(reg *repository.Registry) InventoryService {
	return &inventoryService{reg: reg}
}

// ── RecordMovement ────────────────────────────────────────────────────────────
// Stock write, ledger entry and alert evaluation commit atomically.

func (s *inventoryService) RecordMovement(ctx context.Context, userID uuid.UUID, req dto.StockMovementRequest) (*dto.StockMovementResponse, error) {
	if req.Quantity <= 0 && req.Type != "ADJUSTMENT" {
		return nil, apperr.Validation("quantidade deve ser maior que zero")
	}
	if req.Quantity < 0 {
		return nil, apperr.Validation("quantidade não pode ser negativa")
	}

	var mov *model.StockMovement
	err := s.reg.InTx(ctx, func(tx *repository.Registry) error {
		var err error
		mov, err = applyStockMovement(ctx, tx, userID, req, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stockMovementToResponse(mov), nil
}

// applyStockMovement is the shared write path: manual movements, sale
// decrements and cancellation restores all go through it so every stock
// change lands in the ledger with alert evaluation.
func applyStockMovement(ctx context.Context, tx *repository.Registry, userID uuid.UUID, req dto.StockMovementRequest, referenceID *uuid.UUID) (*model.StockMovement, error) {
	var product *model.Product
	var previous int

	switch req.Type {
	case "IN":
		p, err := tx.Products.ApplyStockDelta(ctx, req.ProductID, req.Quantity)
		if err != nil {
			return nil, translateStockErr(err, p)
		}
		product = p
		previous = p.Stock - req.Quantity
	case "OUT", "TRANSFER":
		p, err := tx.Products.ApplyStockDelta(ctx, req.ProductID, -req.Quantity)
		if err != nil {
			return nil, translateStockErr(err, p)
		}
		product = p
		previous = p.Stock + req.Quantity
	case "ADJUSTMENT":
		// Absolute set: lock the row so previous/new stay consistent.
		p, err := tx.Products.FindByIDForUpdate(ctx, req.ProductID)
		if err != nil {
			return nil, apperr.NotFound("produto não encontrado")
		}
		previous = p.Stock
		if err := tx.Products.SetStock(ctx, p.ID, req.Quantity); err != nil {
			return nil, err
		}
		p.Stock = req.Quantity
		product = p
	default:
		return nil, apperr.Validation("tipo de movimento inválido: " + req.Type)
	}

	mov := &model.StockMovement{
		ProductID:     product.ID,
		Type:          req.Type,
		Quantity:      req.Quantity,
		PreviousStock: previous,
		NewStock:      product.Stock,
		Reason:        req.Reason,
		ReferenceID:   referenceID,
		UserID:        userID,
		Location:      req.Location,
	}
	if err := tx.Stock.CreateMovement(ctx, mov); err != nil {
		return nil, err
	}

	if err := evaluateAlerts(ctx, tx, product); err != nil {
		return nil, err
	}
	mov.Product = product
	return mov, nil
}

func translateStockErr(err error, p *model.Product) error {
	if errors.Is(err, repository.ErrInsufficientStock) {
		name := ""
		if p != nil {
			name = p.Name
		}
		return apperr.Conflict(fmt.Sprintf("estoque insuficiente para %q", name))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("produto não encontrado")
	}
	return err
}

// evaluateAlerts raises OUT_OF_STOCK / LOW_STOCK alerts after a stock change
// and auto-resolves open alerts once stock recovers above the minimum.
// At most one open alert per (product, type).
func evaluateAlerts(ctx context.Context, tx *repository.Registry, product *model.Product) error {
	switch {
	case product.Stock == 0:
		return raiseAlert(ctx, tx, product, "OUT_OF_STOCK", 0,
			fmt.Sprintf("%s está sem estoque", product.Name))
	case product.Stock <= product.MinStock:
		return raiseAlert(ctx, tx, product, "LOW_STOCK", product.MinStock,
			fmt.Sprintf("%s abaixo do estoque mínimo (%d/%d)", product.Name, product.Stock, product.MinStock))
	default:
		return tx.Stock.ResolveOpenAlerts(ctx, product.ID, time.Now())
	}
}

func raiseAlert(ctx context.Context, tx *repository.Registry, product *model.Product, alertType string, threshold int, message string) error {
	if existing, err := tx.Stock.FindOpenAlert(ctx, product.ID, alertType); err == nil && existing != nil && existing.ID != uuid.Nil {
		// Already alerted; keep the original timestamp.
		return nil
	}
	// Recovery from OUT_OF_STOCK to merely LOW_STOCK resolves the older alert.
	if alertType == "LOW_STOCK" {
		if stale, err := tx.Stock.FindOpenAlert(ctx, product.ID, "OUT_OF_STOCK"); err == nil && stale != nil && stale.ID != uuid.Nil {
			now := time.Now()
			stale.Resolved = true
			stale.ResolvedAt = &now
			if err := tx.Stock.UpdateAlert(ctx, stale); err != nil {
				return err
			}
		}
	}
	return tx.Stock.CreateAlert(ctx, &model.InventoryAlert{
		ProductID:    product.ID,
		Type:         alertType,
		Message:      message,
		CurrentStock: product.Stock,
		Threshold:    threshold,
	})
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *inventoryService) Movements(ctx context.Context, productID *uuid.UUID, movType string, from, to *time.Time) ([]dto.StockMovementResponse, error) {
	movs, err := s.reg.Stock.ListMovements(ctx, productID, movType, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockMovementResponse, 0, len(movs))
	for i := range movs {
		out = append(out, *stockMovementToResponse(&movs[i]))
	}
	return out, nil
}

func (s *inventoryService) Alerts(ctx context.Context, resolved *bool) ([]dto.InventoryAlertResponse, error) {
	alerts, err := s.reg.Stock.ListAlerts(ctx, resolved)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InventoryAlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, *alertToResponse(&alerts[i]))
	}
	return out, nil
}

func (s *inventoryService) ResolveAlert(ctx context.Context, alertID uuid.UUID) (*dto.InventoryAlertResponse, error) {
	alert, err := s.reg.Stock.FindAlertByID(ctx, alertID)
	if err != nil {
		return nil, apperr.NotFound("alerta não encontrado")
	}
	if alert.Resolved {
		return nil, apperr.State("alerta já foi resolvido")
	}
	now := time.Now()
	alert.Resolved = true
	alert.ResolvedAt = &now
	if err := s.reg.Stock.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alertToResponse(alert), nil
}

func (s *inventoryService) LowStock(ctx context.Context) ([]dto.LowStockItem, error) {
	products, err := s.reg.Products.ListBelowMinStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockItem, 0, len(products))
	for _, p := range products {
		out = append(out, dto.LowStockItem{
			ProductID: p.ID,
			Code:      p.Code,
			Name:      p.Name,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
			CostPrice: p.CostPrice,
		})
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func stockMovementToResponse(m *model.StockMovement) *dto.StockMovementResponse {
	resp := &dto.StockMovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Type:          m.Type,
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		Reason:        m.Reason,
		Location:      m.Location,
		CreatedAt:     m.CreatedAt,
	}
	if m.Product != nil {
		resp.ProductName = m.Product.Name
	}
	return resp
}

func alertToResponse(a *model.InventoryAlert) *dto.InventoryAlertResponse {
	resp := &dto.InventoryAlertResponse{
		ID:           a.ID,
		ProductID:    a.ProductID,
		Type:         a.Type,
		Message:      a.Message,
		CurrentStock: a.CurrentStock,
		Threshold:    a.Threshold,
		Resolved:     a.Resolved,
		ResolvedAt:   a.ResolvedAt,
		CreatedAt:    a.CreatedAt,
	}
	if a.Product != nil {
		resp.ProductName = a.Product.Name
	}
	return resp
}
