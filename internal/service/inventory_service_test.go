package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

func seedProduct(st *memState, stock, minStock int) *model.Product {
	return st.addProduct(&model.Product{
		Code:      uuid.NewString()[:8],
		Name:      "Café 500g",
		SalePrice: decimal.NewFromInt(20),
		Stock:     stock,
		MinStock:  minStock,
		Active:    true,
	})
}

func TestStockMovement_InAndOut(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	product := seedProduct(st, 10, 2)

	in, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "IN", Quantity: 5, Reason: "Compra do fornecedor",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, in.PreviousStock)
	assert.Equal(t, 15, in.NewStock)

	out, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "OUT", Quantity: 3, Reason: "Perda por avaria",
	})
	require.NoError(t, err)
	assert.Equal(t, 15, out.PreviousStock)
	assert.Equal(t, 12, out.NewStock)
	assert.Equal(t, 12, product.Stock)
}

func TestStockMovement_InsufficientStock(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	product := seedProduct(st, 2, 1)

	_, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "OUT", Quantity: 5, Reason: "Saída de teste",
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 2, product.Stock) // untouched
}

func TestStockMovement_Adjustment(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	product := seedProduct(st, 10, 2)

	// Physical count found 7 units
	mov, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "ADJUSTMENT", Quantity: 7, Reason: "Inventário físico",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, mov.PreviousStock)
	assert.Equal(t, 7, mov.NewStock)
	assert.Equal(t, 7, product.Stock)
}

func TestStockMovement_UnknownProduct(t *testing.T) {
	reg, _ := newMemRegistry()
	svc := NewInventoryService(reg)

	_, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: uuid.New(), Type: "IN", Quantity: 1, Reason: "Entrada",
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAlerts_LowStockRaisedOnce(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	product := seedProduct(st, 10, 5)

	// 10 → 5: crosses the minimum, LOW_STOCK raised
	_, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "OUT", Quantity: 5, Reason: "Venda balcão",
	})
	require.NoError(t, err)

	unresolved, err := svc.Alerts(context.Background(), boolPtr(false))
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "LOW_STOCK", unresolved[0].Type)

	// 5 → 4: still low, no second alert for the same condition
	_, err = svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "OUT", Quantity: 1, Reason: "Venda balcão",
	})
	require.NoError(t, err)
	unresolved, err = svc.Alerts(context.Background(), boolPtr(false))
	require.NoError(t, err)
	assert.Len(t, unresolved, 1)
}

func TestAlerts_OutOfStockAndRecovery(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	product := seedProduct(st, 3, 2)
	userID := uuid.New()

	// 3 → 0: OUT_OF_STOCK
	_, err := svc.RecordMovement(context.Background(), userID, dto.StockMovementRequest{
		ProductID: product.ID, Type: "OUT", Quantity: 3, Reason: "Venda",
	})
	require.NoError(t, err)
	unresolved, err := svc.Alerts(context.Background(), boolPtr(false))
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "OUT_OF_STOCK", unresolved[0].Type)

	// 0 → 1: still at or below minimum; OUT_OF_STOCK resolves, LOW_STOCK opens
	_, err = svc.RecordMovement(context.Background(), userID, dto.StockMovementRequest{
		ProductID: product.ID, Type: "IN", Quantity: 1, Reason: "Reposição parcial",
	})
	require.NoError(t, err)
	unresolved, err = svc.Alerts(context.Background(), boolPtr(false))
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "LOW_STOCK", unresolved[0].Type)

	// 1 → 10: fully recovered, everything auto-resolves
	_, err = svc.RecordMovement(context.Background(), userID, dto.StockMovementRequest{
		ProductID: product.ID, Type: "IN", Quantity: 9, Reason: "Reposição",
	})
	require.NoError(t, err)
	unresolved, err = svc.Alerts(context.Background(), boolPtr(false))
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestResolveAlertManually(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	product := seedProduct(st, 5, 5)

	_, err := svc.RecordMovement(context.Background(), uuid.New(), dto.StockMovementRequest{
		ProductID: product.ID, Type: "OUT", Quantity: 1, Reason: "Venda",
	})
	require.NoError(t, err)

	unresolved, err := svc.Alerts(context.Background(), boolPtr(false))
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	resolved, err := svc.ResolveAlert(context.Background(), unresolved[0].ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)

	// Resolving twice is a state error
	_, err = svc.ResolveAlert(context.Background(), unresolved[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestLowStockList(t *testing.T) {
	reg, st := newMemRegistry()
	svc := NewInventoryService(reg)
	seedProduct(st, 1, 5)  // below minimum
	seedProduct(st, 50, 5) // healthy

	items, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Stock)
}

func boolPtr(b bool) *bool { return &b }
