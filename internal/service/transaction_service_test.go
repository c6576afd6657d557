package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sale(name string, qty int, price int64) RecordTransactionRequest {
	return RecordTransactionRequest{ProductName: name, Kind: model.KindSale, SaleType: "Retail", Price: dec(price), Quantity: qty}
}

func purchase(name, barcode string, qty int, cost int64) RecordTransactionRequest {
	return RecordTransactionRequest{ProductName: name, Barcode: barcode, Kind: model.KindPurchase, Cost: dec(cost), Quantity: qty}
}

func countTransactions(t *testing.T, f *fixture, owner uuid.UUID) int64 {
	t.Helper()
	_, total, err := f.transactions.List(context.Background(), owner, "", 1, 100)
	require.NoError(t, err)
	return total
}

func TestRecord_PurchaseSellScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	res, err := f.transactions.Record(ctx, owner, purchase("X1", "X1", 10, 50))
	require.NoError(t, err)
	require.NotNil(t, res.Inventory)
	assert.Equal(t, 10, res.Inventory.QuantityBought)
	assert.Equal(t, 10, res.Inventory.CurrentStock)
	assert.True(t, res.Inventory.BuyingPrice.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, res.Transaction.InventoryID)
	assert.Equal(t, res.Inventory.ID, *res.Transaction.InventoryID)

	saleReq := sale("X1", 4, 80)
	saleReq.Barcode = "x1"
	res, err = f.transactions.Record(ctx, owner, saleReq)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Inventory.CurrentStock)
	assert.Equal(t, model.KindSale, res.Transaction.Kind)

	over := sale("X1", 10, 80)
	_, err = f.transactions.Record(ctx, owner, over)
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindInsufficientStock, appErr.Kind)
	assert.Equal(t, 6, appErr.Available)

	rec, err := f.inventory.Get(ctx, owner, res.Inventory.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.CurrentStock)
	assert.EqualValues(t, 2, countTransactions(t, f, owner), "the rejected sale is not persisted")
}

func TestRecord_PurchaseAddsToExistingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Dal", Quantity: 5, BuyingPrice: dec(90), Category: ptr("Grocery")})
	require.NoError(t, err)

	res, err := f.transactions.Record(ctx, owner, purchase("dal", "", 3, 95))
	require.NoError(t, err)
	assert.Equal(t, 8, res.Inventory.CurrentStock)
	assert.Equal(t, 8, res.Inventory.QuantityBought)
	assert.Equal(t, 3, res.Inventory.LastBoughtQty)
	assert.True(t, res.Inventory.BuyingPrice.Equal(decimal.NewFromInt(95)))
	assert.Equal(t, "Grocery", res.Transaction.Category)
}

func TestRecord_SaleUnknownProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Known", Quantity: 5})
	require.NoError(t, err)

	_, err = f.transactions.Record(ctx, owner, sale("Unknown", 1, 10))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	after, err := f.inventory.Get(ctx, owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.CurrentStock)
	assert.Zero(t, countTransactions(t, f, owner))
}

func TestRecord_SaleOutOfStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Empty", Quantity: 0})
	require.NoError(t, err)

	_, err = f.transactions.Record(ctx, owner, sale("Empty", 1, 10))
	assert.True(t, apperr.Is(err, apperr.KindOutOfStock))
}

func TestRecord_AmbiguousMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Oil", Barcode: "OIL-1", Quantity: 5})
	require.NoError(t, err)
	_, err = f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Oil", Barcode: "OIL-2", Quantity: 5})
	require.NoError(t, err)

	_, err = f.transactions.Record(ctx, owner, sale("oil", 1, 10))
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	req := sale("oil", 1, 10)
	req.Barcode = "oil-2"
	res, err := f.transactions.Record(ctx, owner, req)
	require.NoError(t, err, "an exact barcode picks one record even when the name is shared")
	assert.Equal(t, "OIL-2", res.Inventory.Barcode)
	assert.Equal(t, 4, res.Inventory.CurrentStock)

	req.Barcode = "OIL-9"
	_, err = f.transactions.Record(ctx, owner, req)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "unknown barcode falls back to the shared name")
}

func TestRecord_BarcodeWinsOverNameMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Soap", Quantity: 3})
	require.NoError(t, err)
	_, err = f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Lux", Barcode: "SOAP-7", Quantity: 8})
	require.NoError(t, err)

	req := sale("Soap", 2, 30)
	req.Barcode = "soap-7"
	res, err := f.transactions.Record(ctx, owner, req)
	require.NoError(t, err)
	assert.Equal(t, "Lux", res.Inventory.Name)
	assert.Equal(t, 6, res.Inventory.CurrentStock)
}

func TestRecord_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	cases := map[string]RecordTransactionRequest{
		"missing name":      {Kind: model.KindSale, SaleType: "Retail", Price: dec(1), Quantity: 1},
		"zero quantity":     {ProductName: "a", Kind: model.KindPurchase, Cost: dec(1)},
		"unknown kind":      {ProductName: "a", Kind: "Gift", Quantity: 1},
		"sale without type": {ProductName: "a", Kind: model.KindSale, Price: dec(1), Quantity: 1},
		"sale no price":     {ProductName: "a", Kind: model.KindSale, SaleType: "Retail", Quantity: 1},
		"purchase no cost":  {ProductName: "a", Kind: model.KindPurchase, Quantity: 1},
		"negative cost":     {ProductName: "a", Kind: model.KindPurchase, Cost: dec(-3), Quantity: 1},
	}
	for name, req := range cases {
		_, err := f.transactions.Record(ctx, owner, req)
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
	}
}

func TestRecord_OtherHasNoStockEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Bag", Quantity: 2})
	require.NoError(t, err)

	res, err := f.transactions.Record(ctx, owner, RecordTransactionRequest{ProductName: "Bag", Kind: "other", Quantity: 1})
	require.NoError(t, err)
	assert.Nil(t, res.Inventory)
	assert.Equal(t, model.KindOther, res.Transaction.Kind)
	assert.Equal(t, model.DefaultCategory, res.Transaction.Category)

	after, err := f.inventory.Get(ctx, owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.CurrentStock)

	res, err = f.transactions.Record(ctx, owner, RecordTransactionRequest{ProductName: "Nothing", Kind: model.KindOther, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTransactionCategory, res.Transaction.Category)
}

func TestRecord_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := f.inventory.Reconcile(ctx, owner, ReconcileRequest{Name: "Hot Item", Quantity: 5})
	require.NoError(t, err)

	const buyers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.transactions.Record(ctx, owner, sale("Hot Item", 1, 10)); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	after, err := f.inventory.Get(ctx, owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sold)
	assert.Equal(t, 0, after.CurrentStock)
	assert.EqualValues(t, 5, countTransactions(t, f, owner))
}

func TestTransactionUpdateAndDeleteLeaveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	res, err := f.transactions.Record(ctx, owner, purchase("Ink", "", 4, 20))
	require.NoError(t, err)

	updated, err := f.transactions.Update(ctx, owner, res.Transaction.ID, UpdateTransactionRequest{Quantity: ptr(9)})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Quantity)

	_, err = f.transactions.Update(ctx, owner, res.Transaction.ID, UpdateTransactionRequest{Quantity: ptr(0)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, f.transactions.Delete(ctx, owner, res.Transaction.ID))
	_, err = f.transactions.Get(ctx, owner, res.Transaction.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	rec, err := f.inventory.Get(ctx, owner, res.Inventory.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.CurrentStock)
}

func TestTransactionList_FiltersByKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.transactions.Record(ctx, owner, purchase("Cup", "", 4, 20))
	require.NoError(t, err)
	_, err = f.transactions.Record(ctx, owner, sale("Cup", 1, 30))
	require.NoError(t, err)

	txs, total, err := f.transactions.List(ctx, owner, "sale", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.KindSale, txs[0].Kind)

	_, _, err = f.transactions.List(ctx, owner, "refund", 1, 10)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
