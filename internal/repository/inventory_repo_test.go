package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/database/dbtest"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRecord(owner uuid.UUID, name, barcode string, stock int) *model.InventoryRecord {
	return &model.InventoryRecord{
		OwnerID:        owner,
		LookupKey:      model.LookupKey(barcode, name),
		Name:           name,
		NormalizedName: model.NormalizeName(name),
		Barcode:        model.NormalizeBarcode(barcode),
		Category:       model.DefaultCategory,
		Status:         model.DefaultStatus,
		BuyingPrice:    decimal.NewFromInt(10),
		QuantityBought: stock,
		CurrentStock:   stock,
		DateBought:     time.Now().UTC(),
	}
}

func TestInventoryRepository_UniqueOwnerKey(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, repo.Create(ctx, newRecord(owner, "Samsung Galaxy A54", "", 1)))

	err := repo.Create(ctx, newRecord(owner, "  samsung   GALAXY a54 ", "", 1))
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))

	// same key for a different owner is fine
	require.NoError(t, repo.Create(ctx, newRecord(uuid.New(), "Samsung Galaxy A54", "", 1)))
}

func TestInventoryRepository_DecrementStockGuard(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	rec := newRecord(owner, "Widget", "W-1", 5)
	require.NoError(t, repo.Create(ctx, rec))

	ok, err := repo.DecrementStock(ctx, owner, rec.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, owner, rec.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok, "only 2 left")

	got, err := repo.FindByID(ctx, owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStock)

	// another owner cannot touch the record
	ok, err = repo.DecrementStock(ctx, uuid.New(), rec.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInventoryRepository_FindMatches(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	withCode := newRecord(owner, "Parle G", "PG-01", 10)
	byName := newRecord(owner, "Maggi Noodles", "", 10)
	require.NoError(t, repo.Create(ctx, withCode))
	require.NoError(t, repo.Create(ctx, byName))

	got, err := repo.FindMatches(ctx, owner, "PG-01", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withCode.ID, got[0].ID)

	got, err = repo.FindMatches(ctx, owner, "", "parle g")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withCode.ID, got[0].ID)

	got, err = repo.FindMatches(ctx, owner, "PG-01", "maggi noodles")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.FindMatches(ctx, owner, "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInventoryRepository_SearchIsCaseInsensitive(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	phone := newRecord(owner, "Samsung Galaxy A54", "", 3)
	phone.Company = "Samsung"
	phone.Category = "Mobiles"
	require.NoError(t, repo.Create(ctx, phone))
	require.NoError(t, repo.Create(ctx, newRecord(owner, "Tata Salt", "", 3)))

	for _, q := range []string{"galaxy", "SAMSUNG", "mobiles"} {
		recs, total, err := repo.Search(ctx, owner, q, 0, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total, q)
		require.Len(t, recs, 1)
		assert.Equal(t, phone.ID, recs[0].ID)
	}

	recs, total, err := repo.Search(ctx, owner, "iphone", 0, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, recs)
}

func TestInventoryRepository_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, repo.Create(ctx, newRecord(owner, "Samsung Galaxy A54", "", 3)))
	offer := newRecord(owner, "Rice 50% off", "", 3)
	require.NoError(t, repo.Create(ctx, offer))

	cases := map[string]int64{
		"_":      0,
		"%":      1,
		"50%":    1,
		`\`:     0,
		"a%54":   0,
		"rice 5": 1,
	}
	for q, want := range cases {
		recs, total, err := repo.Search(ctx, owner, q, 0, 20)
		require.NoError(t, err, q)
		assert.Equal(t, want, total, q)
		if want == 1 {
			require.Len(t, recs, 1, q)
			assert.Equal(t, offer.ID, recs[0].ID, q)
		}
	}
}

func TestInventoryRepository_LowStockAndApplyDelta(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	rec := newRecord(owner, "Soap", "", 3)
	rec.MinStock = 5
	require.NoError(t, repo.Create(ctx, rec))
	untracked := newRecord(owner, "Brush", "", 0)
	require.NoError(t, repo.Create(ctx, untracked))

	low, err := repo.LowStock(ctx, owner)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, rec.ID, low[0].ID)

	require.NoError(t, repo.ApplyDelta(ctx, owner, rec.ID, map[string]interface{}{
		"current_stock": gorm.Expr("current_stock + ?", 10),
	}))
	low, err = repo.LowStock(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, low)

	err = repo.ApplyDelta(ctx, owner, uuid.New(), map[string]interface{}{"status": "x"})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestInventoryRepository_DeleteScopedToOwner(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	rec := newRecord(owner, "Pen", "", 1)
	require.NoError(t, repo.Create(ctx, rec))

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New(), rec.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(ctx, owner, rec.ID))
	_, err := repo.FindByID(ctx, owner, rec.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
