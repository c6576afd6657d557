package repository

import (
	"context"
	"fmt"
	"time"

	"smartsahuji/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InsightsRepository interface {
	Totals(ctx context.Context, ownerID uuid.UUID, kind string, start, end time.Time) (model.TotalsRow, error)
	CountTransactions(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (int64, error)
	TopProducts(ctx context.Context, ownerID uuid.UUID, start, end time.Time, limit int) ([]model.ProductRanking, error)
	TopCategories(ctx context.Context, ownerID uuid.UUID, start, end time.Time, limit int) ([]model.CategoryRanking, error)
	SalesRows(ctx context.Context, ownerID uuid.UUID, start, end time.Time) ([]SaleRow, error)
}

// SaleRow is the slice of a sale needed for a daily series
type SaleRow struct {
	TransactionDate time.Time
	Price           decimal.Decimal
	Quantity        int64
}

type insightsRepository struct {
	db *gorm.DB
}

func NewInsightsRepository(db *gorm.DB) InsightsRepository {
	return &insightsRepository{db: db}
}

func (r *insightsRepository) window(ctx context.Context, ownerID uuid.UUID, start, end time.Time) *gorm.DB {
	return GetDB(ctx, r.db).Table("transactions").
		Where("owner_id = ? AND transaction_date >= ? AND transaction_date <= ?", ownerID, start, end)
}

// Totals sums price*quantity for sales or cost*quantity for purchases.
func (r *insightsRepository) Totals(ctx context.Context, ownerID uuid.UUID, kind string, start, end time.Time) (model.TotalsRow, error) {
	amount := "price"
	if kind == model.KindPurchase {
		amount = "cost"
	}

	var row model.TotalsRow
	if err := r.window(ctx, ownerID, start, end).
		Select(fmt.Sprintf("COALESCE(SUM(%s * quantity), 0) AS amount, COALESCE(SUM(quantity), 0) AS units, COUNT(*) AS count", amount)).
		Where("item_type = ?", kind).
		Scan(&row).Error; err != nil {
		return model.TotalsRow{}, fmt.Errorf("failed to total %s transactions: %w", kind, err)
	}
	return row, nil
}

func (r *insightsRepository) CountTransactions(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (int64, error) {
	var n int64
	if err := r.window(ctx, ownerID, start, end).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (r *insightsRepository) TopProducts(ctx context.Context, ownerID uuid.UUID, start, end time.Time, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	if err := r.window(ctx, ownerID, start, end).
		Select("product_name, SUM(quantity) AS units, SUM(price * quantity) AS revenue").
		Where("item_type = ?", model.KindSale).
		Group("product_name").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return rankings, nil
}

func (r *insightsRepository) TopCategories(ctx context.Context, ownerID uuid.UUID, start, end time.Time, limit int) ([]model.CategoryRanking, error) {
	var rankings []model.CategoryRanking
	if err := r.window(ctx, ownerID, start, end).
		Select("category, SUM(quantity) AS units, SUM(price * quantity) AS revenue").
		Where("item_type = ?", model.KindSale).
		Group("category").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top categories: %w", err)
	}
	return rankings, nil
}

func (r *insightsRepository) SalesRows(ctx context.Context, ownerID uuid.UUID, start, end time.Time) ([]SaleRow, error) {
	var rows []SaleRow
	if err := r.window(ctx, ownerID, start, end).
		Select("transaction_date, price, quantity").
		Where("item_type = ?", model.KindSale).
		Order("transaction_date asc").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	return rows, nil
}
