package service

import (
	"context"
	"fmt"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const topN = 5

type InsightsService interface {
	Summary(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (*model.Insights, error)
	DailyReport(ctx context.Context, ownerID uuid.UUID, day time.Time) (*model.DailyReport, error)
}

type insightsService struct {
	repo    repository.InsightsRepository
	invRepo repository.InventoryRepository
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
}

// NewInsightsService buckets days in loc; nil means UTC.
func NewInsightsService(repo repository.InsightsRepository, invRepo repository.InventoryRepository, loc *time.Location, log *zap.Logger) InsightsService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &insightsService{repo: repo, invRepo: invRepo, loc: loc, now: time.Now, log: log}
}

// DefaultRange is the first instant of the current month up to now.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
}

// Summary aggregates the owner's transactions dated within [from, to].
func (s *insightsService) Summary(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (*model.Insights, error) {
	if from.IsZero() && to.IsZero() {
		from, to = DefaultRange(s.now().In(s.loc))
	}
	if to.IsZero() {
		to = s.now()
	}
	if to.Before(from) {
		return nil, apperr.Validation("start_date must not be after end_date")
	}
	from, to = from.UTC(), to.UTC()

	sales, err := s.repo.Totals(ctx, ownerID, model.KindSale, from, to)
	if err != nil {
		return nil, s.fail(err)
	}
	purchases, err := s.repo.Totals(ctx, ownerID, model.KindPurchase, from, to)
	if err != nil {
		return nil, s.fail(err)
	}
	count, err := s.repo.CountTransactions(ctx, ownerID, from, to)
	if err != nil {
		return nil, s.fail(err)
	}
	products, err := s.repo.TopProducts(ctx, ownerID, from, to, topN)
	if err != nil {
		return nil, s.fail(err)
	}
	categories, err := s.repo.TopCategories(ctx, ownerID, from, to, topN)
	if err != nil {
		return nil, s.fail(err)
	}
	rows, err := s.repo.SalesRows(ctx, ownerID, from, to)
	if err != nil {
		return nil, s.fail(err)
	}
	low, err := s.invRepo.LowStock(ctx, ownerID)
	if err != nil {
		return nil, s.fail(err)
	}

	if products == nil {
		products = []model.ProductRanking{}
	}
	if categories == nil {
		categories = []model.CategoryRanking{}
	}
	if low == nil {
		low = []model.InventoryRecord{}
	}

	res := &model.Insights{
		From:             from,
		To:               to,
		TotalSales:       sales.Amount,
		TotalPurchases:   purchases.Amount,
		GrossProfit:      sales.Amount.Sub(purchases.Amount),
		TransactionCount: count,
		UnitsSold:        sales.Units,
		TopProducts:      products,
		TopCategories:    categories,
		DailySales:       s.daily(rows),
		LowStock:         low,
	}
	res.Messages = messages(res)
	return res, nil
}

func (s *insightsService) fail(err error) error {
	s.log.Error("insights query failed", zap.Error(err))
	return apperr.Internal("failed to compute insights", err)
}

func (s *insightsService) daily(rows []repository.SaleRow) []model.DailyRevenue {
	series := []model.DailyRevenue{}
	index := map[string]int{}
	for _, r := range rows {
		day := r.TransactionDate.In(s.loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(series)
			index[day] = i
			series = append(series, model.DailyRevenue{Date: day, Revenue: decimal.Zero})
		}
		series[i].Revenue = series[i].Revenue.Add(r.Price.Mul(decimal.NewFromInt(r.Quantity)))
		series[i].Units += r.Quantity
	}
	return series
}

func messages(in *model.Insights) []string {
	msgs := []string{
		fmt.Sprintf("Total sales: ₹%s from %d units", in.TotalSales.StringFixed(2), in.UnitsSold),
	}
	if len(in.TopProducts) > 0 {
		top := in.TopProducts[0]
		msgs = append(msgs, fmt.Sprintf("Top-selling product: %s (%d units, ₹%s)", top.ProductName, top.Units, top.Revenue.StringFixed(2)))
	}
	if len(in.TopCategories) > 0 {
		msgs = append(msgs, fmt.Sprintf("Best category: %s", in.TopCategories[0].Category))
	}
	switch {
	case len(in.LowStock) > 0:
		msgs = append(msgs, fmt.Sprintf("Restock soon: %d item(s) at or below minimum stock, starting with %s", len(in.LowStock), in.LowStock[0].Name))
	case len(in.TopProducts) > 0:
		msgs = append(msgs, fmt.Sprintf("Suggestion: keep %s well stocked", in.TopProducts[0].ProductName))
	}
	return msgs
}

// DailyReport summarizes one calendar day in the service's time zone.
func (s *insightsService) DailyReport(ctx context.Context, ownerID uuid.UUID, day time.Time) (*model.DailyReport, error) {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	summary, err := s.Summary(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	report := &model.DailyReport{
		OwnerID:     ownerID.String(),
		Day:         start.Format("2006-01-02"),
		TotalSales:  summary.TotalSales.StringFixed(2),
		UnitsSold:   summary.UnitsSold,
		TopProducts: make([]model.ReportProduct, 0, len(summary.TopProducts)),
		LowStock:    make([]model.LowStockItem, 0, len(summary.LowStock)),
		GeneratedAt: s.now().UTC(),
	}
	for _, p := range summary.TopProducts {
		report.TopProducts = append(report.TopProducts, model.ReportProduct{
			Name:    p.ProductName,
			Units:   p.Units,
			Revenue: p.Revenue.StringFixed(2),
		})
	}
	for i := range summary.LowStock {
		report.LowStock = append(report.LowStock, lowStockItem(&summary.LowStock[i]))
	}
	return report, nil
}
