package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Insights summarizes an owner's transactions within a time range
type Insights struct {
	From             time.Time         `json:"from"`
	To               time.Time         `json:"to"`
	TotalSales       decimal.Decimal   `json:"total_sales"`
	TotalPurchases   decimal.Decimal   `json:"total_purchases"`
	GrossProfit      decimal.Decimal   `json:"gross_profit"`
	TransactionCount int64             `json:"transaction_count"`
	UnitsSold        int64             `json:"units_sold"`
	TopProducts      []ProductRanking  `json:"top_products"`
	TopCategories    []CategoryRanking `json:"top_categories"`
	DailySales       []DailyRevenue    `json:"daily_sales"`
	LowStock         []InventoryRecord `json:"low_stock"`
	Messages         []string          `json:"insights"`
}

// ProductRanking represents a product ranked by sales revenue
type ProductRanking struct {
	ProductName string          `json:"product_name"`
	Units       int64           `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type CategoryRanking struct {
	Category string          `json:"category"`
	Units    int64           `json:"units"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type DailyRevenue struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Revenue decimal.Decimal `json:"revenue"`
	Units   int64           `json:"units"`
}

// TotalsRow is the raw aggregate of one transaction kind
type TotalsRow struct {
	Amount decimal.Decimal
	Units  int64
	Count  int64
}

// DailyReport is the document archived by the nightly job
type DailyReport struct {
	OwnerID     string          `bson:"owner_id" json:"owner_id"`
	Day         string          `bson:"day" json:"day"`
	TotalSales  string          `bson:"total_sales" json:"total_sales"`
	UnitsSold   int64           `bson:"units_sold" json:"units_sold"`
	TopProducts []ReportProduct `bson:"top_products" json:"top_products"`
	LowStock    []LowStockItem  `bson:"low_stock" json:"low_stock"`
	GeneratedAt time.Time       `bson:"generated_at" json:"generated_at"`
}

// ReportProduct keeps money as a string so the document stays portable
type ReportProduct struct {
	Name    string `bson:"name" json:"name"`
	Units   int64  `bson:"units" json:"units"`
	Revenue string `bson:"revenue" json:"revenue"`
}

type LowStockItem struct {
	ID           string `bson:"id" json:"id"`
	Name         string `bson:"name" json:"name"`
	CurrentStock int    `bson:"current_stock" json:"current_stock"`
	MinStock     int    `bson:"min_stock" json:"min_stock"`
	ReorderQty   int    `bson:"reorder_qty" json:"reorder_qty"`
}
