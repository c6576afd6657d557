package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultCategory = "General"
	DefaultStatus   = "Active"
)

// InventoryRecord is one stock-keeping unit of an owner. (OwnerID, LookupKey)
// is unique; see LookupKey for how the key is derived.
type InventoryRecord struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_owner_key,priority:1" json:"owner_id"`
	LookupKey       string          `gorm:"type:varchar(300);not null;uniqueIndex:idx_inventory_owner_key,priority:2" json:"-"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	NormalizedName  string          `gorm:"type:varchar(255);not null;index" json:"-"`
	Company         string          `gorm:"type:varchar(255)" json:"company"`
	Category        string          `gorm:"type:varchar(100);not null;default:'General'" json:"category"`
	Barcode         string          `gorm:"type:varchar(100);index" json:"barcode"`
	BuyingPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"buying_price"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"selling_price"`
	QuantityBought  int             `gorm:"type:int;not null;default:0" json:"quantity_bought"`
	CurrentStock    int             `gorm:"type:int;not null;default:0" json:"current_stock"`
	LastBoughtQty   int             `gorm:"type:int;not null;default:0" json:"last_bought_qty"`
	Status          string          `gorm:"type:varchar(50);not null;default:'Active'" json:"status"`
	SupplierName    string          `gorm:"type:varchar(255)" json:"supplier_name"`
	SupplierContact string          `gorm:"type:varchar(255)" json:"supplier_contact"`
	MinStock        int             `gorm:"type:int;not null;default:0" json:"min_stock"`
	ReorderQty      int             `gorm:"type:int;not null;default:0" json:"reorder_qty"`
	Description     string          `gorm:"type:text" json:"description"`
	DateBought      time.Time       `gorm:"index" json:"date_bought"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (r *InventoryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsLow reports whether stock has reached the configured minimum.
func (r *InventoryRecord) IsLow() bool {
	return r.MinStock > 0 && r.CurrentStock <= r.MinStock
}

// NormalizeName lower-cases s and collapses runs of whitespace.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NormalizeBarcode trims and upper-cases a barcode or SKU.
func NormalizeBarcode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// LookupKey is the identity of a record within an owner's inventory: the
// barcode when there is one, otherwise the normalized name.
func LookupKey(barcode, name string) string {
	if b := NormalizeBarcode(barcode); b != "" {
		return "sku:" + b
	}
	return "name:" + NormalizeName(name)
}
