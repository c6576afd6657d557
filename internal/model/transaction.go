package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction kinds
const (
	KindSale     = "Sale"
	KindPurchase = "Purchase"
	KindOther    = "Other"
)

const DefaultTransactionCategory = "Other"

// Transaction is a single sale, purchase or other movement reported by an
// owner. InventoryID links the record it touched, if any.
type Transaction struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_tx_owner_date,priority:1" json:"owner_id"`
	InventoryID     *uuid.UUID       `gorm:"type:uuid;index" json:"inventory_id,omitempty"`
	ProductName     string           `gorm:"type:varchar(255);not null" json:"product_name"`
	Barcode         string           `gorm:"type:varchar(100)" json:"barcode,omitempty"`
	Category        string           `gorm:"type:varchar(100);not null" json:"category"`
	Kind            string           `gorm:"column:item_type;type:varchar(20);not null;index" json:"item_type"`
	SaleType        string           `gorm:"type:varchar(50)" json:"sale_type,omitempty"`
	Price           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"price,omitempty"`
	Cost            *decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost,omitempty"`
	Quantity        int              `gorm:"type:int;not null" json:"quantity"`
	TransactionDate time.Time        `gorm:"not null;index:idx_tx_owner_date,priority:2" json:"date"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ValidKind reports whether k is one of the known transaction kinds.
func ValidKind(k string) bool {
	return k == KindSale || k == KindPurchase || k == KindOther
}
