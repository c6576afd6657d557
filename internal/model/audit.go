package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionReconcileInventory = "RECONCILE_INVENTORY"
	ActionUpdateInventory    = "UPDATE_INVENTORY"
	ActionDeleteInventory    = "DELETE_INVENTORY"
	ActionImportInventory    = "IMPORT_INVENTORY"

	ActionRecordSale     = "RECORD_SALE"
	ActionRecordPurchase = "RECORD_PURCHASE"
	ActionRecordOther    = "RECORD_TRANSACTION"
	ActionUpdateTx       = "UPDATE_TRANSACTION"
	ActionDeleteTx       = "DELETE_TRANSACTION"
	ActionImportTx       = "IMPORT_TRANSACTIONS"
)

// AuditLog tracks Who, What, and When for every stock affecting change
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for scheduled jobs
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // JSON payload
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
