package service

import (
	"context"
	"encoding/json"
	"fmt"

	"smartsahuji/internal/cache"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Websocket event names
const (
	EventStockUpdated      = "stock.updated"
	EventStockLow          = "stock.low"
	EventInventoryDeleted  = "inventory.deleted"
	EventInventoryImported = "inventory.imported"
)

// EventPublisher pushes an event to the live connections of one user.
type EventPublisher interface {
	Publish(userID, event string, data interface{})
}

// stockNotifier runs after a stock change commits: it drops the owner's
// cached reads and tells connected clients.
type stockNotifier struct {
	events EventPublisher
	cache  cache.Cache
	log    *zap.Logger
}

func newStockNotifier(events EventPublisher, c cache.Cache, log *zap.Logger) *stockNotifier {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &stockNotifier{events: events, cache: c, log: log}
}

func inventoryNamespace(ownerID uuid.UUID) string {
	return "inventory:" + ownerID.String()
}

func (n *stockNotifier) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if err := n.cache.Invalidate(ctx, inventoryNamespace(ownerID)); err != nil {
		n.log.Warn("failed to invalidate inventory cache", zap.Stringer("owner_id", ownerID), zap.Error(err))
	}
}

func (n *stockNotifier) publish(ownerID uuid.UUID, event string, data interface{}) {
	if n.events == nil {
		return
	}
	n.events.Publish(ownerID.String(), event, data)
}

func (n *stockNotifier) changed(ctx context.Context, ownerID uuid.UUID, rec *model.InventoryRecord) {
	n.invalidate(ctx, ownerID)
	if rec == nil {
		return
	}
	n.publish(ownerID, EventStockUpdated, rec)
	if rec.IsLow() {
		n.publish(ownerID, EventStockLow, lowStockItem(rec))
	}
}

func lowStockItem(rec *model.InventoryRecord) model.LowStockItem {
	return model.LowStockItem{
		ID:           rec.ID.String(),
		Name:         rec.Name,
		CurrentStock: rec.CurrentStock,
		MinStock:     rec.MinStock,
		ReorderQty:   rec.ReorderQty,
	}
}

// writeAudit records an audit entry on whatever transaction ctx carries.
func writeAudit(ctx context.Context, repo repository.AuditRepository, userID uuid.UUID, action, entityID, entityName string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var uid *uuid.UUID
	if userID != uuid.Nil {
		uid = &userID
	}
	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
