package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/cache"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"
	"smartsahuji/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileRequest adds stock to the record identified by Barcode (or SKU)
// and Name. Pointer fields are overrides: a field that is present is written
// even when it holds a zero value, an absent one leaves the record alone.
type ReconcileRequest struct {
	Name            string           `json:"name" binding:"required"`
	Barcode         string           `json:"barcode"`
	SKU             string           `json:"sku"`
	Quantity        int              `json:"quantity"`
	Company         *string          `json:"company"`
	Category        *string          `json:"category"`
	BuyingPrice     *decimal.Decimal `json:"buying_price" swaggertype:"number"`
	SellingPrice    *decimal.Decimal `json:"selling_price" swaggertype:"number"`
	CurrentStock    *int             `json:"current_stock"` // honoured only when the record is created
	Status          *string          `json:"status"`
	SupplierName    *string          `json:"supplier_name"`
	SupplierContact *string          `json:"supplier_contact"`
	MinStock        *int             `json:"min_stock"`
	ReorderQty      *int             `json:"reorder_qty"`
	Description     *string          `json:"description"`
	DateBought      *time.Time       `json:"date_bought"`
}

func (r *ReconcileRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if strings.TrimSpace(r.Barcode) == "" {
		r.Barcode = r.SKU
	}
	r.Barcode = model.NormalizeBarcode(r.Barcode)
	r.SKU = ""
}

func (r *ReconcileRequest) validate(ownerID uuid.UUID) error {
	switch {
	case ownerID == uuid.Nil:
		return apperr.Validation("owner is required")
	case r.Name == "":
		return apperr.Validation("name is required")
	case r.Quantity < 0:
		return apperr.Validation("quantity must not be negative")
	case r.BuyingPrice != nil && r.BuyingPrice.IsNegative():
		return apperr.Validation("buying_price must not be negative")
	case r.SellingPrice != nil && r.SellingPrice.IsNegative():
		return apperr.Validation("selling_price must not be negative")
	case r.CurrentStock != nil && *r.CurrentStock < 0:
		return apperr.Validation("current_stock must not be negative")
	case r.MinStock != nil && *r.MinStock < 0:
		return apperr.Validation("min_stock must not be negative")
	case r.ReorderQty != nil && *r.ReorderQty < 0:
		return apperr.Validation("reorder_qty must not be negative")
	}
	return nil
}

// overrides adds every present optional field to an update set.
func (r *ReconcileRequest) overrides(updates map[string]interface{}) {
	if r.Company != nil {
		updates["company"] = strings.TrimSpace(*r.Company)
	}
	if r.Category != nil {
		updates["category"] = strings.TrimSpace(*r.Category)
	}
	if r.BuyingPrice != nil {
		updates["buying_price"] = *r.BuyingPrice
	}
	if r.SellingPrice != nil {
		updates["selling_price"] = *r.SellingPrice
	}
	if r.Status != nil {
		updates["status"] = strings.TrimSpace(*r.Status)
	}
	if r.SupplierName != nil {
		updates["supplier_name"] = strings.TrimSpace(*r.SupplierName)
	}
	if r.SupplierContact != nil {
		updates["supplier_contact"] = strings.TrimSpace(*r.SupplierContact)
	}
	if r.MinStock != nil {
		updates["min_stock"] = *r.MinStock
	}
	if r.ReorderQty != nil {
		updates["reorder_qty"] = *r.ReorderQty
	}
	if r.Description != nil {
		updates["description"] = *r.Description
	}
	if r.DateBought != nil {
		updates["date_bought"] = r.DateBought.UTC()
	}
}

func (r *ReconcileRequest) newRecord(ownerID uuid.UUID, key string, now time.Time) *model.InventoryRecord {
	rec := &model.InventoryRecord{
		OwnerID:        ownerID,
		LookupKey:      key,
		Name:           r.Name,
		NormalizedName: model.NormalizeName(r.Name),
		Barcode:        r.Barcode,
		Category:       model.DefaultCategory,
		Status:         model.DefaultStatus,
		QuantityBought: r.Quantity,
		CurrentStock:   r.Quantity,
		LastBoughtQty:  r.Quantity,
		DateBought:     now,
	}
	if r.CurrentStock != nil {
		rec.CurrentStock = *r.CurrentStock
	}
	if r.Company != nil {
		rec.Company = strings.TrimSpace(*r.Company)
	}
	if r.Category != nil && strings.TrimSpace(*r.Category) != "" {
		rec.Category = strings.TrimSpace(*r.Category)
	}
	if r.Status != nil && strings.TrimSpace(*r.Status) != "" {
		rec.Status = strings.TrimSpace(*r.Status)
	}
	if r.BuyingPrice != nil {
		rec.BuyingPrice = *r.BuyingPrice
	}
	if r.SellingPrice != nil {
		rec.SellingPrice = *r.SellingPrice
	}
	if r.SupplierName != nil {
		rec.SupplierName = strings.TrimSpace(*r.SupplierName)
	}
	if r.SupplierContact != nil {
		rec.SupplierContact = strings.TrimSpace(*r.SupplierContact)
	}
	if r.MinStock != nil {
		rec.MinStock = *r.MinStock
	}
	if r.ReorderQty != nil {
		rec.ReorderQty = *r.ReorderQty
	}
	if r.Description != nil {
		rec.Description = *r.Description
	}
	if r.DateBought != nil {
		rec.DateBought = r.DateBought.UTC()
	}
	return rec
}

// reconciler is the single place where inbound quantities meet the store.
// It runs on the transaction carried by ctx.
type reconciler struct {
	repo repository.InventoryRepository
	now  func() time.Time
}

// apply merges req into the owner's record for its lookup key, creating the
// record when there is none. It reports whether a record was created.
func (r *reconciler) apply(ctx context.Context, ownerID uuid.UUID, req ReconcileRequest) (*model.InventoryRecord, bool, error) {
	key := model.LookupKey(req.Barcode, req.Name)

	existing, err := r.repo.FindByKey(ctx, ownerID, key)
	adopt := false
	if errors.Is(err, gorm.ErrRecordNotFound) && req.Barcode != "" {
		// a barcode arriving for a record first added by name only takes it over
		existing, err = r.repo.FindByKey(ctx, ownerID, model.LookupKey("", req.Name))
		adopt = err == nil
	}
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"quantity_bought": gorm.Expr("quantity_bought + ?", req.Quantity),
			"current_stock":   gorm.Expr("current_stock + ?", req.Quantity),
			"last_bought_qty": req.Quantity,
		}
		if adopt {
			updates["barcode"] = req.Barcode
			updates["lookup_key"] = key
		}
		req.overrides(updates)
		if err := r.repo.ApplyDelta(ctx, ownerID, existing.ID, updates); err != nil {
			return nil, false, apperr.FromStore(err, "inventory record")
		}
		rec, err := r.repo.FindByID(ctx, ownerID, existing.ID)
		if err != nil {
			return nil, false, apperr.FromStore(err, "inventory record")
		}
		return rec, false, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := req.newRecord(ownerID, key, r.now().UTC())
		if err := r.repo.Create(ctx, rec); err != nil {
			return nil, false, apperr.FromStore(err, "inventory record")
		}
		return rec, true, nil

	default:
		return nil, false, apperr.FromStore(err, "inventory record")
	}
}

// UpdateInventoryRequest edits a record directly. Quantities are set, not
// added; use Reconcile to receive stock.
type UpdateInventoryRequest struct {
	Name            *string          `json:"name"`
	Barcode         *string          `json:"barcode"`
	Company         *string          `json:"company"`
	Category        *string          `json:"category"`
	BuyingPrice     *decimal.Decimal `json:"buying_price" swaggertype:"number"`
	SellingPrice    *decimal.Decimal `json:"selling_price" swaggertype:"number"`
	QuantityBought  *int             `json:"quantity_bought"`
	CurrentStock    *int             `json:"current_stock"`
	Status          *string          `json:"status"`
	SupplierName    *string          `json:"supplier_name"`
	SupplierContact *string          `json:"supplier_contact"`
	MinStock        *int             `json:"min_stock"`
	ReorderQty      *int             `json:"reorder_qty"`
	Description     *string          `json:"description"`
	DateBought      *time.Time       `json:"date_bought"`
}

type InventoryService interface {
	Reconcile(ctx context.Context, ownerID uuid.UUID, req ReconcileRequest) (*model.InventoryRecord, error)
	List(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]model.InventoryRecord, int64, error)
	Search(ctx context.Context, ownerID uuid.UUID, query string, page, limit int) ([]model.InventoryRecord, int64, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.InventoryRecord, error)
	Autofill(ctx context.Context, ownerID uuid.UUID, name, barcode string) (*model.InventoryRecord, error)
	LowStock(ctx context.Context, ownerID uuid.UUID) ([]model.InventoryRecord, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, req UpdateInventoryRequest) (*model.InventoryRecord, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type inventoryService struct {
	repo       repository.InventoryRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	reconciler *reconciler
	cache      cache.Cache
	notifier   *stockNotifier
	log        *zap.Logger
}

func NewInventoryService(
	repo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	c cache.Cache,
	events EventPublisher,
	log *zap.Logger,
) InventoryService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &inventoryService{
		repo:       repo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		reconciler: &reconciler{repo: repo, now: time.Now},
		cache:      c,
		notifier:   newStockNotifier(events, c, log),
		log:        log,
	}
}

func (s *inventoryService) Reconcile(ctx context.Context, ownerID uuid.UUID, req ReconcileRequest) (*model.InventoryRecord, error) {
	req.normalize()
	if err := req.validate(ownerID); err != nil {
		return nil, err
	}

	var rec *model.InventoryRecord
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var created bool
		var err error
		rec, created, err = s.reconciler.apply(txCtx, ownerID, req)
		if err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, ownerID, model.ActionReconcileInventory, rec.ID.String(), rec.Name, map[string]interface{}{
			"created":       created,
			"quantity":      req.Quantity,
			"current_stock": rec.CurrentStock,
		})
	})
	if err != nil {
		return nil, s.fail("reconcile", err)
	}

	s.notifier.changed(ctx, ownerID, rec)
	return rec, nil
}

// fail logs unexpected errors and makes sure callers only see typed ones.
func (s *inventoryService) fail(op string, err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error("inventory operation failed", zap.String("op", op), zap.Error(err))
		var e *apperr.Error
		if !errors.As(err, &e) {
			return apperr.Internal("failed to "+op+" inventory", err)
		}
	}
	return err
}

type inventoryPage struct {
	Items []model.InventoryRecord `json:"items"`
	Total int64                   `json:"total"`
}

func (s *inventoryService) List(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]model.InventoryRecord, int64, error) {
	p := pagination.Clamp(page, limit)
	ns := inventoryNamespace(ownerID)
	key := cache.Key(ns, s.cache.Version(ctx, ns), "list", strconv.Itoa(p.Page), strconv.Itoa(p.Limit))

	var cached inventoryPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, cached.Total, nil
	}

	recs, total, err := s.repo.List(ctx, ownerID, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, s.fail("list", apperr.FromStore(err, "inventory"))
	}
	if err := s.cache.Set(ctx, key, inventoryPage{Items: recs, Total: total}); err != nil {
		s.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return recs, total, nil
}

func (s *inventoryService) Search(ctx context.Context, ownerID uuid.UUID, query string, page, limit int) ([]model.InventoryRecord, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, apperr.Validation("query is required")
	}
	p := pagination.Clamp(page, limit)
	ns := inventoryNamespace(ownerID)
	key := cache.Key(ns, s.cache.Version(ctx, ns), "search", strings.ToLower(query), strconv.Itoa(p.Page), strconv.Itoa(p.Limit))

	var cached inventoryPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, cached.Total, nil
	}

	recs, total, err := s.repo.Search(ctx, ownerID, query, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, s.fail("search", apperr.FromStore(err, "inventory"))
	}
	if err := s.cache.Set(ctx, key, inventoryPage{Items: recs, Total: total}); err != nil {
		s.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return recs, total, nil
}

func (s *inventoryService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.InventoryRecord, error) {
	rec, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, s.fail("get", apperr.FromStore(err, "inventory record"))
	}
	return rec, nil
}

// Autofill finds a record by exact barcode first, then by exact name.
func (s *inventoryService) Autofill(ctx context.Context, ownerID uuid.UUID, name, barcode string) (*model.InventoryRecord, error) {
	barcode = model.NormalizeBarcode(barcode)
	normalized := model.NormalizeName(name)
	if barcode == "" && normalized == "" {
		return nil, apperr.Validation("name or barcode is required")
	}

	if barcode != "" {
		matches, err := s.repo.FindMatches(ctx, ownerID, barcode, "")
		if err != nil {
			return nil, s.fail("autofill", apperr.FromStore(err, "inventory"))
		}
		if len(matches) > 0 {
			return &matches[0], nil
		}
	}
	if normalized != "" {
		matches, err := s.repo.FindMatches(ctx, ownerID, "", normalized)
		if err != nil {
			return nil, s.fail("autofill", apperr.FromStore(err, "inventory"))
		}
		if len(matches) > 0 {
			return &matches[0], nil
		}
	}
	return nil, apperr.NotFound("no inventory record matches")
}

func (s *inventoryService) LowStock(ctx context.Context, ownerID uuid.UUID) ([]model.InventoryRecord, error) {
	recs, err := s.repo.LowStock(ctx, ownerID)
	if err != nil {
		return nil, s.fail("list low stock", apperr.FromStore(err, "inventory"))
	}
	return recs, nil
}

func (s *inventoryService) Update(ctx context.Context, ownerID, id uuid.UUID, req UpdateInventoryRequest) (*model.InventoryRecord, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var rec *model.InventoryRecord
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = s.repo.FindByID(txCtx, ownerID, id)
		if err != nil {
			return apperr.FromStore(err, "inventory record")
		}

		req.apply(rec)
		if err := s.repo.Save(txCtx, rec); err != nil {
			return apperr.FromStore(err, "inventory record")
		}
		return writeAudit(txCtx, s.auditRepo, ownerID, model.ActionUpdateInventory, rec.ID.String(), rec.Name, req)
	})
	if err != nil {
		return nil, s.fail("update", err)
	}

	s.notifier.changed(ctx, ownerID, rec)
	return rec, nil
}

func (s *inventoryService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	var name string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rec, err := s.repo.FindByID(txCtx, ownerID, id)
		if err != nil {
			return apperr.FromStore(err, "inventory record")
		}
		name = rec.Name
		if err := s.repo.Delete(txCtx, ownerID, id); err != nil {
			return apperr.FromStore(err, "inventory record")
		}
		return writeAudit(txCtx, s.auditRepo, ownerID, model.ActionDeleteInventory, id.String(), rec.Name, map[string]bool{"deleted": true})
	})
	if err != nil {
		return s.fail("delete", err)
	}

	s.notifier.invalidate(ctx, ownerID)
	s.notifier.publish(ownerID, EventInventoryDeleted, map[string]string{"id": id.String(), "name": name})
	return nil
}

func (r *UpdateInventoryRequest) validate() error {
	switch {
	case r.Name != nil && strings.TrimSpace(*r.Name) == "":
		return apperr.Validation("name must not be empty")
	case r.BuyingPrice != nil && r.BuyingPrice.IsNegative():
		return apperr.Validation("buying_price must not be negative")
	case r.SellingPrice != nil && r.SellingPrice.IsNegative():
		return apperr.Validation("selling_price must not be negative")
	case r.QuantityBought != nil && *r.QuantityBought < 0:
		return apperr.Validation("quantity_bought must not be negative")
	case r.CurrentStock != nil && *r.CurrentStock < 0:
		return apperr.Validation("current_stock must not be negative")
	case r.MinStock != nil && *r.MinStock < 0:
		return apperr.Validation("min_stock must not be negative")
	case r.ReorderQty != nil && *r.ReorderQty < 0:
		return apperr.Validation("reorder_qty must not be negative")
	}
	return nil
}

func (r *UpdateInventoryRequest) apply(rec *model.InventoryRecord) {
	if r.Name != nil {
		rec.Name = strings.TrimSpace(*r.Name)
		rec.NormalizedName = model.NormalizeName(rec.Name)
	}
	if r.Barcode != nil {
		rec.Barcode = model.NormalizeBarcode(*r.Barcode)
	}
	rec.LookupKey = model.LookupKey(rec.Barcode, rec.Name)

	if r.Company != nil {
		rec.Company = strings.TrimSpace(*r.Company)
	}
	if r.Category != nil {
		rec.Category = strings.TrimSpace(*r.Category)
	}
	if r.BuyingPrice != nil {
		rec.BuyingPrice = *r.BuyingPrice
	}
	if r.SellingPrice != nil {
		rec.SellingPrice = *r.SellingPrice
	}
	if r.QuantityBought != nil {
		rec.QuantityBought = *r.QuantityBought
	}
	if r.CurrentStock != nil {
		rec.CurrentStock = *r.CurrentStock
	}
	if r.Status != nil {
		rec.Status = strings.TrimSpace(*r.Status)
	}
	if r.SupplierName != nil {
		rec.SupplierName = strings.TrimSpace(*r.SupplierName)
	}
	if r.SupplierContact != nil {
		rec.SupplierContact = strings.TrimSpace(*r.SupplierContact)
	}
	if r.MinStock != nil {
		rec.MinStock = *r.MinStock
	}
	if r.ReorderQty != nil {
		rec.ReorderQty = *r.ReorderQty
	}
	if r.Description != nil {
		rec.Description = *r.Description
	}
	if r.DateBought != nil {
		rec.DateBought = r.DateBought.UTC()
	}
}
