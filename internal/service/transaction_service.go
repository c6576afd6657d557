package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/cache"
	"smartsahuji/internal/metrics"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"
	"smartsahuji/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RecordTransactionRequest struct {
	ProductName string           `json:"product_name" binding:"required"`
	Barcode     string           `json:"barcode"`
	Category    string           `json:"category"`
	Kind        string           `json:"item_type" binding:"required"`
	SaleType    string           `json:"sale_type"`
	Price       *decimal.Decimal `json:"price" swaggertype:"number"`
	Cost        *decimal.Decimal `json:"cost" swaggertype:"number"`
	Quantity    int              `json:"quantity" binding:"required"`
	Date        *time.Time       `json:"date"`
}

func (r *RecordTransactionRequest) normalize() {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Barcode = model.NormalizeBarcode(r.Barcode)
	r.Category = strings.TrimSpace(r.Category)
	r.SaleType = strings.TrimSpace(r.SaleType)
	r.Kind = canonicalKind(r.Kind)
}

// canonicalKind accepts "sale", "SALE" and friends.
func canonicalKind(k string) string {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "sale":
		return model.KindSale
	case "purchase":
		return model.KindPurchase
	case "other":
		return model.KindOther
	}
	return strings.TrimSpace(k)
}

func (r *RecordTransactionRequest) validate(ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return apperr.Validation("owner is required")
	}
	if r.ProductName == "" {
		return apperr.Validation("product_name is required")
	}
	if !model.ValidKind(r.Kind) {
		return apperr.Validation("item_type must be one of Sale, Purchase, Other")
	}
	if r.Quantity <= 0 {
		return apperr.Validation("quantity must be greater than 0")
	}

	switch r.Kind {
	case model.KindSale:
		if r.Price == nil {
			return apperr.Validation("price is required for a sale")
		}
		if r.Price.IsNegative() {
			return apperr.Validation("price must not be negative")
		}
		if r.SaleType == "" {
			return apperr.Validation("sale_type is required for a sale")
		}
	case model.KindPurchase:
		if r.Cost == nil {
			return apperr.Validation("cost is required for a purchase")
		}
		if r.Cost.IsNegative() {
			return apperr.Validation("cost must not be negative")
		}
	}
	return nil
}

// RecordResult is the persisted transaction and, when one was touched, the
// inventory record as it stands after the change.
type RecordResult struct {
	Transaction *model.Transaction     `json:"transaction"`
	Inventory   *model.InventoryRecord `json:"inventory,omitempty"`
}

type UpdateTransactionRequest struct {
	ProductName *string          `json:"product_name"`
	Category    *string          `json:"category"`
	SaleType    *string          `json:"sale_type"`
	Price       *decimal.Decimal `json:"price" swaggertype:"number"`
	Cost        *decimal.Decimal `json:"cost" swaggertype:"number"`
	Quantity    *int             `json:"quantity"`
	Date        *time.Time       `json:"date"`
}

type TransactionService interface {
	Record(ctx context.Context, ownerID uuid.UUID, req RecordTransactionRequest) (*RecordResult, error)
	List(ctx context.Context, ownerID uuid.UUID, kind string, page, limit int) ([]model.Transaction, int64, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Transaction, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, req UpdateTransactionRequest) (*model.Transaction, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type transactionService struct {
	repo       repository.TransactionRepository
	invRepo    repository.InventoryRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	reconciler *reconciler
	notifier   *stockNotifier
	now        func() time.Time
	log        *zap.Logger
}

func NewTransactionService(
	repo repository.TransactionRepository,
	invRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	c cache.Cache,
	events EventPublisher,
	log *zap.Logger,
) TransactionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &transactionService{
		repo:       repo,
		invRepo:    invRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		reconciler: &reconciler{repo: invRepo, now: time.Now},
		notifier:   newStockNotifier(events, c, log),
		now:        time.Now,
		log:        log,
	}
}

// Record validates and persists one transaction. The transaction row, the
// stock change and the audit entry commit together or not at all.
func (s *transactionService) Record(ctx context.Context, ownerID uuid.UUID, req RecordTransactionRequest) (*RecordResult, error) {
	req.normalize()
	if err := req.validate(ownerID); err != nil {
		if req.Kind == model.KindSale {
			metrics.SaleRejections.WithLabelValues(string(apperr.KindValidation)).Inc()
		}
		return nil, err
	}

	var result *RecordResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		match, err := s.resolve(txCtx, ownerID, req.ProductName, req.Barcode)
		if err != nil {
			return err
		}

		switch req.Kind {
		case model.KindSale:
			result, err = s.recordSale(txCtx, ownerID, req, match)
		case model.KindPurchase:
			result, err = s.recordPurchase(txCtx, ownerID, req, match)
		default:
			result, err = s.recordOther(txCtx, ownerID, req, match)
		}
		if err != nil {
			return err
		}

		return writeAudit(txCtx, s.auditRepo, ownerID, auditAction(req.Kind), result.Transaction.ID.String(), req.ProductName, map[string]interface{}{
			"item_type": req.Kind,
			"quantity":  req.Quantity,
		})
	})
	if err != nil {
		if req.Kind == model.KindSale {
			metrics.SaleRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		}
		return nil, s.fail("record", err)
	}

	metrics.TransactionsRecorded.WithLabelValues(req.Kind).Inc()
	if result.Inventory != nil {
		s.notifier.changed(ctx, ownerID, result.Inventory)
	}
	return result, nil
}

func auditAction(kind string) string {
	switch kind {
	case model.KindSale:
		return model.ActionRecordSale
	case model.KindPurchase:
		return model.ActionRecordPurchase
	}
	return model.ActionRecordOther
}

// resolve finds the record a transaction refers to. A barcode that matches
// wins; the normalized name is only consulted when it matches nothing. More
// than one candidate within the deciding tier is a Conflict. A nil record
// with a nil error means nothing matched.
func (s *transactionService) resolve(ctx context.Context, ownerID uuid.UUID, name, barcode string) (*model.InventoryRecord, error) {
	normalized := model.NormalizeName(name)
	matches, err := s.invRepo.FindMatches(ctx, ownerID, barcode, normalized)
	if err != nil {
		return nil, apperr.FromStore(err, "inventory record")
	}

	var byBarcode, byName []model.InventoryRecord
	for _, m := range matches {
		if barcode != "" && m.Barcode == barcode {
			byBarcode = append(byBarcode, m)
		} else if m.NormalizedName == normalized {
			byName = append(byName, m)
		}
	}

	tier, label := byName, name
	if len(byBarcode) > 0 {
		tier, label = byBarcode, barcode
	}
	switch len(tier) {
	case 0:
		return nil, nil
	case 1:
		return &tier[0], nil
	}
	return nil, apperr.Conflict("ambiguous product match: %d inventory records match %q", len(tier), label)
}

func (s *transactionService) newTransaction(ownerID uuid.UUID, req RecordTransactionRequest, match *model.InventoryRecord) *model.Transaction {
	tx := &model.Transaction{
		OwnerID:         ownerID,
		ProductName:     req.ProductName,
		Barcode:         req.Barcode,
		Category:        req.Category,
		Kind:            req.Kind,
		Quantity:        req.Quantity,
		TransactionDate: s.now().UTC(),
	}
	if req.Date != nil {
		tx.TransactionDate = req.Date.UTC()
	}
	if match != nil {
		id := match.ID
		tx.InventoryID = &id
		if tx.Category == "" {
			tx.Category = match.Category
		}
	}
	if tx.Category == "" {
		tx.Category = model.DefaultTransactionCategory
	}

	switch req.Kind {
	case model.KindSale:
		tx.SaleType = req.SaleType
		tx.Price = req.Price
	case model.KindPurchase:
		tx.Cost = req.Cost
	default:
		tx.Price = req.Price
		tx.Cost = req.Cost
	}
	return tx
}

func (s *transactionService) recordSale(ctx context.Context, ownerID uuid.UUID, req RecordTransactionRequest, match *model.InventoryRecord) (*RecordResult, error) {
	if match == nil {
		return nil, apperr.NotFound("product not in inventory")
	}
	if err := checkStock(match, req.Quantity); err != nil {
		return nil, err
	}

	ok, err := s.invRepo.DecrementStock(ctx, ownerID, match.ID, req.Quantity)
	if err != nil {
		return nil, apperr.FromStore(err, "inventory record")
	}
	if !ok {
		// another sale got there first
		current, err := s.invRepo.FindByID(ctx, ownerID, match.ID)
		if err != nil {
			return nil, apperr.FromStore(err, "inventory record")
		}
		if err := checkStock(current, req.Quantity); err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("stock changed while recording the sale, retry")
	}

	tx := s.newTransaction(ownerID, req, match)
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, apperr.FromStore(err, "transaction")
	}

	rec, err := s.invRepo.FindByID(ctx, ownerID, match.ID)
	if err != nil {
		return nil, apperr.FromStore(err, "inventory record")
	}
	return &RecordResult{Transaction: tx, Inventory: rec}, nil
}

func checkStock(rec *model.InventoryRecord, qty int) error {
	if rec.CurrentStock <= 0 {
		return apperr.OutOfStock(rec.Name)
	}
	if rec.CurrentStock < qty {
		return apperr.InsufficientStock(rec.CurrentStock, qty)
	}
	return nil
}

// recordPurchase feeds the inbound quantity through the reconciler, which
// creates the record when the product is new.
func (s *transactionService) recordPurchase(ctx context.Context, ownerID uuid.UUID, req RecordTransactionRequest, match *model.InventoryRecord) (*RecordResult, error) {
	delta := ReconcileRequest{
		Name:        req.ProductName,
		Barcode:     req.Barcode,
		Quantity:    req.Quantity,
		BuyingPrice: req.Cost,
	}
	if match != nil {
		delta.Name = match.Name
		delta.Barcode = match.Barcode
	} else if req.Category != "" {
		category := req.Category
		delta.Category = &category
	}
	if req.Date != nil {
		date := req.Date.UTC()
		delta.DateBought = &date
	}

	rec, _, err := s.reconciler.apply(ctx, ownerID, delta)
	if err != nil {
		return nil, err
	}

	tx := s.newTransaction(ownerID, req, rec)
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, apperr.FromStore(err, "transaction")
	}
	return &RecordResult{Transaction: tx, Inventory: rec}, nil
}

func (s *transactionService) recordOther(ctx context.Context, ownerID uuid.UUID, req RecordTransactionRequest, match *model.InventoryRecord) (*RecordResult, error) {
	tx := s.newTransaction(ownerID, req, match)
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, apperr.FromStore(err, "transaction")
	}
	return &RecordResult{Transaction: tx}, nil
}

func (s *transactionService) fail(op string, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		s.log.Error("transaction operation failed", zap.String("op", op), zap.Error(err))
		return apperr.Internal("failed to "+op+" transaction", err)
	}
	if e.Kind == apperr.KindInternal {
		s.log.Error("transaction operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (s *transactionService) List(ctx context.Context, ownerID uuid.UUID, kind string, page, limit int) ([]model.Transaction, int64, error) {
	if kind != "" {
		kind = canonicalKind(kind)
		if !model.ValidKind(kind) {
			return nil, 0, apperr.Validation("item_type must be one of Sale, Purchase, Other")
		}
	}
	p := pagination.Clamp(page, limit)
	txs, total, err := s.repo.List(ctx, ownerID, kind, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, s.fail("list", apperr.FromStore(err, "transaction"))
	}
	return txs, total, nil
}

func (s *transactionService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, s.fail("get", apperr.FromStore(err, "transaction"))
	}
	return tx, nil
}

// Update edits the stored transaction only. Inventory is not re-reconciled.
func (s *transactionService) Update(ctx context.Context, ownerID, id uuid.UUID, req UpdateTransactionRequest) (*model.Transaction, error) {
	switch {
	case req.ProductName != nil && strings.TrimSpace(*req.ProductName) == "":
		return nil, apperr.Validation("product_name must not be empty")
	case req.Quantity != nil && *req.Quantity <= 0:
		return nil, apperr.Validation("quantity must be greater than 0")
	case req.Price != nil && req.Price.IsNegative():
		return nil, apperr.Validation("price must not be negative")
	case req.Cost != nil && req.Cost.IsNegative():
		return nil, apperr.Validation("cost must not be negative")
	}

	var tx *model.Transaction
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		tx, err = s.repo.FindByID(txCtx, ownerID, id)
		if err != nil {
			return apperr.FromStore(err, "transaction")
		}

		if req.ProductName != nil {
			tx.ProductName = strings.TrimSpace(*req.ProductName)
		}
		if req.Category != nil {
			tx.Category = strings.TrimSpace(*req.Category)
		}
		if req.SaleType != nil {
			tx.SaleType = strings.TrimSpace(*req.SaleType)
		}
		if req.Price != nil {
			tx.Price = req.Price
		}
		if req.Cost != nil {
			tx.Cost = req.Cost
		}
		if req.Quantity != nil {
			tx.Quantity = *req.Quantity
		}
		if req.Date != nil {
			tx.TransactionDate = req.Date.UTC()
		}

		if err := s.repo.Save(txCtx, tx); err != nil {
			return apperr.FromStore(err, "transaction")
		}
		return writeAudit(txCtx, s.auditRepo, ownerID, model.ActionUpdateTx, tx.ID.String(), tx.ProductName, req)
	})
	if err != nil {
		return nil, s.fail("update", err)
	}
	return tx, nil
}

// Delete removes the transaction without touching inventory.
func (s *transactionService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tx, err := s.repo.FindByID(txCtx, ownerID, id)
		if err != nil {
			return apperr.FromStore(err, "transaction")
		}
		if err := s.repo.Delete(txCtx, ownerID, id); err != nil {
			return apperr.FromStore(err, "transaction")
		}
		return writeAudit(txCtx, s.auditRepo, ownerID, model.ActionDeleteTx, id.String(), tx.ProductName, map[string]string{"item_type": tx.Kind})
	})
	if err != nil {
		return s.fail("delete", err)
	}
	return nil
}
