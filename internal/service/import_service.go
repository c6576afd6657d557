package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/metrics"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"
	"smartsahuji/internal/spreadsheet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Export formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// ExportHeaders is the column order of an inventory export. The importer
// understands every one of them.
var ExportHeaders = []string{
	"Name", "Company", "Barcode", "BuyingPrice", "SellingPrice", "QuantityBought",
	"CurrentStock", "LastBoughtQty", "Category", "DateBought", "Status",
	"SupplierName", "SupplierContact", "MinStock", "ReorderQty", "Description",
}

// Header aliases, already in normalized form.
var (
	colName            = []string{"name", "productname", "product", "itemname", "item"}
	colBarcode         = []string{"barcode", "sku"}
	colQuantity        = []string{"quantitybought", "quantity", "qty"}
	colCompany         = []string{"company", "brand"}
	colCategory        = []string{"category", "itemtype", "type"}
	colBuyingPrice     = []string{"buyingprice", "costprice", "cost", "unitcost"}
	colSellingPrice    = []string{"sellingprice", "price", "mrp", "unitprice"}
	colCurrentStock    = []string{"currentstock", "stock"}
	colDate            = []string{"datebought", "date"}
	colStatus          = []string{"status"}
	colMinStock        = []string{"minstock"}
	colReorderQty      = []string{"reorderqty", "reorderquantity"}
	colDescription     = []string{"description"}
	colSupplierName    = []string{"suppliername"}
	colSupplierContact = []string{"suppliercontact"}

	colTxKind     = []string{"itemtype", "kind", "transactiontype"}
	colTxCategory = []string{"category"}
	colSaleType   = []string{"saletype"}
	colTxPrice    = []string{"price", "unitprice", "sellingprice"}
	colTxCost     = []string{"cost", "unitcost", "buyingprice"}
	colTxDate     = []string{"date", "transactiondate"}
)

const defaultSaleType = "Retail"

var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339, "2006-01-02 15:04:05"}

// RowError reports a row that was not imported. Row is the 1-based line in
// the spreadsheet, so the first data row is 2.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Count  int        `json:"count"`
	Errors []RowError `json:"errors"`
}

type ImportService interface {
	ImportInventoryFile(ctx context.Context, ownerID uuid.UUID, path string) (*ImportResult, error)
	ImportInventory(ctx context.Context, ownerID uuid.UUID, rows []spreadsheet.Row) (*ImportResult, error)
	ImportTransactionsFile(ctx context.Context, ownerID uuid.UUID, path string) (*ImportResult, error)
	ImportTransactions(ctx context.Context, ownerID uuid.UUID, rows []spreadsheet.Row) (*ImportResult, error)
	ExportInventory(ctx context.Context, ownerID uuid.UUID, format string, w io.Writer) error
}

type importService struct {
	inventory    InventoryService
	transactions TransactionService
	invRepo      repository.InventoryRepository
	auditRepo    repository.AuditRepository
	notifier     *stockNotifier
	log          *zap.Logger
}

func NewImportService(
	inventory InventoryService,
	transactions TransactionService,
	invRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	events EventPublisher,
	log *zap.Logger,
) ImportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &importService{
		inventory:    inventory,
		transactions: transactions,
		invRepo:      invRepo,
		auditRepo:    auditRepo,
		notifier:     newStockNotifier(events, nil, log),
		log:          log,
	}
}

func readRows(path string) ([]spreadsheet.Row, error) {
	rows, err := spreadsheet.ReadFile(path)
	if err != nil {
		return nil, apperr.Validation("could not read spreadsheet: %v", err)
	}
	return rows, nil
}

func (s *importService) ImportInventoryFile(ctx context.Context, ownerID uuid.UUID, path string) (*ImportResult, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return s.ImportInventory(ctx, ownerID, rows)
}

func (s *importService) ImportTransactionsFile(ctx context.Context, ownerID uuid.UUID, path string) (*ImportResult, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return s.ImportTransactions(ctx, ownerID, rows)
}

// ImportInventory reconciles rows one by one. A failing row is reported and
// the rest carry on; re-importing the same rows adds their quantities again.
func (s *importService) ImportInventory(ctx context.Context, ownerID uuid.UUID, rows []spreadsheet.Row) (*ImportResult, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.Validation("owner is required")
	}

	res := &ImportResult{Errors: []RowError{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, reason := inventoryRow(row)
		if reason != "" {
			res.Errors = append(res.Errors, RowError{Row: row.Line, Reason: reason})
			metrics.ImportRows.WithLabelValues("inventory", "skipped").Inc()
			continue
		}
		if _, err := s.inventory.Reconcile(ctx, ownerID, req); err != nil {
			res.Errors = append(res.Errors, RowError{Row: row.Line, Reason: rowReason(err)})
			metrics.ImportRows.WithLabelValues("inventory", "failed").Inc()
			continue
		}
		res.Count++
		metrics.ImportRows.WithLabelValues("inventory", "ok").Inc()
	}

	s.finish(ctx, ownerID, model.ActionImportInventory, res)
	return res, nil
}

// ImportTransactions records rows through the transaction recorder with the
// same per-row semantics as ImportInventory.
func (s *importService) ImportTransactions(ctx context.Context, ownerID uuid.UUID, rows []spreadsheet.Row) (*ImportResult, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.Validation("owner is required")
	}

	res := &ImportResult{Errors: []RowError{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, reason := transactionRow(row)
		if reason != "" {
			res.Errors = append(res.Errors, RowError{Row: row.Line, Reason: reason})
			metrics.ImportRows.WithLabelValues("transactions", "skipped").Inc()
			continue
		}
		if _, err := s.transactions.Record(ctx, ownerID, req); err != nil {
			res.Errors = append(res.Errors, RowError{Row: row.Line, Reason: rowReason(err)})
			metrics.ImportRows.WithLabelValues("transactions", "failed").Inc()
			continue
		}
		res.Count++
		metrics.ImportRows.WithLabelValues("transactions", "ok").Inc()
	}

	s.finish(ctx, ownerID, model.ActionImportTx, res)
	return res, nil
}

// finish records a summary audit entry and tells clients to reload.
func (s *importService) finish(ctx context.Context, ownerID uuid.UUID, action string, res *ImportResult) {
	if err := writeAudit(ctx, s.auditRepo, ownerID, action, "", "", map[string]int{
		"imported": res.Count,
		"failed":   len(res.Errors),
	}); err != nil {
		s.log.Warn("failed to audit import", zap.Stringer("owner_id", ownerID), zap.Error(err))
	}
	s.notifier.publish(ownerID, EventInventoryImported, res)
	s.log.Info("import finished",
		zap.Stringer("owner_id", ownerID),
		zap.String("action", action),
		zap.Int("imported", res.Count),
		zap.Int("failed", len(res.Errors)),
	)
}

// rowReason keeps internal failures out of the response.
func rowReason(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		return "internal error"
	}
	return e.Message
}

func inventoryRow(row spreadsheet.Row) (ReconcileRequest, string) {
	req := ReconcileRequest{
		Name:    row.Get(colName...),
		Barcode: row.Get(colBarcode...),
	}
	if req.Name == "" {
		return req, "missing product name"
	}
	req.Quantity, _ = parseInt(row.Get(colQuantity...))
	if req.Quantity < 0 {
		return req, "quantity must not be negative"
	}

	req.Company = optString(row, colCompany)
	req.Category = optString(row, colCategory)
	req.Status = optString(row, colStatus)
	req.SupplierName = optString(row, colSupplierName)
	req.SupplierContact = optString(row, colSupplierContact)
	req.Description = optString(row, colDescription)
	req.BuyingPrice = optDecimal(row, colBuyingPrice)
	req.SellingPrice = optDecimal(row, colSellingPrice)
	req.CurrentStock = optInt(row, colCurrentStock)
	req.MinStock = optInt(row, colMinStock)
	req.ReorderQty = optInt(row, colReorderQty)
	req.DateBought = optDate(row, colDate)
	return req, ""
}

func transactionRow(row spreadsheet.Row) (RecordTransactionRequest, string) {
	req := RecordTransactionRequest{
		ProductName: row.Get(colName...),
		Barcode:     row.Get(colBarcode...),
		Category:    row.Get(colTxCategory...),
		Kind:        canonicalKind(row.Get(colTxKind...)),
		SaleType:    row.Get(colSaleType...),
		Price:       optDecimal(row, colTxPrice),
		Cost:        optDecimal(row, colTxCost),
		Date:        optDate(row, colTxDate),
	}
	if req.ProductName == "" {
		return req, "missing product name"
	}
	if req.Kind == "" {
		req.Kind = model.KindOther
	}
	if req.Kind == model.KindSale && req.SaleType == "" {
		req.SaleType = defaultSaleType
	}
	req.Quantity, _ = parseInt(row.Get(colQuantity...))
	return req, ""
}

func cleanNumber(v string) string {
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, "₹", "")
	return strings.TrimSpace(v)
}

func optString(row spreadsheet.Row, cols []string) *string {
	v := row.Get(cols...)
	if v == "" {
		return nil
	}
	return &v
}

func optInt(row spreadsheet.Row, cols []string) *int {
	n, ok := parseInt(row.Get(cols...))
	if !ok {
		return nil
	}
	return &n
}

// parseInt also takes "12.0", which spreadsheets that store every number as
// a float produce.
func parseInt(v string) (int, bool) {
	v = cleanNumber(v)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

func optDecimal(row spreadsheet.Row, cols []string) *decimal.Decimal {
	v := cleanNumber(row.Get(cols...))
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil
	}
	return &d
}

func optDate(row spreadsheet.Row, cols []string) *time.Time {
	v := row.Get(cols...)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// ExportInventory writes every record of the owner in the requested format.
func (s *importService) ExportInventory(ctx context.Context, ownerID uuid.UUID, format string, w io.Writer) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return apperr.Validation("format must be xlsx or csv")
	}

	recs, err := s.invRepo.ListAll(ctx, ownerID)
	if err != nil {
		s.log.Error("failed to load inventory for export", zap.Stringer("owner_id", ownerID), zap.Error(err))
		return apperr.Internal("failed to export inventory", err)
	}

	rows := make([][]string, 0, len(recs))
	for i := range recs {
		rows = append(rows, exportRow(&recs[i]))
	}

	if format == FormatCSV {
		err = spreadsheet.WriteCSV(w, ExportHeaders, rows)
	} else {
		err = spreadsheet.WriteXLSX(w, "Inventory", ExportHeaders, rows)
	}
	if err != nil {
		return apperr.Internal("failed to export inventory", err)
	}
	return nil
}

func exportRow(r *model.InventoryRecord) []string {
	return []string{
		r.Name,
		r.Company,
		r.Barcode,
		r.BuyingPrice.StringFixed(2),
		r.SellingPrice.StringFixed(2),
		strconv.Itoa(r.QuantityBought),
		strconv.Itoa(r.CurrentStock),
		strconv.Itoa(r.LastBoughtQty),
		r.Category,
		r.DateBought.UTC().Format("2006-01-02"),
		r.Status,
		r.SupplierName,
		r.SupplierContact,
		strconv.Itoa(r.MinStock),
		strconv.Itoa(r.ReorderQty),
		r.Description,
	}
}
