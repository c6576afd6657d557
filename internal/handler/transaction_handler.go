package handler

import (
	"net/http"

	"smartsahuji/internal/service"
	"smartsahuji/pkg/pagination"
	"smartsahuji/pkg/response"
	"smartsahuji/pkg/scratch"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	transactionService service.TransactionService
	importService      service.ImportService
	uploads            *uploader
	log                *zap.Logger
}

func NewTransactionHandler(transactionService service.TransactionService, importService service.ImportService, dir *scratch.Dir, maxUpload int64, log *zap.Logger) *TransactionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionHandler{
		transactionService: transactionService,
		importService:      importService,
		uploads:            &uploader{dir: dir, maxBytes: maxUpload},
		log:                log,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	txs := router.Group("/transactions")
	{
		txs.POST("", h.Record)
		txs.GET("", h.List)
		txs.POST("/upload", h.Upload)
		txs.GET("/:id", h.Get)
		txs.PUT("/:id", h.Update)
		txs.DELETE("/:id", h.Delete)
	}
}

// Record stores a sale, purchase or other transaction and applies its stock change
// @Summary      Record transaction
// @Description  Sales are checked against current stock; purchases add stock and create the record if needed
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordTransactionRequest  true  "Transaction"
// @Success      201      {object}  response.Response{data=service.RecordResult}
// @Failure      400      {object}  response.Response{data=StockError}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/transactions [post]
func (h *TransactionHandler) Record(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.transactionService.Record(c.Request.Context(), p.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// List returns the caller's transactions, newest first
// @Summary      List transactions
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        item_type  query     string  false  "Sale, Purchase or Other"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=pagination.Page}
// @Failure      400        {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pg := pagination.FromQuery(c)

	txs, total, err := h.transactionService.List(c.Request.Context(), p.UserID, c.Query("item_type"), pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Of(txs, total)))
}

// Upload bulk records transactions from a spreadsheet
// @Summary      Import transactions
// @Tags         transactions
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Spreadsheet (.xlsx or .csv)"
// @Success      200   {object}  response.Response{data=service.ImportResult}
// @Failure      400   {object}  response.Response
// @Router       /api/transactions/upload [post]
func (h *TransactionHandler) Upload(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	path, cleanup, ok := h.uploads.receive(c, h.log)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.importService.ImportTransactionsFile(c.Request.Context(), p.UserID, path)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Get returns one transaction
// @Summary      Get transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response{data=model.Transaction}
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	tx, err := h.transactionService.Get(c.Request.Context(), p.UserID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tx))
}

// Update edits a stored transaction without touching inventory
// @Summary      Update transaction
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Transaction ID"
// @Param        payload  body      service.UpdateTransactionRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	tx, err := h.transactionService.Update(c.Request.Context(), p.UserID, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tx))
}

// Delete removes a transaction without touching inventory
// @Summary      Delete transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.transactionService.Delete(c.Request.Context(), p.UserID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Transaction deleted successfully"))
}
