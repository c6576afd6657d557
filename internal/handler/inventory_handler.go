package handler

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/service"
	"smartsahuji/pkg/pagination"
	"smartsahuji/pkg/response"
	"smartsahuji/pkg/scratch"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	importService    service.ImportService
	uploads          *uploader
	log              *zap.Logger
}

func NewInventoryHandler(inventoryService service.InventoryService, importService service.ImportService, dir *scratch.Dir, maxUpload int64, log *zap.Logger) *InventoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryHandler{
		inventoryService: inventoryService,
		importService:    importService,
		uploads:          &uploader{dir: dir, maxBytes: maxUpload},
		log:              log,
	}
}

// RegisterRoutes expects router to already require authentication.
func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/inventory")
	{
		inventory.POST("", h.Reconcile)
		inventory.GET("", h.List)
		inventory.GET("/search", h.Search)
		inventory.GET("/autofill", h.Autofill)
		inventory.GET("/low-stock", h.LowStock)
		inventory.GET("/export", h.Export)
		inventory.POST("/upload", h.Upload)
		inventory.GET("/:id", h.Get)
		inventory.PUT("/:id", h.Update)
		inventory.DELETE("/:id", h.Delete)
	}
}

// Reconcile adds stock to an inventory record, creating it if needed
// @Summary      Add stock
// @Description  Merges the quantity into the record with the same barcode (or name), or creates it
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ReconcileRequest  true  "Stock to add"
// @Success      200      {object}  response.Response{data=model.InventoryRecord}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rec, err := h.inventoryService.Reconcile(c.Request.Context(), p.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// List handles retrieving the caller's inventory
// @Summary      List inventory
// @Description  Retrieves a paginated list of the caller's records, newest purchase first
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pg := pagination.FromQuery(c)

	recs, total, err := h.inventoryService.List(c.Request.Context(), p.UserID, pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Of(recs, total)))
}

// Search matches name, company or category case-insensitively
// @Summary      Search inventory
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        query   query     string  true   "Search text"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Failure      400    {object}  response.Response
// @Router       /api/inventory/search [get]
func (h *InventoryHandler) Search(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pg := pagination.FromQuery(c)

	recs, total, err := h.inventoryService.Search(c.Request.Context(), p.UserID, c.Query("query"), pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Of(recs, total)))
}

// Autofill looks a record up by exact barcode or name
// @Summary      Autofill product
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        name     query     string  false  "Product name"
// @Param        barcode  query     string  false  "Barcode or SKU"
// @Success      200      {object}  response.Response{data=model.InventoryRecord}
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/autofill [get]
func (h *InventoryHandler) Autofill(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	rec, err := h.inventoryService.Autofill(c.Request.Context(), p.UserID, c.Query("name"), c.Query("barcode"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// LowStock lists records at or below their minimum stock
// @Summary      Low stock
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.InventoryRecord}
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	recs, err := h.inventoryService.LowStock(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, recs))
}

// Export downloads the caller's inventory as a spreadsheet
// @Summary      Export inventory
// @Tags         inventory
// @Security     BearerAuth
// @Produce      application/octet-stream
// @Param        format  query     string  false  "xlsx (default) or csv"
// @Success      200
// @Failure      400     {object}  response.Response
// @Router       /api/inventory/export [get]
func (h *InventoryHandler) Export(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", service.FormatXLSX)))
	if format != service.FormatXLSX && format != service.FormatCSV {
		badRequest(c, "format must be xlsx or csv")
		return
	}

	path, cleanup, err := h.uploads.dir.Path("export", "inventory."+format)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to prepare export", err))
		return
	}
	defer cleanup()

	f, err := os.Create(path)
	if err != nil {
		respondError(c, h.log, apperr.Internal("failed to prepare export", err))
		return
	}
	err = h.importService.ExportInventory(c.Request.Context(), p.UserID, format, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = apperr.Internal("failed to write export", cerr)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.FileAttachment(path, fmt.Sprintf("inventory-%s.%s", time.Now().UTC().Format("20060102"), format))
}

// Upload bulk imports an XLSX or CSV file
// @Summary      Import inventory
// @Description  Reconciles every row; rows that fail are reported in errors and the rest are kept
// @Tags         inventory
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Spreadsheet (.xlsx or .csv)"
// @Success      200   {object}  response.Response{data=service.ImportResult}
// @Failure      400   {object}  response.Response
// @Router       /api/inventory/upload [post]
func (h *InventoryHandler) Upload(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	path, cleanup, ok := h.uploads.receive(c, h.log)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.importService.ImportInventoryFile(c.Request.Context(), p.UserID, path)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Get returns a single record
// @Summary      Get inventory record
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=model.InventoryRecord}
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.inventoryService.Get(c.Request.Context(), p.UserID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Update edits a record; quantities are set, not added
// @Summary      Update inventory record
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Record ID"
// @Param        payload  body      service.UpdateInventoryRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.InventoryRecord}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/inventory/{id} [put]
func (h *InventoryHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rec, err := h.inventoryService.Update(c.Request.Context(), p.UserID, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Delete removes a record
// @Summary      Delete inventory record
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.inventoryService.Delete(c.Request.Context(), p.UserID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Inventory record deleted successfully"))
}
