package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

// ImportPublisher announces finished bulk uploads
type ImportPublisher interface {
	PublishImportCompleted(ctx context.Context, shopID uuid.UUID, entity string, report *importer.Report, actorID string) error
}

// CatalogOptions describe one catalog resource
type CatalogOptions struct {
	Entity  string // route segment and template name, e.g. "vendors"
	Label   string // human name, e.g. "Vendor"
	Root    string // JSON root key, e.g. "vendor"
	IDParam string // route parameter of the row id, "id" by default
	Events  ImportPublisher
	Metrics *middleware.Metrics
	Logger  *logrus.Entry
}

// ScopeFunc resolves the request scope or writes an error response
type ScopeFunc func(c *gin.Context) (models.Scope, bool)

// RowScopeFunc builds the scope resolver used for upload rows
type RowScopeFunc func(c *gin.Context, scope models.Scope) repository.ScopeResolver

// CatalogHandler serves CRUD, bulk upload and bulk delete for one catalog
// entity. T is the model, F its form.
type CatalogHandler[T any, F any, P interface {
	*T
	models.CatalogEntity
}, FP interface {
	*F
	models.Form[P]
}] struct {
	store    repository.CatalogStore[P]
	opts     CatalogOptions
	scope    ScopeFunc
	rowScope RowScopeFunc
}

func NewCatalogHandler[T any, F any, P interface {
	*T
	models.CatalogEntity
}, FP interface {
	*F
	models.Form[P]
}](store repository.CatalogStore[P], opts CatalogOptions) *CatalogHandler[T, F, P, FP] {
	if opts.IDParam == "" {
		opts.IDParam = "id"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CatalogHandler[T, F, P, FP]{
		store: store,
		opts:  opts,
		scope: ShopScope,
		rowScope: func(_ *gin.Context, scope models.Scope) repository.ScopeResolver {
			return repository.FixedScope(scope)
		},
	}
}

// WithScope replaces how the request scope is resolved
func (h *CatalogHandler[T, F, P, FP]) WithScope(fn ScopeFunc) *CatalogHandler[T, F, P, FP] {
	h.scope = fn
	return h
}

// WithRowScope replaces how upload rows are scoped
func (h *CatalogHandler[T, F, P, FP]) WithRowScope(fn RowScopeFunc) *CatalogHandler[T, F, P, FP] {
	h.rowScope = fn
	return h
}

// ShopScope scopes a request to the shop checked by middleware.ShopScope
func ShopScope(c *gin.Context) (models.Scope, bool) {
	shopID := middleware.GetShopID(c)
	if shopID == uuid.Nil {
		respondError(c, http.StatusForbidden, "You do not have access to this shop")
		return models.Scope{}, false
	}
	return models.Scope{ShopID: shopID}, true
}

// CategoryScope scopes a request to the :category_id of the shop
func CategoryScope(categories repository.CatalogStore[*models.Category], logger *logrus.Entry) ScopeFunc {
	return func(c *gin.Context) (models.Scope, bool) {
		scope, ok := ShopScope(c)
		if !ok {
			return scope, false
		}
		categoryID, ok := paramID(c, "category_id", "Category")
		if !ok {
			return scope, false
		}
		if _, err := categories.Get(c.Request.Context(), scope, categoryID); err != nil {
			respondStoreError(c, logger, err, "Category")
			return scope, false
		}
		scope.CategoryID = &categoryID
		return scope, true
	}
}

// Register mounts the resource routes on group. Categories name their id
// parameter category_id so nested subcategory routes can share the prefix.
func (h *CatalogHandler[T, F, P, FP]) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.POST("/bulk_upload", h.BulkUpload)
	group.GET("/bulk_upload/template", h.Template)
	group.POST("/bulk_delete", h.BulkDelete)
	item := "/:" + h.opts.IDParam
	group.GET(item, h.Get)
	group.PUT(item, h.Update)
	group.PATCH(item, h.Update)
	group.DELETE(item, h.Delete)
}

// List returns one page of rows
func (h *CatalogHandler[T, F, P, FP]) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var params models.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	params.Normalize()

	items, total, err := h.store.List(c.Request.Context(), scope, params)
	if err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       items,
		"pagination": models.NewPaginationInfo(params, total),
	})
}

// Get returns a single row
func (h *CatalogHandler[T, F, P, FP]) Get(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, h.opts.IDParam, h.opts.Label)
	if !ok {
		return
	}
	entity, err := h.store.Get(c.Request.Context(), scope, id)
	if err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entity})
}

// Create inserts a row from the request form
func (h *CatalogHandler[T, F, P, FP]) Create(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	form := FP(new(F))
	if err := decodeForm(c, h.opts.Root, form); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if errs := form.Validate(true); len(errs) > 0 {
		respondErrors(c, errs)
		return
	}

	entity := P(new(T))
	form.ApplyTo(entity, true)
	if err := h.store.Create(c.Request.Context(), scope, entity); err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": entity})
}

// Update applies the request form to an existing row
func (h *CatalogHandler[T, F, P, FP]) Update(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, h.opts.IDParam, h.opts.Label)
	if !ok {
		return
	}
	entity, err := h.store.Get(c.Request.Context(), scope, id)
	if err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}

	form := FP(new(F))
	if err := decodeForm(c, h.opts.Root, form); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if errs := form.Validate(false); len(errs) > 0 {
		respondErrors(c, errs)
		return
	}

	form.ApplyTo(entity, false)
	if err := h.store.Update(c.Request.Context(), scope, entity); err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entity})
}

// Delete soft-deletes a row
func (h *CatalogHandler[T, F, P, FP]) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, h.opts.IDParam, h.opts.Label)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), scope, id); err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s deleted successfully", h.opts.Label)})
}

// BulkDelete removes the listed rows of the scope
func (h *CatalogHandler[T, F, P, FP]) BulkDelete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	deleted, err := h.store.BulkDelete(c.Request.Context(), scope, parseIDs(req.IDs))
	if err != nil {
		respondStoreError(c, h.opts.Logger, err, h.opts.Label)
		return
	}
	c.JSON(http.StatusOK, models.BulkDeleteResponse{DeletedCount: deleted})
}

// BulkUpload upserts every row of an uploaded CSV or XLSX file. Rows are
// written one by one; failures are reported per row with status 206.
func (h *CatalogHandler[T, F, P, FP]) BulkUpload(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	upserter := repository.NewCatalogUpserter[T, F, P, FP](h.store, h.rowScope(c, scope))
	runUpload(c, uploadJob{
		entity:   h.opts.Entity,
		shopID:   scope.ShopID,
		upserter: upserter,
		events:   h.opts.Events,
		metrics:  h.opts.Metrics,
		logger:   h.opts.Logger,
	})
}

// Template serves the upload columns as json, csv or xlsx
func (h *CatalogHandler[T, F, P, FP]) Template(c *gin.Context) {
	serveTemplate(c, h.opts.Entity)
}

type uploadJob struct {
	entity   string
	shopID   uuid.UUID
	upserter importer.Upserter
	events   ImportPublisher
	metrics  *middleware.Metrics
	logger   *logrus.Entry
}

func runUpload(c *gin.Context, job uploadJob) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Please upload a CSV or XLSX file")
		return
	}
	defer file.Close()

	rows, err := importer.ReadRows(header.Filename, file)
	switch {
	case errors.Is(err, importer.ErrUnsupportedFormat):
		respondError(c, http.StatusUnprocessableEntity, "Only CSV and XLSX files are supported")
		return
	case err != nil:
		respondError(c, http.StatusUnprocessableEntity, "Invalid CSV file: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	report := importer.Run(ctx, rows, job.upserter)

	if job.metrics != nil {
		for _, o := range report.Outcomes {
			job.metrics.ImportRows.WithLabelValues(job.entity, string(o.Result)).Inc()
		}
	}
	job.logger.WithFields(logrus.Fields{
		"entity":  job.entity,
		"shop_id": job.shopID.String(),
		"total":   report.TotalRows,
		"created": report.CreatedCount,
		"updated": report.UpdatedCount,
		"failed":  report.FailedCount,
	}).Info("Bulk upload processed")

	if job.events != nil {
		if err := job.events.PublishImportCompleted(ctx, job.shopID, job.entity, report, actorID(c)); err != nil {
			job.logger.WithError(err).Warn("Failed to publish import.completed event")
		}
	}

	c.JSON(report.Status(), report)
}

func serveTemplate(c *gin.Context, entity string) {
	tmpl, ok := importer.TemplateFor(entity)
	if !ok {
		respondError(c, http.StatusNotFound, "Template not found")
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "csv":
		var buf bytes.Buffer
		if err := tmpl.WriteCSV(&buf); err != nil {
			respondError(c, http.StatusInternalServerError, internalError)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_template.csv", entity))
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := tmpl.WriteXLSX(&buf); err != nil {
			respondError(c, http.StatusInternalServerError, internalError)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_template.xlsx", entity))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		c.JSON(http.StatusOK, gin.H{"template": tmpl})
	}
}
