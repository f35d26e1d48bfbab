package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
	"github.com/roshiend/retail-Link-sub000/internal/variants"
)

// ProductStore persists products together with their options and variants
type ProductStore interface {
	repository.CatalogStore[*models.Product]
	Save(ctx context.Context, scope models.Scope, product *models.Product, graph *repository.ProductGraph) error
}

// ProductPublisher announces product changes
type ProductPublisher interface {
	ImportPublisher
	PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error
	PublishProductUpdated(ctx context.Context, product *models.Product, actorID string) error
	PublishProductDeleted(ctx context.Context, shopID uuid.UUID, productIDs []uuid.UUID, actorID string) error
}

// ProductsHandler serves products. Index, bulk upload and the upload
// template go through the shared catalog handler.
type ProductsHandler struct {
	*CatalogHandler[models.Product, models.ProductForm, *models.Product, *models.ProductForm]
	store   ProductStore
	events  ProductPublisher
	metrics *middleware.Metrics
	logger  *logrus.Entry
}

func NewProductsHandler(store ProductStore, events ProductPublisher, metrics *middleware.Metrics, logger *logrus.Entry) *ProductsHandler {
	if events == nil {
		events = nopPublisher{}
	}
	catalog := NewCatalogHandler[models.Product, models.ProductForm](store, CatalogOptions{
		Entity:  "products",
		Label:   "Product",
		Root:    "product",
		Events:  events,
		Metrics: metrics,
		Logger:  logger,
	})
	return &ProductsHandler{
		CatalogHandler: catalog,
		store:          store,
		events:         events,
		metrics:        metrics,
		logger:         catalog.opts.Logger,
	}
}

// Register mounts the product routes on group
func (h *ProductsHandler) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.CreateProduct)
	group.POST("/bulk_upload", h.BulkUpload)
	group.GET("/bulk_upload/template", h.Template)
	group.POST("/bulk_delete", h.BulkDeleteProducts)
	group.POST("/variants/preview", h.PreviewVariants)
	group.GET("/:id", h.GetProduct)
	group.GET("/:id/variants", h.GetVariants)
	group.PUT("/:id", h.UpdateProduct)
	group.PATCH("/:id", h.UpdateProduct)
	group.DELETE("/:id", h.DeleteProduct)
}

// GetProduct returns a product with its options and variants
// @Summary Get product
// @Tags Products
// @Produce json
// @Param shop_id path string true "Shop ID"
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} map[string]string
// @Router /shops/{shop_id}/products/{id} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	scope, ok := ShopScope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Product")
	if !ok {
		return
	}
	product, err := h.store.Get(c.Request.Context(), scope, id)
	if err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// CreateProduct creates a product with its options and variants
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Param shop_id path string true "Shop ID"
// @Param product body models.ProductForm true "Product data"
// @Success 201 {object} models.Product
// @Failure 422 {object} map[string][]string
// @Router /shops/{shop_id}/products [post]
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	scope, ok := ShopScope(c)
	if !ok {
		return
	}
	var form models.ProductForm
	if err := decodeForm(c, "product", &form); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if errs := form.Validate(true); len(errs) > 0 {
		respondErrors(c, errs)
		return
	}

	product := &models.Product{}
	form.ApplyTo(product, true)
	graph, msg := productGraph(&form, nil)
	if msg != "" {
		respondErrors(c, []string{msg})
		return
	}
	if err := h.store.Save(c.Request.Context(), scope, product, graph); err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}

	if err := h.events.PublishProductCreated(c.Request.Context(), product, actorID(c)); err != nil {
		h.logger.WithError(err).Warn("Failed to publish product.created event")
	}
	c.JSON(http.StatusCreated, gin.H{"data": product})
}

// UpdateProduct updates a product. Submitting option_types_attributes
// replaces the options; variants are then taken from variants_attributes or,
// when absent, reconciled from the stored ones.
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	scope, ok := ShopScope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Product")
	if !ok {
		return
	}
	product, err := h.store.Get(c.Request.Context(), scope, id)
	if err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}

	var form models.ProductForm
	if err := decodeForm(c, "product", &form); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if errs := form.Validate(false); len(errs) > 0 {
		respondErrors(c, errs)
		return
	}

	form.ApplyTo(product, false)
	graph, msg := productGraph(&form, product)
	if msg != "" {
		respondErrors(c, []string{msg})
		return
	}
	if err := h.store.Save(c.Request.Context(), scope, product, graph); err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}

	if err := h.events.PublishProductUpdated(c.Request.Context(), product, actorID(c)); err != nil {
		h.logger.WithError(err).Warn("Failed to publish product.updated event")
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// DeleteProduct soft-deletes a product and its variants
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	scope, ok := ShopScope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Product")
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), scope, id); err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}
	if err := h.events.PublishProductDeleted(c.Request.Context(), scope.ShopID, []uuid.UUID{id}, actorID(c)); err != nil {
		h.logger.WithError(err).Warn("Failed to publish product.deleted event")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// BulkDeleteProducts removes the listed products of the shop
func (h *ProductsHandler) BulkDeleteProducts(c *gin.Context) {
	scope, ok := ShopScope(c)
	if !ok {
		return
	}
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	ids := parseIDs(req.IDs)
	deleted, err := h.store.BulkDelete(c.Request.Context(), scope, ids)
	if err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}
	if deleted > 0 {
		if err := h.events.PublishProductDeleted(c.Request.Context(), scope.ShopID, ids, actorID(c)); err != nil {
			h.logger.WithError(err).Warn("Failed to publish product.deleted event")
		}
	}
	c.JSON(http.StatusOK, models.BulkDeleteResponse{DeletedCount: deleted})
}

// GetVariants lists a product's variants with its options and unused values
func (h *ProductsHandler) GetVariants(c *gin.Context) {
	scope, ok := ShopScope(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Product")
	if !ok {
		return
	}
	product, err := h.store.Get(c.Request.Context(), scope, id)
	if err != nil {
		respondStoreError(c, h.logger, err, "Product")
		return
	}
	options := product.VariantOptions()
	c.JSON(http.StatusOK, gin.H{
		"data":    product.Variants,
		"options": options,
		"unused":  emptyUnused(variants.DetectUnused(options, product.EditorVariants())),
	})
}

// PreviewVariants runs the variant manager over the posted form state and
// returns the reconciled variant table without saving anything.
// @Summary Preview variants
// @Tags Products
// @Accept json
// @Produce json
// @Param shop_id path string true "Shop ID"
// @Param state body models.VariantsPreviewRequest true "Variant manager state"
// @Success 200 {object} models.VariantsPreviewResponse
// @Failure 422 {object} map[string]string
// @Router /shops/{shop_id}/products/variants/preview [post]
func (h *ProductsHandler) PreviewVariants(c *gin.Context) {
	var req models.VariantsPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := variants.ValidateOptions(req.Options); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	editor := variants.NewEditor(req.Options, withDeleted(req.Variants, req.DeletedIDs))
	if len(req.Add) > 0 {
		if _, err := editor.AddVariant(req.Add); err != nil {
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	combinations := variants.CountCombinations(req.Options)
	if h.metrics != nil {
		h.metrics.VariantsPreview.Observe(float64(combinations))
	}

	live := editor.Variants()
	if live == nil {
		live = []variants.Variant{}
	}
	c.JSON(http.StatusOK, models.VariantsPreviewResponse{
		Variants:     live,
		Unused:       emptyUnused(editor.Unused()),
		DeletedIDs:   deletedIDs(editor),
		Combinations: combinations,
	})
}

// productGraph works out the options and variants to save. It returns nil
// when the payload leaves them alone, and a message when the result is
// invalid.
func productGraph(form *models.ProductForm, existing *models.Product) (*repository.ProductGraph, string) {
	if !form.NestedAttributes() {
		return nil, ""
	}

	var options []variants.Option
	var current []variants.Variant
	if existing != nil {
		options = existing.VariantOptions()
		current = existing.EditorVariants()
	}
	if form.OptionTypesAttributes != nil {
		options = form.Options()
	}

	var list []variants.Variant
	if form.VariantsAttributes != nil {
		list = form.Variants(options)
	} else {
		list = variants.Reconcile(options, current, nil)
	}
	if msg := models.VariantsError(options, list); msg != "" {
		return nil, msg
	}
	return &repository.ProductGraph{Options: options, Variants: list}, ""
}

// withDeleted turns the ids of previously deleted variants back into deleted
// entries the editor understands. Synthesized ids carry their combination.
func withDeleted(list []variants.Variant, ids []string) []variants.Variant {
	out := append([]variants.Variant(nil), list...)
	for _, id := range ids {
		v := variants.Variant{ID: id, IsDeleted: true}
		if key, ok := variants.ParseID(id); ok {
			v.Options = key.Pairs()
		}
		out = append(out, v)
	}
	return out
}

func deletedIDs(editor *variants.Editor) []string {
	ids := []string{}
	seen := make(map[string]struct{})
	for _, id := range editor.DeletedIDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	var synthesized []string
	for key := range editor.Deleted() {
		synthesized = append(synthesized, key.ID())
	}
	sort.Strings(synthesized)
	return append(ids, synthesized...)
}

func emptyUnused(u variants.UnusedValues) variants.UnusedValues {
	if u == nil {
		return variants.UnusedValues{}
	}
	return u
}

type nopPublisher struct{}

func (nopPublisher) PublishImportCompleted(context.Context, uuid.UUID, string, *importer.Report, string) error {
	return nil
}
func (nopPublisher) PublishProductCreated(context.Context, *models.Product, string) error { return nil }
func (nopPublisher) PublishProductUpdated(context.Context, *models.Product, string) error { return nil }
func (nopPublisher) PublishProductDeleted(context.Context, uuid.UUID, []uuid.UUID, string) error {
	return nil
}
