package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

type vendorFixture struct {
	store   *MockCatalogStore[*models.Vendor]
	events  *MockPublisher
	metrics *middleware.Metrics
	session *middleware.Session
	scope   models.Scope
	base    string
	router  http.Handler
}

func newVendorFixture() *vendorFixture {
	f := &vendorFixture{
		store:   &MockCatalogStore[*models.Vendor]{},
		events:  &MockPublisher{},
		metrics: middleware.NewMetrics("test"),
		session: ownerSession(),
	}
	f.scope = models.Scope{ShopID: f.session.ShopID}
	f.base = "/shops/" + f.session.ShopID.String() + "/vendors"

	r := setupTestRouter(f.session)
	NewCatalogHandler[models.Vendor, models.VendorForm](f.store, CatalogOptions{
		Entity:  importer.EntityVendors,
		Label:   "Vendor",
		Root:    "vendor",
		Events:  f.events,
		Metrics: f.metrics,
		Logger:  testLogger,
	}).Register(r.Group("/shops/:shop_id/vendors"))
	f.router = r
	return f
}

func vendor(scope models.Scope, name string) *models.Vendor {
	return &models.Vendor{CatalogFields: models.CatalogFields{
		ID:     uuid.New(),
		ShopID: scope.ShopID,
		Name:   name,
		Active: true,
		Code:   "VEN-0001",
	}}
}

func TestCatalogList_Paginates(t *testing.T) {
	f := newVendorFixture()
	params := models.ListParams{Page: 2, PerPage: 10, Query: "ac"}
	f.store.On("List", mock.Anything, f.scope, params).
		Return([]*models.Vendor{vendor(f.scope, "Acme")}, int64(12), nil)

	w := doJSON(f.router, http.MethodGet, f.base+"?page=2&per_page=10&q=ac", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["data"], 1)
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(12), pagination["total"])
	assert.Equal(t, float64(2), pagination["total_pages"])
	f.store.AssertExpectations(t)
}

func TestCatalogList_DefaultsPaging(t *testing.T) {
	f := newVendorFixture()
	f.store.On("List", mock.Anything, f.scope, models.ListParams{Page: 1, PerPage: models.MaxPerPage}).
		Return([]*models.Vendor{}, int64(0), nil)
	f.store.On("List", mock.Anything, f.scope, models.ListParams{Page: 1, PerPage: models.DefaultPerPage}).
		Return([]*models.Vendor{}, int64(0), nil)

	w := doJSON(f.router, http.MethodGet, f.base+"?per_page=1000&page=-3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(f.router, http.MethodGet, f.base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestCatalogCreate_AcceptsRootWrappedBody(t *testing.T) {
	f := newVendorFixture()
	f.store.On("Create", mock.Anything, f.scope, mock.MatchedBy(func(v *models.Vendor) bool {
		return v.Name == "Acme" && v.Active && v.ContactEmail != nil && *v.ContactEmail == "sales@acme.test"
	})).Return(nil)

	w := doJSON(f.router, http.MethodPost, f.base, `{"vendor":{"name":" Acme ","contact_email":"sales@acme.test"}}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.store.AssertExpectations(t)
}

func TestCatalogCreate_AcceptsBareBody(t *testing.T) {
	f := newVendorFixture()
	f.store.On("Create", mock.Anything, f.scope, mock.MatchedBy(func(v *models.Vendor) bool {
		return v.Name == "Acme" && !v.Active
	})).Return(nil)

	w := doJSON(f.router, http.MethodPost, f.base, `{"name":"Acme","active":false}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.store.AssertExpectations(t)
}

func TestCatalogCreate_ValidationErrors(t *testing.T) {
	f := newVendorFixture()

	w := doJSON(f.router, http.MethodPost, f.base, `{"vendor":{"name":"  ","contact_email":"nope"}}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []interface{}{"Name can't be blank", "Contact email is invalid"}, body["errors"])
	f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogCreate_MalformedJSON(t *testing.T) {
	f := newVendorFixture()

	w := doJSON(f.router, http.MethodPost, f.base, `{"vendor":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w), "error")
}

func TestCatalogCreate_DuplicateName(t *testing.T) {
	f := newVendorFixture()
	f.store.On("Create", mock.Anything, f.scope, mock.Anything).
		Return(fmt.Errorf("Name %w", repository.ErrDuplicate))

	w := doJSON(f.router, http.MethodPost, f.base, `{"name":"Acme"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []interface{}{"Name has already been taken"}, decodeBody(t, w)["errors"])
}

func TestCatalogGet_NotFound(t *testing.T) {
	f := newVendorFixture()
	id := uuid.New()
	f.store.On("Get", mock.Anything, f.scope, id).Return(nil, repository.ErrNotFound)

	w := doJSON(f.router, http.MethodGet, f.base+"/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Vendor not found", decodeBody(t, w)["error"])

	w = doJSON(f.router, http.MethodGet, f.base+"/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogGet_StoreFailureIsHidden(t *testing.T) {
	f := newVendorFixture()
	id := uuid.New()
	f.store.On("Get", mock.Anything, f.scope, id).Return(nil, errors.New("connection reset by peer"))

	w := doJSON(f.router, http.MethodGet, f.base+"/"+id.String(), nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, w)["error"])
}

func TestCatalogUpdate_KeepsOmittedFields(t *testing.T) {
	f := newVendorFixture()
	existing := vendor(f.scope, "Acme")
	phone := "555-0100"
	existing.Phone = &phone
	f.store.On("Get", mock.Anything, f.scope, existing.ID).Return(existing, nil)
	f.store.On("Update", mock.Anything, f.scope, mock.MatchedBy(func(v *models.Vendor) bool {
		return v.Name == "Acme" && v.Active && v.Phone != nil && *v.Phone == phone &&
			v.Description != nil && *v.Description == "Wholesale"
	})).Return(nil)

	w := doJSON(f.router, http.MethodPatch, f.base+"/"+existing.ID.String(), `{"vendor":{"description":"Wholesale"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestCatalogUpdate_BlankNameRejected(t *testing.T) {
	f := newVendorFixture()
	existing := vendor(f.scope, "Acme")
	f.store.On("Get", mock.Anything, f.scope, existing.ID).Return(existing, nil)

	w := doJSON(f.router, http.MethodPut, f.base+"/"+existing.ID.String(), `{"name":""}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogDelete(t *testing.T) {
	f := newVendorFixture()
	id := uuid.New()
	f.store.On("Delete", mock.Anything, f.scope, id).Return(nil)

	w := doJSON(f.router, http.MethodDelete, f.base+"/"+id.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestCatalogBulkDelete_IgnoresMalformedIDs(t *testing.T) {
	f := newVendorFixture()
	a, b := uuid.New(), uuid.New()
	f.store.On("BulkDelete", mock.Anything, f.scope, []uuid.UUID{a, b}).Return(int64(2), nil)

	w := doJSON(f.router, http.MethodPost, f.base+"/bulk_delete", map[string]interface{}{
		"ids": []string{a.String(), "garbage", b.String()},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["deleted_count"])
}

func TestCatalogBulkDelete_RequiresIDs(t *testing.T) {
	f := newVendorFixture()

	w := doJSON(f.router, http.MethodPost, f.base+"/bulk_delete", `{"ids":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogBulkUpload_PartialSuccess(t *testing.T) {
	f := newVendorFixture()
	f.store.On("FindByName", mock.Anything, f.scope, "Beta").Return(vendor(f.scope, "Beta"), nil)
	f.store.On("FindByName", mock.Anything, f.scope, mock.Anything).Return(nil, repository.ErrNotFound)
	f.store.On("Get", mock.Anything, f.scope, mock.Anything).Return(vendor(f.scope, "Beta"), nil)
	f.store.On("Update", mock.Anything, f.scope, mock.Anything).Return(nil)
	f.store.On("Create", mock.Anything, f.scope, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(2).(*models.Vendor).ID = uuid.New() }).
		Return(nil)
	f.events.On("PublishImportCompleted", mock.Anything, f.scope.ShopID, importer.EntityVendors,
		mock.MatchedBy(func(r *importer.Report) bool { return r.FailedCount == 1 }), f.session.UserID.String()).
		Return(nil)

	csv := "Name*,Contact Email,Active\nAlpha,a@alpha.test,yes\nBeta,,no\n,nobody@x.test,\n"
	w := doUpload(t, f.router, f.base+"/bulk_upload", "vendors.csv", csv)

	require.Equal(t, http.StatusPartialContent, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["total_rows"])
	assert.Equal(t, float64(1), body["created_count"])
	assert.Equal(t, float64(1), body["updated_count"])
	assert.Equal(t, []interface{}{"Row 4 (create): Name can't be blank"}, body["errors"])

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ImportRows.WithLabelValues(importer.EntityVendors, "created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ImportRows.WithLabelValues(importer.EntityVendors, "failed")))
	f.events.AssertExpectations(t)
}

func TestCatalogBulkUpload_AllRowsSucceed(t *testing.T) {
	f := newVendorFixture()
	f.store.On("FindByName", mock.Anything, f.scope, mock.Anything).Return(nil, repository.ErrNotFound)
	f.store.On("Create", mock.Anything, f.scope, mock.Anything).Return(nil)
	f.events.On("PublishImportCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := doUpload(t, f.router, f.base+"/bulk_upload", "vendors.csv", "name\nAlpha\nBeta\n")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["created_count"])
	assert.Equal(t, []interface{}{}, body["errors"])
}

func TestCatalogBulkUpload_RejectsBadFiles(t *testing.T) {
	f := newVendorFixture()

	w := doJSON(f.router, http.MethodPost, f.base+"/bulk_upload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doUpload(t, f.router, f.base+"/bulk_upload", "vendors.txt", "name\nAlpha\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Only CSV and XLSX files are supported", decodeBody(t, w)["error"])

	w = doUpload(t, f.router, f.base+"/bulk_upload", "vendors.csv", "name\n\"Alpha\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.True(t, strings.HasPrefix(decodeBody(t, w)["error"].(string), "Invalid CSV file: "))

	f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogTemplate(t *testing.T) {
	f := newVendorFixture()

	w := doJSON(f.router, http.MethodGet, f.base+"/bulk_upload/template?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "name,description,active,contact_email,phone"))

	w = doJSON(f.router, http.MethodGet, f.base+"/bulk_upload/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tmpl := decodeBody(t, w)["template"].(map[string]interface{})
	assert.Equal(t, importer.EntityVendors, tmpl["entity"])

	w = doJSON(f.router, http.MethodGet, f.base+"/bulk_upload/template?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestSubcategoryRoutes_ScopeToCategory(t *testing.T) {
	session := ownerSession()
	shopScope := models.Scope{ShopID: session.ShopID}
	categories := &MockCatalogStore[*models.Category]{}
	subcategories := &MockCatalogStore[*models.Subcategory]{}

	categoryID := uuid.New()
	categories.On("Get", mock.Anything, shopScope, categoryID).
		Return(&models.Category{CatalogFields: models.CatalogFields{ID: categoryID, ShopID: session.ShopID, Name: "Shirts"}}, nil)
	missing := uuid.New()
	categories.On("Get", mock.Anything, shopScope, missing).Return(nil, repository.ErrNotFound)

	scoped := models.Scope{ShopID: session.ShopID, CategoryID: &categoryID}
	subcategories.On("Create", mock.Anything, scoped, mock.MatchedBy(func(s *models.Subcategory) bool {
		return s.Name == "Polos"
	})).Return(nil)

	r := setupTestRouter(session)
	NewCatalogHandler[models.Subcategory, models.SubcategoryForm](subcategories, CatalogOptions{
		Entity: importer.EntitySubcategories, Label: "Subcategory", Root: "subcategory", Logger: testLogger,
	}).WithScope(CategoryScope(categories, testLogger)).
		Register(r.Group("/shops/:shop_id/categories/:category_id/subcategories"))

	base := "/shops/" + session.ShopID.String() + "/categories/"
	w := doJSON(r, http.MethodPost, base+categoryID.String()+"/subcategories", `{"subcategory":{"name":"Polos"}}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, base+missing.String()+"/subcategories", `{"name":"Polos"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Category not found", decodeBody(t, w)["error"])

	subcategories.AssertExpectations(t)
}
