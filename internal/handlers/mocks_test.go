package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

// MockCatalogStore is a mock implementation of repository.CatalogStore
type MockCatalogStore[P models.CatalogEntity] struct {
	mock.Mock
}

func (m *MockCatalogStore[P]) List(ctx context.Context, scope models.Scope, params models.ListParams) ([]P, int64, error) {
	args := m.Called(ctx, scope, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]P), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogStore[P]) Get(ctx context.Context, scope models.Scope, id uuid.UUID) (P, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		var zero P
		return zero, args.Error(1)
	}
	return args.Get(0).(P), args.Error(1)
}

func (m *MockCatalogStore[P]) FindByName(ctx context.Context, scope models.Scope, name string) (P, error) {
	args := m.Called(ctx, scope, name)
	if args.Get(0) == nil {
		var zero P
		return zero, args.Error(1)
	}
	return args.Get(0).(P), args.Error(1)
}

func (m *MockCatalogStore[P]) Create(ctx context.Context, scope models.Scope, entity P) error {
	return m.Called(ctx, scope, entity).Error(0)
}

func (m *MockCatalogStore[P]) Update(ctx context.Context, scope models.Scope, entity P) error {
	return m.Called(ctx, scope, entity).Error(0)
}

func (m *MockCatalogStore[P]) Delete(ctx context.Context, scope models.Scope, id uuid.UUID) error {
	return m.Called(ctx, scope, id).Error(0)
}

func (m *MockCatalogStore[P]) BulkDelete(ctx context.Context, scope models.Scope, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, scope, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductStore adds Save to the catalog mock
type MockProductStore struct {
	MockCatalogStore[*models.Product]
}

func (m *MockProductStore) Save(ctx context.Context, scope models.Scope, product *models.Product, graph *repository.ProductGraph) error {
	return m.Called(ctx, scope, product, graph).Error(0)
}

// MockPublisher records published events
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishImportCompleted(ctx context.Context, shopID uuid.UUID, entity string, report *importer.Report, actorID string) error {
	return m.Called(ctx, shopID, entity, report, actorID).Error(0)
}

func (m *MockPublisher) PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error {
	return m.Called(ctx, product, actorID).Error(0)
}

func (m *MockPublisher) PublishProductUpdated(ctx context.Context, product *models.Product, actorID string) error {
	return m.Called(ctx, product, actorID).Error(0)
}

func (m *MockPublisher) PublishProductDeleted(ctx context.Context, shopID uuid.UUID, productIDs []uuid.UUID, actorID string) error {
	return m.Called(ctx, shopID, productIDs, actorID).Error(0)
}

// MockAccountStore is a mock implementation of AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockAccountStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountStore) ListShops(ctx context.Context, userID uuid.UUID) ([]models.Shop, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shop), args.Error(1)
}

func (m *MockAccountStore) CreateShop(ctx context.Context, shop *models.Shop) error {
	return m.Called(ctx, shop).Error(0)
}

func (m *MockAccountStore) CreateInvite(ctx context.Context, invite *models.ShopInvite) error {
	return m.Called(ctx, invite).Error(0)
}

// MockMembers is a mock implementation of middleware.MembershipChecker
type MockMembers struct {
	mock.Mock
}

func (m *MockMembers) MemberRole(ctx context.Context, shopID, userID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, shopID, userID)
	return args.Get(0).(models.Role), args.Error(1)
}

var testLogger = func() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}()

// Helper to setup test router with a scoped session
func setupTestRouter(session *middleware.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if session != nil {
		r.Use(func(c *gin.Context) {
			middleware.SetSession(c, session)
			c.Next()
		})
	}
	return r
}

func ownerSession() *middleware.Session {
	return &middleware.Session{
		UserID: uuid.New(),
		Email:  "owner@example.com",
		ShopID: uuid.New(),
		Role:   models.RoleOwner,
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, r http.Handler, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
