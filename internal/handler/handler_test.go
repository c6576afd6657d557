package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartsahuji/internal/auth"
	"smartsahuji/internal/cache"
	"smartsahuji/internal/config"
	"smartsahuji/internal/database/dbtest"
	"smartsahuji/internal/middleware"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"
	"smartsahuji/internal/service"
	"smartsahuji/pkg/scratch"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenManager
	users  repository.UserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := dbtest.New(t)
	invRepo := repository.NewInventoryRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	txm := repository.NewTransactionManager(db)
	c := cache.NewMemory()

	authCfg := config.AuthConfig{
		JWTSecret:       "handler-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   15 * time.Minute,
	}
	tokens := auth.NewTokenManager(authCfg.JWTSecret, authCfg.AccessTokenTTL)

	inventory := service.NewInventoryService(invRepo, auditRepo, txm, c, nil, nil)
	transactions := service.NewTransactionService(txRepo, invRepo, auditRepo, txm, c, nil, nil)
	imports := service.NewImportService(inventory, transactions, invRepo, auditRepo, nil, nil)
	users := service.NewUserService(userRepo, invRepo, txRepo, auditRepo, txm, tokens, authCfg, "http://localhost", nil)

	dir, err := scratch.New(t.TempDir())
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api")
	NewUserHandler(users, middleware.NewCookieSettings(authCfg), middleware.Authenticate(tokens), nil, nil).RegisterRoutes(api)

	protected := api.Group("", middleware.Authenticate(tokens))
	NewInventoryHandler(inventory, imports, dir, 1<<20, nil).RegisterRoutes(protected)
	NewTransactionHandler(transactions, imports, dir, 1<<20, nil).RegisterRoutes(protected)
	NewAuditHandler(service.NewAuditService(auditRepo), nil).RegisterRoutes(protected)
	NewInsightsHandler(service.NewInsightsService(repository.NewInsightsRepository(db), invRepo, time.UTC, nil), time.UTC, nil).RegisterRoutes(protected)

	return &testServer{router: r, tokens: tokens, users: userRepo}
}

// login creates a user straight in the repository and returns a bearer token.
func (s *testServer) login(t *testing.T, role string) string {
	t.Helper()
	u := &model.User{Username: "u-" + uuid.NewString()[:8], Email: uuid.NewString()[:8] + "@example.com", Password: "x", Role: role}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, _, err := s.tokens.Issue(u.ID, role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/inventory", "/api/transactions", "/api/insights", "/api/audit-logs", "/api/auth/profile"} {
		w, env := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "error", env.Status, path)
	}
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ravi", "email": "Ravi@Example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ravi2", "email": "ravi@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ravi@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ravi@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	var names []string
	for _, ck := range w.Result().Cookies() {
		names = append(names, ck.Name)
	}
	assert.ElementsMatch(t, []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie}, names)

	var res service.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.AccessToken)

	w, env = s.do(t, http.MethodGet, "/api/auth/profile", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me service.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ravi", me.Username)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/auth/users", s.login(t, model.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/auth/users", s.login(t, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaleRejections(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleUser)

	w, _ := s.do(t, http.MethodPost, "/api/inventory", token, map[string]interface{}{
		"name": "Rice", "barcode": "111", "quantity": 5, "selling_price": 20,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/transactions", token, map[string]interface{}{
		"product_name": "Rice", "barcode": "111", "item_type": "Sale", "sale_type": "Retail", "price": 20, "quantity": 9,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var stock StockError
	require.NoError(t, json.Unmarshal(env.Data, &stock))
	assert.Equal(t, 5, stock.Available)

	w, _ = s.do(t, http.MethodPost, "/api/transactions", token, map[string]interface{}{
		"product_name": "Dal", "item_type": "Sale", "sale_type": "Retail", "price": 20, "quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/transactions", token, map[string]interface{}{
		"product_name": "Rice", "barcode": "111", "item_type": "Sale", "sale_type": "Retail", "price": 20, "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var res service.RecordResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Inventory)
	assert.Equal(t, 0, res.Inventory.CurrentStock)

	w, env = s.do(t, http.MethodPost, "/api/transactions", token, map[string]interface{}{
		"product_name": "Rice", "barcode": "111", "item_type": "Sale", "sale_type": "Retail", "price": 20, "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, strings.ToLower(env.Error), "out of stock")
}

func TestOwnersAreIsolated(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, model.RoleUser)
	bob := s.login(t, model.RoleUser)

	w, env := s.do(t, http.MethodPost, "/api/inventory", alice, map[string]interface{}{"name": "Soap", "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	var rec model.InventoryRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))

	w, _ = s.do(t, http.MethodGet, "/api/inventory/"+rec.ID.String(), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/inventory/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAndExportInventory(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleUser)

	body, contentType := multipartBody(t, "stock.csv", "Name,Barcode,Quantity,Selling Price\nTea,9001,4,120\n,,3,10\nSugar,,2,45\n")
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var res service.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)

	req = httptest.NewRequest(http.MethodGet, "/api/inventory/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "Tea")
	assert.Contains(t, w.Body.String(), "Sugar")
}

func TestExportFormatIgnoresCase(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleUser)

	for _, format := range []string{"CSV", "Csv", "%20csv%20"} {
		w, _ := s.do(t, http.MethodGet, "/api/inventory/export?format="+format, token, nil)
		require.Equal(t, http.StatusOK, w.Code, format)
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv", format)
	}

	w, _ := s.do(t, http.MethodGet, "/api/inventory/export?format=XLSX", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w, env := s.do(t, http.MethodGet, "/api/inventory/export?format=pdf", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleUser)

	body, contentType := multipartBody(t, "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/transactions/upload", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInsightsRejectsBadDates(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleUser)

	w, _ := s.do(t, http.MethodGet, "/api/insights?start_date=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/insights", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
