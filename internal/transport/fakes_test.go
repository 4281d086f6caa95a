package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/middleware"
	"storefront-api/internal/token"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserService struct {
	register   func(ctx context.Context, username, password string, isAdmin bool) (*domain.User, error)
	login      func(ctx context.Context, username, password string) (string, *domain.User, error)
	unregister func(ctx context.Context, userID int64) error
}

func (f *fakeUserService) Register(ctx context.Context, username, password string, isAdmin bool) (*domain.User, error) {
	return f.register(ctx, username, password, isAdmin)
}

func (f *fakeUserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return f.login(ctx, username, password)
}

func (f *fakeUserService) Unregister(ctx context.Context, userID int64) error {
	return f.unregister(ctx, userID)
}

type fakeProductService struct {
	list   func(ctx context.Context) ([]*domain.Product, error)
	get    func(ctx context.Context, id int64) (*domain.Product, error)
	create func(ctx context.Context, product *domain.Product) (*domain.Product, error)
}

func (f *fakeProductService) List(ctx context.Context) ([]*domain.Product, error) {
	return f.list(ctx)
}

func (f *fakeProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return f.get(ctx, id)
}

func (f *fakeProductService) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	return f.create(ctx, product)
}

type fakeCartService struct {
	get func(ctx context.Context, userID int64) ([]*domain.CartRow, error)
	add func(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error)
}

func (f *fakeCartService) Get(ctx context.Context, userID int64) ([]*domain.CartRow, error) {
	return f.get(ctx, userID)
}

func (f *fakeCartService) Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error) {
	return f.add(ctx, userID, productID, quantity)
}

type testEnv struct {
	router  chi.Router
	manager *token.Manager
}

func newTestEnv(t *testing.T, users *fakeUserService, products *fakeProductService, carts *fakeCartService) *testEnv {
	t.Helper()

	manager, err := token.NewManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	logger := zap.NewNop()
	auth := middleware.AuthMiddleware(manager, logger)
	admin := middleware.RequireAdmin(logger)

	router := chi.NewRouter()
	if users != nil {
		handler := NewUserHandler(users, logger)
		handler.RegisterPublicRoutes(router)
		handler.RegisterProtectedRoutes(router, auth)
	}
	if products != nil {
		NewProductHandler(products, logger).RegisterRoutes(router, auth, admin)
	}
	if carts != nil {
		NewCartHandler(carts, logger).RegisterRoutes(router, auth)
	}

	return &testEnv{router: router, manager: manager}
}

func (e *testEnv) bearer(t *testing.T, id int64, username string, isAdmin bool) string {
	t.Helper()
	signed, err := e.manager.Issue(&domain.User{ID: id, Username: username, IsAdmin: isAdmin})
	require.NoError(t, err)
	return "Bearer " + signed
}

func (e *testEnv) do(method, path, body, authorization string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// errorMessage extracts error.message from an error envelope
func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Message
}
