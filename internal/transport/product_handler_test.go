package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront-api/internal/domain"
	"storefront-api/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog() *fakeProductService {
	catalog := []*domain.Product{}
	return &fakeProductService{
		list: func(context.Context) ([]*domain.Product, error) {
			return catalog, nil
		},
		get: func(_ context.Context, id int64) (*domain.Product, error) {
			for _, product := range catalog {
				if product.ID == id {
					return product, nil
				}
			}
			return nil, fmt.Errorf("failed to get product: %w", repository.ErrProductNotFound)
		},
		create: func(_ context.Context, product *domain.Product) (*domain.Product, error) {
			product.ID = int64(len(catalog) + 1)
			catalog = append(catalog, product)
			return product, nil
		},
	}
}

func TestListProducts_EmptyCatalogIsArray(t *testing.T) {
	env := newTestEnv(t, nil, newCatalog(), nil)

	w := env.do(http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateProduct_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil, newCatalog(), nil)
	body := `{"name":"Widget","price":9.99,"stock":10}`

	w := env.do(http.MethodPost, "/products", body, "")
	assert.Equal(t, http.StatusForbidden, w.Code, "no token")

	w = env.do(http.MethodPost, "/products", body, env.bearer(t, 2, "bob", false))
	assert.Equal(t, http.StatusForbidden, w.Code, "non-admin token")

	w = env.do(http.MethodPost, "/products", body, env.bearer(t, 1, "alice", true))
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.ID)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 10, created.Stock)
	assert.Nil(t, created.Description)

	w = env.do(http.MethodGet, "/products", "", "")
	var listed []domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Widget", listed[0].Name)
}

func TestCreateProduct_Validation(t *testing.T) {
	env := newTestEnv(t, nil, newCatalog(), nil)
	admin := env.bearer(t, 1, "alice", true)

	cases := map[string]string{
		"missing name":   `{"price":1,"stock":1}`,
		"missing price":  `{"name":"Widget","stock":1}`,
		"missing stock":  `{"name":"Widget","price":1}`,
		"negative stock": `{"name":"Widget","price":1,"stock":-1}`,
		"negative price": `{"name":"Widget","price":-1,"stock":1}`,
		"unknown field":  `{"name":"Widget","price":1,"stock":1,"category":"x"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/products", body, admin)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w := env.do(http.MethodPost, "/products", `{"name":"Freebie","price":"0","stock":0}`, admin)
	assert.Equal(t, http.StatusCreated, w.Code, "zero price and stock are present values")
}

func TestGetProduct(t *testing.T) {
	catalog := newCatalog()
	catalog.create(context.Background(), &domain.Product{Name: "Widget", Price: decimal.NewFromInt(1)})
	env := newTestEnv(t, nil, catalog, nil)

	w := env.do(http.MethodGet, "/products/1", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/products/2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/products/widget", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProducts_StoreFailure(t *testing.T) {
	catalog := newCatalog()
	catalog.list = func(context.Context) ([]*domain.Product, error) {
		return nil, errors.New("connection refused")
	}
	env := newTestEnv(t, nil, catalog, nil)

	w := env.do(http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to list products", errorMessage(t, w))
}

func TestCreateProduct_StockBeyondColumnRangeIsRejected(t *testing.T) {
	env := newTestEnv(t, nil, newCatalog(), nil)
	admin := env.bearer(t, 1, "alice", true)

	w := env.do(http.MethodPost, "/products", `{"name":"Widget","price":1,"stock":3000000000}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "stock")

	w = env.do(http.MethodPost, "/products", `{"name":"Widget","price":1,"stock":2147483647}`, admin)
	assert.Equal(t, http.StatusCreated, w.Code)
}
