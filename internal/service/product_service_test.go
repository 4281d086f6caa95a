package service

import (
	"context"
	"testing"

	"storefront-api/internal/domain"
	"storefront-api/internal/events"
	"storefront-api/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProperty_CreatedProductsAreListed(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every created product is listed in creation order", prop.ForAll(
		func(names []string) bool {
			service := NewProductService(newMockProductRepository(), events.NopPublisher{}, zap.NewNop())
			ctx := context.Background()

			for i, name := range names {
				_, err := service.Create(ctx, &domain.Product{Name: name, Price: decimal.NewFromInt(int64(i)), Stock: i})
				if err != nil {
					return false
				}
			}

			products, err := service.List(ctx)
			if err != nil || products == nil || len(products) != len(names) {
				return false
			}
			for i, product := range products {
				if product.Name != names[i] || product.Stock != i {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductService_GetAndCreate(t *testing.T) {
	publisher := &recordingPublisher{}
	service := NewProductService(newMockProductRepository(), publisher, zap.NewNop())
	ctx := context.Background()

	created, err := service.Create(ctx, &domain.Product{Name: "Widget", Price: decimal.RequireFromString("9.99"), Stock: 10})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Name)

	_, err = service.Get(ctx, created.ID+1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	assert.Equal(t, []string{events.ProductCreated}, publisher.types())
}
