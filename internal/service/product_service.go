package service

import (
	"context"
	"fmt"

	"storefront-api/internal/domain"
	"storefront-api/internal/events"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
)

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, publisher events.Publisher, logger *zap.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *productService) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Create stores a new catalog entry. Callers are expected to have checked
// the admin flag.
func (s *productService) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.ProductCreated, "product", product.ID, product))

	return product, nil
}
