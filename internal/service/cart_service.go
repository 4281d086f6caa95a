package service

import (
	"context"
	"fmt"

	"storefront-api/internal/domain"
	"storefront-api/internal/events"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic
type CartService interface {
	Get(ctx context.Context, userID int64) ([]*domain.CartRow, error)
	Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error)
}

type cartService struct {
	cartRepo  repository.CartRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, publisher events.Publisher, logger *zap.Logger) CartService {
	return &cartService{
		cartRepo:  cartRepo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *cartService) Get(ctx context.Context, userID int64) ([]*domain.CartRow, error) {
	rows, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return rows, nil
}

// Add reserves quantity units and merges them into the user's cart line
func (s *cartService) Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error) {
	row, err := s.cartRepo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.CartItemAdded, "cart", row.ID, domain.CartItem{
		ID:        row.ID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}))

	return row, nil
}
