package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-api/internal/domain"
)

// ErrInsufficientStock covers both an unknown product and one with too few units
var ErrInsufficientStock = errors.New("insufficient stock")

// CartRepository defines the interface for cart data access
type CartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*domain.CartRow, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// ListByUser returns the user's cart lines joined with product name and price
func (r *cartRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.CartRow, error) {
	query := `
		SELECT c.id, c.product_id, p.name, p.price, c.quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartRow{}
	for rows.Next() {
		item := &domain.CartRow{}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// AddItem reserves quantity units of the product and adds them to the
// user's cart line, creating it on first add. The conditional decrement
// and the upsert share one transaction, so concurrent adds can never take
// more units than the product has.
func (r *cartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error) {
	row := &domain.CartRow{ProductID: productID}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		reserveQuery := `
			UPDATE products
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
			RETURNING name, price
		`
		err := tx.QueryRowContext(ctx, reserveQuery, productID, quantity).Scan(&row.Name, &row.Price)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientStock
			}
			return fmt.Errorf("failed to reserve stock: %w", err)
		}

		upsertQuery := `
			INSERT INTO cart_items (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id, quantity
		`
		if err := tx.QueryRowContext(ctx, upsertQuery, userID, productID, quantity).Scan(&row.ID, &row.Quantity); err != nil {
			// The token outlived its user
			if isForeignKeyViolation(err, "fk_cart_items_user") {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to upsert cart item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}
