package service

import (
	"context"
	"sync"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/events"
	"storefront-api/internal/repository"
)

// Mock repositories for testing
type mockUserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for username, user := range m.users {
		if user.ID == id {
			delete(m.users, username)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type mockProductRepository struct {
	products map[int64]*domain.Product
	nextID   int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[int64]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.nextID++
	product.ID = m.nextID
	product.CreatedAt = time.Now()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for id := int64(1); id <= m.nextID; id++ {
		if product, ok := m.products[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// mockCartRepository reserves stock from the product mock the same way the
// SQL implementation does
type mockCartRepository struct {
	mu       sync.Mutex
	products *mockProductRepository
	lines    map[[2]int64]*domain.CartRow
	nextID   int64
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{
		products: products,
		lines:    make(map[[2]int64]*domain.CartRow),
	}
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.CartRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := []*domain.CartRow{}
	for key, row := range m.lines {
		if key[0] == userID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, exists := m.products.products[productID]
	if !exists || product.Stock < quantity {
		return nil, repository.ErrInsufficientStock
	}
	product.Stock -= quantity

	key := [2]int64{userID, productID}
	row, exists := m.lines[key]
	if !exists {
		m.nextID++
		row = &domain.CartRow{ID: m.nextID, ProductID: productID, Name: product.Name, Price: product.Price}
		m.lines[key] = row
	}
	row.Quantity += quantity

	copied := *row
	return &copied, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}
