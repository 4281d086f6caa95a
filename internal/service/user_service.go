package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-api/internal/domain"
	"storefront-api/internal/events"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike
var ErrInvalidCredentials = errors.New("invalid username or password")

// TokenIssuer signs access tokens for authenticated users
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// UserService defines the interface for user business logic
type UserService interface {
	Register(ctx context.Context, username, password string, isAdmin bool) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	Unregister(ctx context.Context, userID int64) error
}

type userService struct {
	userRepo  repository.UserRepository
	issuer    TokenIssuer
	publisher events.Publisher
	logger    *zap.Logger

	// compared against when the username is unknown so both login
	// failures cost one bcrypt comparison
	dummyHash []byte
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	issuer TokenIssuer,
	publisher events.Publisher,
	logger *zap.Logger,
) UserService {
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("storefront-placeholder"), BcryptCost)

	return &userService{
		userRepo:  userRepo,
		issuer:    issuer,
		publisher: publisher,
		logger:    logger,
		dummyHash: dummyHash,
	}
}

// Register creates a new user account with hashed password
func (s *userService) Register(ctx context.Context, username, password string, isAdmin bool) (*domain.User, error) {
	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hashedPassword,
		IsAdmin:      isAdmin,
	}

	// The unique index decides duplicates, so concurrent registrations
	// of one name cannot both succeed
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserRegistered, "user", user.ID, user))

	return user, nil
}

// Login authenticates a user and returns a signed access token
func (s *userService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.issuer.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, user, nil
}

// Unregister deletes the account and everything that belongs to it
func (s *userService) Unregister(ctx context.Context, userID int64) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserUnregistered, "user", userID, map[string]int64{"id": userID}))

	return nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
