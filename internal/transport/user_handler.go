package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload.
// The admin flag is read from is_admin or its camelCase spelling.
type RegisterRequest struct {
	Username     string    `json:"username" validate:"required,max=255"`
	Password     string    `json:"password" validate:"required,maxbytes=72"`
	IsAdmin      AdminFlag `json:"is_admin"`
	IsAdminCamel AdminFlag `json:"isAdmin"`
}

// AdminFlag decodes JSON booleans, numbers, boolean-like strings and null
type AdminFlag bool

func (f *AdminFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*f = false
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = AdminFlag(data[0] == 't')
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = false
			return nil
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("is_admin: %q is not a boolean", s)
		}
		*f = AdminFlag(v)
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("is_admin: %s is not a boolean", data)
		}
		*f = n != 0
	}

	return nil
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string `json:"token"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterPublicRoutes registers the credential endpoints
func (h *UserHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
}

// RegisterProtectedRoutes registers the endpoints that act on the caller's account
func (h *UserHandler) RegisterProtectedRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Delete("/unregister", h.Unregister)
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	isAdmin := bool(req.IsAdmin || req.IsAdminCamel)

	user, err := h.userService.Register(r.Context(), req.Username, req.Password, isAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			h.logger.Debug("Registration rejected, username taken", zap.String("username", req.Username))
			middleware.RespondWithError(w, http.StatusConflict, "username already exists")
			return
		}

		h.logger.Error("Registration failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.logger.Info("User registered successfully",
		zap.Int64("user_id", user.ID),
		zap.Bool("is_admin", user.IsAdmin),
	)
	middleware.RespondWithMessage(w, http.StatusCreated, "user registered")
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	accessToken, user, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Debug("Login failed", zap.String("username", req.Username))
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	h.logger.Info("User logged in successfully", zap.Int64("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{Token: accessToken})
}

// Unregister deletes the authenticated caller's account
func (h *UserHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.userService.Unregister(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "user not found")
			return
		}

		h.logger.Error("Unregister failed", zap.Int64("user_id", userID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	h.logger.Info("User unregistered", zap.Int64("user_id", userID))
	middleware.RespondWithMessage(w, http.StatusOK, "user deleted")
}

// respondWithDecodeError reports field errors when validation failed and
// a generic 400 for malformed or empty bodies
func respondWithDecodeError(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}
