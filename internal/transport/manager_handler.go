package transport

import (
	"errors"
	"net/http"
	"time"

	"hannu-storefront/internal/middleware"
	"hannu-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the manager login payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the manager login response
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ManagerHandler unlocks and locks the admin mode
type ManagerHandler struct {
	managerService service.ManagerService
	logger         *zap.Logger
}

// NewManagerHandler creates a new ManagerHandler
func NewManagerHandler(managerService service.ManagerService, logger *zap.Logger) *ManagerHandler {
	return &ManagerHandler{
		managerService: managerService,
		logger:         logger,
	}
}

// RegisterRoutes registers the manager routes. loginLimiter guards the
// password check, authMiddleware the logout.
func (h *ManagerHandler) RegisterRoutes(r chi.Router, loginLimiter, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/manager", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
		})
	})
}

// Login checks the manager password and returns a bearer token
func (h *ManagerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Manager login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := h.managerService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.logger.Info("Manager login rejected", zap.String("username", req.Username))
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
		case errors.Is(err, service.ErrNotConfigured):
			h.logger.Error("Manager login attempted without a configured password hash")
			middleware.RespondWithError(w, http.StatusServiceUnavailable, "manager access is not configured")
		default:
			h.logger.Error("Manager login failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		}
		return
	}

	h.logger.Info("Manager logged in", zap.String("username", req.Username))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

// Logout lowers the manager flag
func (h *ManagerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.managerService.Logout(r.Context()); err != nil {
		h.logger.Error("Manager logout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	subject, _ := middleware.GetSubject(r.Context())
	h.logger.Info("Manager logged out", zap.String("username", subject))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}
