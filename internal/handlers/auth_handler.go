package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vendingmachine/backend/internal/middleware"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Login verifies user credentials, opens a new session and returns its access token.
	//
	// If credentials are invalid or the user is disabled, an error matching models.ErrAuthentication will be returned.
	// If the user already has an active session, models.ErrActiveSession will be returned.
	// In both cases the error will be returned together with "nil" value.
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger, debug bool) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger, Debug: debug},
		authService: authService,
	}
}

// RegisterRoutes registers all auth handler routes.
// "loginLimiter" guards the token endpoint only.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, loginLimiter func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/token", h.Token)
		r.With(authMiddleware, middleware.RequireCapability(models.CapabilityBuyerOrSeller)).Post("/whoami", h.WhoAmI)
	})
}

// Token handles POST /auth/token
// @Summary Log in
// @Description Verifies username and password, opens a new session and returns a bearer token. Fails with 409 while the user still has an active session.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} models.TokenResponse "Access token"
// @Failure 400 {object} ErrorResponse "Missing username or password"
// @Failure 401 {object} ErrorResponse "Incorrect username or password"
// @Failure 409 {object} ErrorResponse "User already has an active session"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	verr := &models.ValidationError{}
	if username == "" {
		verr.Add("Username is required")
	}
	if password == "" {
		verr.Add("Password is required")
	}
	if err := verr.OrNil(); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	token, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		h.Logger.Info("failed to authenticate", zap.String("username", username), zap.Error(err))
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, token)
}

// WhoAmI handles POST /auth/whoami
// @Summary Current user
// @Description Returns the authenticated user without password data
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse "Current user"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Router /auth/whoami [post]
func (h *AuthHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	h.RespondJSON(w, http.StatusOK, principal.User.ToResponse())
}
