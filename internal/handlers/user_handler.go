package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vendingmachine/backend/internal/middleware"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// UserService is the interface that wraps methods for user account business logic.
type UserService interface {
	// Method Create validates a registration request and stores a new user.
	//
	// If the request is invalid or the username is taken, *models.ValidationError will be returned together with "nil" value.
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	// Method List returns all users.
	List(ctx context.Context) ([]models.User, error)
	// Method Get returns a user by numeric ID or by username.
	//
	// If such user does not exist, models.ErrUserNotFound will be returned together with "nil" value.
	Get(ctx context.Context, idOrUsername string) (*models.User, error)
	// Method Update changes password and/or disabled flag of the caller's own account.
	//
	// If the target is another user's account, models.ErrForbiddenUser will be returned together with "nil" value.
	Update(ctx context.Context, caller *models.User, idOrUsername string, req *models.UpdateUserRequest) (*models.User, error)
	// Method Delete removes the caller's own account.
	//
	// If the target is another user's account, models.ErrForbiddenUser will be returned.
	Delete(ctx context.Context, caller *models.User, idOrUsername string) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, logger *zap.Logger, debug bool) *UserHandler {
	return &UserHandler{
		BaseHandler: BaseHandler{Logger: logger, Debug: debug},
		userService: userService,
	}
}

// RegisterRoutes registers all user handler routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/create", h.Create)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireCapability(models.CapabilityBuyerOrSeller))
			r.Get("/", h.List)
			r.Get("/{idOrUsername}", h.Get)
			r.Put("/{idOrUsername}", h.Update)
			r.Delete("/{idOrUsername}", h.Delete)
		})
	})
}

// Create handles POST /users/create
// @Summary Register a user
// @Description Creates a BUYER or SELLER account. Deposit and hashed password are server-controlled and rejected if present.
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.CreateUserRequest true "New user"
// @Success 201 {object} models.UserResponse "Created user"
// @Failure 400 {object} ErrorResponse "Validation errors"
// @Failure 409 {object} ErrorResponse "Username already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/create [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, user.ToResponse())
}

// List handles GET /users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserResponse "All users"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	response := make([]models.UserResponse, 0, len(users))
	for i := range users {
		response = append(response, users[i].ToResponse())
	}
	h.RespondJSON(w, http.StatusOK, response)
}

// Get handles GET /users/{idOrUsername}
// @Summary Get a user
// @Description Numeric values are looked up as IDs, anything else as usernames
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param idOrUsername path string true "User ID or username"
// @Success 200 {object} models.UserResponse "User"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /users/{idOrUsername} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "idOrUsername"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, user.ToResponse())
}

// Update handles PUT /users/{idOrUsername}
// @Summary Update own account
// @Description Changes password and/or disabled flag. Role, deposit and hashed password cannot be changed.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param idOrUsername path string true "User ID or username"
// @Param request body models.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.UserResponse "Updated user"
// @Failure 400 {object} ErrorResponse "Validation errors"
// @Failure 403 {object} ErrorResponse "Not your account"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /users/{idOrUsername} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), &principal.User, chi.URLParam(r, "idOrUsername"), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, user.ToResponse())
}

// Delete handles DELETE /users/{idOrUsername}
// @Summary Delete own account
// @Description Deletes the account together with its products and sessions
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param idOrUsername path string true "User ID or username"
// @Success 200 {object} models.APIMessage "User deleted"
// @Failure 403 {object} ErrorResponse "Not your account"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /users/{idOrUsername} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), &principal.User, chi.URLParam(r, "idOrUsername")); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.APIMessage{Message: "User deleted successfully", Success: true})
}
