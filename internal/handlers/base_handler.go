package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vendingmachine/backend/internal/middleware"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

const internalServerError = "Internal server error"

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
	// Debug echoes internal error messages to clients
	Debug bool
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, detail string, errs ...string) {
	h.RespondJSON(w, status, ErrorResponse{Detail: detail, Errors: errs})
}

// RespondServiceError maps an error returned by a service to its HTTP status and body.
//
// Unexpected errors are logged and reported as 500, their message is only exposed in debug mode.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *models.ValidationError
		derr   *models.DomainError
		detail = err.Error()
	)
	if errors.As(err, &derr) {
		detail = derr.Error()
	}

	switch {
	case errors.As(err, &verr):
		h.RespondError(w, http.StatusBadRequest, "Validation error", verr.Errors...)
	case errors.Is(err, models.ErrAuthentication):
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.RespondError(w, http.StatusUnauthorized, detail)
	case errors.Is(err, models.ErrProductRetrieval):
		h.RespondError(w, http.StatusBadRequest, detail)
	case errors.Is(err, models.ErrAuthorization):
		h.RespondError(w, http.StatusForbidden, detail)
	case errors.Is(err, models.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, detail)
	case errors.Is(err, models.ErrConflict):
		h.RespondError(w, http.StatusConflict, detail)
	case errors.Is(err, models.ErrInsufficientFunds):
		h.RespondError(w, http.StatusBadRequest, models.ErrInsufficientFunds.Error())
	case errors.Is(err, models.ErrInsufficientStock):
		h.RespondError(w, http.StatusBadRequest, models.ErrInsufficientStock.Error())
	default:
		h.Logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if h.Debug {
			h.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.RespondError(w, http.StatusInternalServerError, internalServerError)
	}
}

// principal returns the authenticated caller, it is always set behind middleware.AuthMiddleware
func (h *BaseHandler) principal(w http.ResponseWriter, r *http.Request) (*models.Principal, bool) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.RespondError(w, http.StatusUnauthorized, "Not authenticated")
	}
	return principal, ok
}

// decodeJSON decodes the request body, replying 400 on malformed input
func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
