package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vendingmachine/backend/internal/middleware"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// MachineService is the interface that wraps methods for deposits and purchases.
type MachineService interface {
	// Method Deposit adds one coin to the caller's session balance and returns the new balance.
	//
	// If the amount is not an accepted coin, *models.ValidationError will be returned.
	// If the caller's session is gone or expired, models.ErrSessionNotFound will be returned.
	Deposit(ctx context.Context, principal *models.Principal, amount int) (int, error)
	// Method Buy purchases "quantity" units of a product from the caller's session balance.
	//
	// If the balance or stock is too small, models.ErrInsufficientFunds or models.ErrInsufficientStock will be returned together with "nil" value.
	Buy(ctx context.Context, principal *models.Principal, productID, quantity int) (*models.PurchaseResult, error)
	// Method Purchases lists the product of every unit bought in the caller's session.
	Purchases(ctx context.Context, principal *models.Principal) ([]models.Product, error)
	// Method AvailableProducts lists products with at least one unit in stock.
	AvailableProducts(ctx context.Context) ([]models.Product, error)
}

// SessionResetter is the interface that wraps the session reset.
type SessionResetter interface {
	// Method Reset clears the balance and purchase lines of the caller's session.
	Reset(ctx context.Context, principal *models.Principal) error
}

// MachineHandler handles vending machine HTTP requests
type MachineHandler struct {
	BaseHandler
	machineService MachineService
	resetter       SessionResetter
}

// NewMachineHandler creates a new machine handler
func NewMachineHandler(machineService MachineService, resetter SessionResetter, logger *zap.Logger, debug bool) *MachineHandler {
	return &MachineHandler{
		BaseHandler:    BaseHandler{Logger: logger, Debug: debug},
		machineService: machineService,
		resetter:       resetter,
	}
}

// RegisterRoutes registers all machine handler routes
func (h *MachineHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	buyerOnly := middleware.RequireCapability(models.CapabilityBuyer)

	r.Route("/machine", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(buyerOnly).Get("/products", h.Products)
		r.With(buyerOnly).Get("/purchases", h.Purchases)
		r.With(middleware.RequireCapability(models.CapabilityBuyerOrSeller)).Post("/deposit", h.Deposit)
		r.With(buyerOnly).Get("/buy/{productId}/{amount}", h.Buy)
		r.With(buyerOnly).Post("/reset", h.Reset)
	})
}

// Products handles GET /machine/products
// @Summary Purchasable products
// @Description Lists products that currently have stock
// @Tags machine
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ProductResponse "Products in stock"
// @Failure 403 {object} ErrorResponse "User is not a buyer"
// @Router /machine/products [get]
func (h *MachineHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.machineService.AvailableProducts(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.ProductsToResponse(products))
}

// Purchases handles GET /machine/purchases
// @Summary Session purchases
// @Description Lists one entry per unit bought in the current session
// @Tags machine
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ProductResponse "Purchased units"
// @Failure 403 {object} ErrorResponse "User is not a buyer"
// @Router /machine/purchases [get]
func (h *MachineHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	products, err := h.machineService.Purchases(r.Context(), principal)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.ProductsToResponse(products))
}

// Deposit handles POST /machine/deposit
// @Summary Deposit a coin
// @Description Adds one coin of 5, 10, 20, 50 or 100 to the session balance
// @Tags machine
// @Produce json
// @Security BearerAuth
// @Param amount query int true "Coin value"
// @Success 200 {object} models.DepositResponse "New balance"
// @Failure 400 {object} ErrorResponse "Invalid coin"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /machine/deposit [post]
func (h *MachineHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	amount, err := strconv.Atoi(r.URL.Query().Get("amount"))
	if err != nil {
		h.RespondServiceError(w, r, models.NewValidationError("Amount must be an integer"))
		return
	}

	balance, err := h.machineService.Deposit(r.Context(), principal, amount)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.DepositResponse{
		APIMessage: models.APIMessage{Message: "Deposited successfully", Success: true},
		Balance:    balance,
	})
}

// Buy handles GET /machine/buy/{productId}/{amount}
// @Summary Buy a product
// @Description Buys "amount" units of a product from the session balance and returns the remaining balance as change
// @Tags machine
// @Produce json
// @Security BearerAuth
// @Param productId path int true "Product ID"
// @Param amount path int true "Number of units"
// @Success 200 {object} models.PurchaseResult "Purchase result"
// @Failure 400 {object} ErrorResponse "Invalid amount, insufficient funds or insufficient stock"
// @Failure 404 {object} ErrorResponse "Product or session not found"
// @Router /machine/buy/{productId}/{amount} [get]
func (h *MachineHandler) Buy(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil {
		h.RespondServiceError(w, r, models.ErrProductNotFound)
		return
	}
	quantity, err := strconv.Atoi(chi.URLParam(r, "amount"))
	if err != nil {
		h.RespondServiceError(w, r, models.NewValidationError("Amount must be an integer"))
		return
	}

	result, err := h.machineService.Buy(r.Context(), principal, id, quantity)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// Reset handles POST /machine/reset
// @Summary Reset the session
// @Description Clears the balance and purchase history of the current session
// @Tags machine
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIMessage "Session reset"
// @Failure 403 {object} ErrorResponse "User is not a buyer"
// @Router /machine/reset [post]
func (h *MachineHandler) Reset(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.resetter.Reset(r.Context(), principal); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.APIMessage{Message: "Session reset successfully", Success: true})
}
