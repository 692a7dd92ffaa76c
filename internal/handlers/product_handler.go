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

// ProductService is the interface that wraps methods for product catalog business logic.
type ProductService interface {
	// Method Create validates a product request and stores a product owned by the seller.
	Create(ctx context.Context, seller *models.User, req *models.ProductRequest) (*models.Product, error)
	// Method List returns all products.
	List(ctx context.Context) ([]models.Product, error)
	// Method Get returns a product by ID.
	//
	// If product with such ID does not exist, models.ErrProductNotFound will be returned together with "nil" value.
	Get(ctx context.Context, id int) (*models.Product, error)
	// Method Update changes the given fields of a product owned by the seller.
	//
	// If the product does not exist or belongs to another seller, models.ErrProductRetrieval will be returned together with "nil" value.
	Update(ctx context.Context, seller *models.User, id int, req *models.ProductRequest) (*models.Product, error)
	// Method Delete removes a product owned by the seller.
	//
	// If the product does not exist or belongs to another seller, models.ErrProductRetrieval will be returned.
	Delete(ctx context.Context, seller *models.User, id int) error
}

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	BaseHandler
	productService ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService ProductService, logger *zap.Logger, debug bool) *ProductHandler {
	return &ProductHandler{
		BaseHandler:    BaseHandler{Logger: logger, Debug: debug},
		productService: productService,
	}
}

// RegisterRoutes registers all product handler routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	sellerOnly := middleware.RequireCapability(models.CapabilitySeller)

	r.Route("/products", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(sellerOnly).Post("/create", h.Create)
		r.With(sellerOnly).Put("/{id}", h.Update)
		r.With(sellerOnly).Delete("/{id}", h.Delete)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(models.CapabilityBuyerOrSeller))
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
		})
	})
}

// productID parses the {id} path parameter
func productID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// Create handles POST /products/create
// @Summary Create a product
// @Description Creates a product owned by the calling seller. Cost must be a positive multiple of 5.
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProductRequest true "New product"
// @Success 201 {object} models.ProductResponse "Created product"
// @Failure 400 {object} ErrorResponse "Validation errors"
// @Failure 403 {object} ErrorResponse "User is not a seller"
// @Router /products/create [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req models.ProductRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	product, err := h.productService.Create(r.Context(), &principal.User, &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, product.ToResponse())
}

// List handles GET /products
// @Summary List products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ProductResponse "All products"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.ProductsToResponse(products))
}

// Get handles GET /products/{id}
// @Summary Get a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.ProductResponse "Product"
// @Failure 404 {object} ErrorResponse "Product not found"
// @Router /products/{id} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		h.RespondServiceError(w, r, models.ErrProductNotFound)
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, product.ToResponse())
}

// Update handles PUT /products/{id}
// @Summary Update own product
// @Description Changes the given fields. Missing and foreign products both yield "Product retrieval".
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body models.ProductRequest true "Fields to change"
// @Success 200 {object} models.ProductResponse "Updated product"
// @Failure 400 {object} ErrorResponse "Validation errors or product retrieval failure"
// @Failure 403 {object} ErrorResponse "User is not a seller"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, ok := productID(r)
	if !ok {
		h.RespondServiceError(w, r, models.ErrProductRetrieval)
		return
	}

	var req models.ProductRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	product, err := h.productService.Update(r.Context(), &principal.User, id, &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, product.ToResponse())
}

// Delete handles DELETE /products/{id}
// @Summary Delete own product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.APIMessage "Product deleted"
// @Failure 400 {object} ErrorResponse "Product retrieval failure"
// @Failure 403 {object} ErrorResponse "User is not a seller"
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, ok := productID(r)
	if !ok {
		h.RespondServiceError(w, r, models.ErrProductRetrieval)
		return
	}

	if err := h.productService.Delete(r.Context(), &principal.User, id); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.APIMessage{Message: "Product deleted successfully", Success: true})
}
