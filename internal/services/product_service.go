package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

const maxProductNameLength = 255

// ProductRepository is the interface that wraps methods for Product table data access
type ProductRepository interface {
	// Method Create inserts a new product, its ID is set on success.
	Create(ctx context.Context, product *models.Product) error
	// Method GetByID retrieves a product by ID.
	//
	// If product with such ID does not exist, models.ErrProductNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Product, error)
	// Method GetByIDForUpdate retrieves a product by ID and locks the row for the surrounding transaction.
	//
	// If product with such ID does not exist, models.ErrProductNotFound will be returned together with "nil" value.
	GetByIDForUpdate(ctx context.Context, id int) (*models.Product, error)
	// Method List retrieves all products.
	List(ctx context.Context) ([]models.Product, error)
	// Method ListAvailable retrieves products with at least one unit in stock.
	ListAvailable(ctx context.Context) ([]models.Product, error)
	// Method Update stores name, cost and stock of the product.
	Update(ctx context.Context, product *models.Product) error
	// Method Delete removes a product by ID.
	//
	// If product with such ID does not exist, models.ErrProductNotFound will be returned.
	Delete(ctx context.Context, id int) error
	// Method DecrementStock removes "quantity" units from stock.
	//
	// If fewer units are available, models.ErrInsufficientStock will be returned and stock is unchanged.
	DecrementStock(ctx context.Context, id int, quantity int) error
}

// productService implements the product catalog
type productService struct {
	transactor  Transactor
	productRepo ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(transactor Transactor, productRepo ProductRepository, logger *zap.Logger) *productService {
	return &productService{
		transactor:  transactor,
		productRepo: productRepo,
		logger:      logger,
	}
}

// validateProduct checks the request fields. With "partial" set, absent fields are allowed.
func validateProduct(req *models.ProductRequest, partial bool) error {
	verr := &models.ValidationError{}

	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		switch {
		case name == "":
			verr.Add("Product name cannot be empty")
		case utf8.RuneCountInString(name) > maxProductNameLength:
			verr.Add(fmt.Sprintf("Product name must be at most %d characters", maxProductNameLength))
		}
	} else if !partial {
		verr.Add("Product name is required")
	}

	if req.Cost != nil {
		if *req.Cost <= 0 || *req.Cost%models.CostStep != 0 {
			verr.Add(fmt.Sprintf("Cost must be a positive multiple of %d", models.CostStep))
		}
	} else if !partial {
		verr.Add("Cost is required")
	}

	if req.AmountAvailable != nil {
		if *req.AmountAvailable < 0 {
			verr.Add("Amount available cannot be negative")
		}
	} else if !partial {
		verr.Add("Amount available is required")
	}

	if req.SellerID != nil {
		verr.Add("Seller ID cannot be set")
	}

	return verr.OrNil()
}

// Create adds a product owned by the seller
func (s *productService) Create(ctx context.Context, seller *models.User, req *models.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req, false); err != nil {
		return nil, err
	}

	product := &models.Product{
		ProductName:     strings.TrimSpace(*req.ProductName),
		Cost:            *req.Cost,
		AmountAvailable: *req.AmountAvailable,
		SellerID:        seller.ID,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created", zap.Int("product_id", product.ID), zap.Int("seller_id", seller.ID))
	return product, nil
}

// List returns all products
func (s *productService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Get returns a single product
func (s *productService) Get(ctx context.Context, id int) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// lockOwned locks a product of the seller. Missing and foreign products are indistinguishable to the caller.
func (s *productService) lockOwned(ctx context.Context, seller *models.User, id int) (*models.Product, error) {
	product, err := s.productRepo.GetByIDForUpdate(ctx, id)
	if errors.Is(err, models.ErrProductNotFound) {
		return nil, models.ErrProductRetrieval
	}
	if err != nil {
		return nil, err
	}
	if product.SellerID != seller.ID {
		return nil, models.ErrProductRetrieval
	}
	return product, nil
}

// Update changes the given fields of a product owned by the seller
func (s *productService) Update(ctx context.Context, seller *models.User, id int, req *models.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req, true); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.lockOwned(ctx, seller, id)
		if err != nil {
			return err
		}

		if req.ProductName != nil {
			product.ProductName = strings.TrimSpace(*req.ProductName)
		}
		if req.Cost != nil {
			product.Cost = *req.Cost
		}
		if req.AmountAvailable != nil {
			product.AmountAvailable = *req.AmountAvailable
		}

		return s.productRepo.Update(ctx, product)
	})
	if err != nil {
		if errors.Is(err, models.ErrProductRetrieval) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info("product updated", zap.Int("product_id", product.ID), zap.Int("seller_id", seller.ID))
	return product, nil
}

// Delete removes a product owned by the seller
func (s *productService) Delete(ctx context.Context, seller *models.User, id int) error {
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockOwned(ctx, seller, id); err != nil {
			return err
		}
		return s.productRepo.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, models.ErrProductRetrieval) {
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("product deleted", zap.Int("product_id", id), zap.Int("seller_id", seller.ID))
	return nil
}
