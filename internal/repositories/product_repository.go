package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

const productColumns = `id, product_name, cost, amount_available, seller_id`

// productRepository implements the product store
type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(&product.ID, &product.ProductName, &product.Cost, &product.AmountAvailable, &product.SellerID)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (product_name, cost, amount_available, seller_id)
		VALUES (?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		product.ProductName, product.Cost, product.AmountAvailable, product.SellerID)
	if err != nil {
		r.logger.Error("failed to create product", zap.Error(err))
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	product.ID = int(id)
	return nil
}

func (r *productRepository) getOne(ctx context.Context, op string, query string, id int) (*models.Product, error) {
	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProductNotFound
	}
	if err != nil {
		r.logger.Error("failed to "+op, zap.Error(err), zap.Int("product_id", id))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return product, nil
}

// GetByID retrieves a product by ID
func (r *productRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	return r.getOne(ctx, "get product by id", `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

// GetByIDForUpdate retrieves a product by ID and locks the row until the surrounding transaction ends
func (r *productRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.Product, error) {
	return r.getOne(ctx, "lock product", `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
}

func (r *productRepository) list(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query products", zap.Error(err))
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("failed to scan product", zap.Error(err))
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating products", zap.Error(err))
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// List retrieves all products ordered by ID
func (r *productRepository) List(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

// ListAvailable retrieves products that are in stock
func (r *productRepository) ListAvailable(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products WHERE amount_available > 0 ORDER BY id`)
}

// Update stores the mutable fields of a product
func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET product_name = ?, cost = ?, amount_available = ?
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		product.ProductName, product.Cost, product.AmountAvailable, product.ID)
	if err != nil {
		r.logger.Error("failed to update product", zap.Error(err), zap.Int("product_id", product.ID))
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product
func (r *productRepository) Delete(ctx context.Context, id int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete product", zap.Error(err), zap.Int("product_id", id))
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("failed to get rows affected", zap.Error(err))
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrProductNotFound
	}

	return nil
}

// DecrementStock removes quantity units from stock.
// The update is guarded so stock never goes negative, a shortfall is reported as insufficient stock.
func (r *productRepository) DecrementStock(ctx context.Context, id int, quantity int) error {
	query := `
		UPDATE products
		SET amount_available = amount_available - ?
		WHERE id = ? AND amount_available >= ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, quantity, id, quantity)
	if err != nil {
		r.logger.Error("failed to decrement stock", zap.Error(err), zap.Int("product_id", id))
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("failed to get rows affected", zap.Error(err))
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrInsufficientStock
	}

	return nil
}
