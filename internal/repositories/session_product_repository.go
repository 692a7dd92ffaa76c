package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// sessionProductRepository implements the purchase line store
type sessionProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionProductRepository creates a new session product repository
func NewSessionProductRepository(db *sql.DB, logger *zap.Logger) *sessionProductRepository {
	return &sessionProductRepository{
		db:     db,
		logger: logger,
	}
}

// maxBatchRows bounds the rows per INSERT to stay under the MySQL placeholder limit
const maxBatchRows = 1000

// CreateBatch records quantity purchased units of a product against a session, one row per unit
func (r *sessionProductRepository) CreateBatch(ctx context.Context, sessionID, productID, quantity int, createdAt time.Time) error {
	for remaining := quantity; remaining > 0; remaining -= maxBatchRows {
		rowsInBatch := min(remaining, maxBatchRows)

		placeholders := make([]string, 0, rowsInBatch)
		args := make([]any, 0, rowsInBatch*3)
		for range rowsInBatch {
			placeholders = append(placeholders, "(?, ?, ?)")
			args = append(args, sessionID, productID, createdAt)
		}

		query := `INSERT INTO session_products (session_id, product_id, created_at) VALUES ` +
			strings.Join(placeholders, ", ")

		if _, err := conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
			r.logger.Error("failed to record purchased products", zap.Error(err),
				zap.Int("session_id", sessionID), zap.Int("product_id", productID), zap.Int("quantity", quantity))
			return fmt.Errorf("failed to record purchased products: %w", err)
		}
	}

	return nil
}

// DeleteBySessionID removes every purchase line of a session
func (r *sessionProductRepository) DeleteBySessionID(ctx context.Context, sessionID int) error {
	query := `DELETE FROM session_products WHERE session_id = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, sessionID); err != nil {
		r.logger.Error("failed to delete purchased products", zap.Error(err), zap.Int("session_id", sessionID))
		return fmt.Errorf("failed to delete purchased products: %w", err)
	}

	return nil
}

// ListProductsBySessionID returns the product of every purchase line of a session, oldest first
func (r *sessionProductRepository) ListProductsBySessionID(ctx context.Context, sessionID int) ([]models.Product, error) {
	query := `
		SELECT p.id, p.product_name, p.cost, p.amount_available, p.seller_id
		FROM session_products sp
		INNER JOIN products p ON p.id = sp.product_id
		WHERE sp.session_id = ?
		ORDER BY sp.id
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, sessionID)
	if err != nil {
		r.logger.Error("failed to list purchased products", zap.Error(err), zap.Int("session_id", sessionID))
		return nil, fmt.Errorf("failed to list purchased products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("failed to scan purchased product", zap.Error(err))
			return nil, fmt.Errorf("failed to scan purchased product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating purchased products", zap.Error(err))
		return nil, fmt.Errorf("error iterating purchased products: %w", err)
	}

	return products, nil
}

// DeleteExpiredByUserID removes the purchase lines of a user's sessions that expired at or before now
func (r *sessionProductRepository) DeleteExpiredByUserID(ctx context.Context, userID int, now time.Time) error {
	query := `
		DELETE sp FROM session_products sp
		INNER JOIN user_sessions us ON us.id = sp.session_id
		WHERE us.user_id = ? AND us.expiry_time <= ?
	`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID, now); err != nil {
		r.logger.Error("failed to delete expired purchased products", zap.Error(err), zap.Int("user_id", userID))
		return fmt.Errorf("failed to delete expired purchased products: %w", err)
	}

	return nil
}

// DeleteExpired removes the purchase lines of every session that expired at or before now
func (r *sessionProductRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	query := `
		DELETE sp FROM session_products sp
		INNER JOIN user_sessions us ON us.id = sp.session_id
		WHERE us.expiry_time <= ?
	`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, now); err != nil {
		r.logger.Error("failed to delete expired purchased products", zap.Error(err))
		return fmt.Errorf("failed to delete expired purchased products: %w", err)
	}

	return nil
}
