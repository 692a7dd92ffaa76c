package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// statusRepository reads server state from the database
type statusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *sql.DB, logger *zap.Logger) *statusRepository {
	return &statusRepository{
		db:     db,
		logger: logger,
	}
}

// SystemTime returns the database clock in UTC, proving the database is reachable.
// UTC_TIMESTAMP does not depend on the session time zone, unlike NOW.
func (r *statusRepository) SystemTime(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT UTC_TIMESTAMP()`).Scan(&now); err != nil {
		r.logger.Error("failed to read database time", zap.Error(err))
		return time.Time{}, fmt.Errorf("failed to read database time: %w", err)
	}
	return now.UTC(), nil
}
