package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

const sessionColumns = `id, user_id, expiry_time, deposited_amount, created_at`

// sessionRepository implements the user session store
type sessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB, logger *zap.Logger) *sessionRepository {
	return &sessionRepository{
		db:     db,
		logger: logger,
	}
}

func scanSession(row rowScanner) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(&session.ID, &session.UserID, &session.ExpiryTime, &session.DepositedAmount, &session.CreatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Create inserts a new session
func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, expiry_time, deposited_amount, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		session.UserID, session.ExpiryTime, session.DepositedAmount, session.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create session", zap.Error(err), zap.Int("user_id", session.UserID))
		return fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	session.ID = int(id)
	return nil
}

func (r *sessionRepository) getOne(ctx context.Context, op string, query string, id int) (*models.Session, error) {
	session, err := scanSession(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		r.logger.Error("failed to "+op, zap.Error(err), zap.Int("id", id))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return session, nil
}

// GetByID retrieves a session by ID
func (r *sessionRepository) GetByID(ctx context.Context, id int) (*models.Session, error) {
	return r.getOne(ctx, "get session by id", `SELECT `+sessionColumns+` FROM user_sessions WHERE id = ?`, id)
}

// GetByIDForUpdate retrieves a session by ID and locks the row until the surrounding transaction ends
func (r *sessionRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.Session, error) {
	return r.getOne(ctx, "lock session", `SELECT `+sessionColumns+` FROM user_sessions WHERE id = ? FOR UPDATE`, id)
}

// GetLatestByUserID retrieves the most recently created session of a user
func (r *sessionRepository) GetLatestByUserID(ctx context.Context, userID int) (*models.Session, error) {
	return r.getOne(ctx, "get latest session",
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID)
}

// UpdateDepositedAmount sets the balance of a session
func (r *sessionRepository) UpdateDepositedAmount(ctx context.Context, id int, amount int) error {
	query := `UPDATE user_sessions SET deposited_amount = ? WHERE id = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, amount, id); err != nil {
		r.logger.Error("failed to update deposited amount", zap.Error(err), zap.Int("session_id", id))
		return fmt.Errorf("failed to update deposited amount: %w", err)
	}

	return nil
}

// DeleteExpiredByUserID removes the sessions of a user that expired at or before now
func (r *sessionRepository) DeleteExpiredByUserID(ctx context.Context, userID int, now time.Time) (int64, error) {
	query := `DELETE FROM user_sessions WHERE user_id = ? AND expiry_time <= ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, userID, now)
	if err != nil {
		r.logger.Error("failed to delete expired sessions", zap.Error(err), zap.Int("user_id", userID))
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return result.RowsAffected()
}

// DeleteExpired removes every session that expired at or before now
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM user_sessions WHERE expiry_time <= ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		r.logger.Error("failed to delete expired sessions", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return result.RowsAffected()
}
