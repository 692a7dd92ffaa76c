package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

const mysqlDuplicateEntry = 1062

const userColumns = `id, username, hashed_password, role, deposit, disabled`

// userRepository implements the user store
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var deposit sql.NullInt64
	if err := row.Scan(&user.ID, &user.Username, &user.HashedPassword, &role, &deposit, &user.Disabled); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if deposit.Valid {
		value := int(deposit.Int64)
		user.Deposit = &value
	}
	return user, nil
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, hashed_password, role, deposit, disabled)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		user.Username, user.HashedPassword, string(user.Role), nullableInt(user.Deposit), user.Disabled)
	if err != nil {
		if isDuplicateEntry(err) {
			return models.ErrUsernameTaken
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = int(id)
	return nil
}

func (r *userRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		r.logger.Error("failed to get user by id", zap.Error(err), zap.Int("user_id", id))
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, err
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		r.logger.Error("failed to get user by username", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, err
}

// LockByID retrieves a user by ID and locks the row until the surrounding transaction ends
func (r *userRepository) LockByID(ctx context.Context, id int) (*models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? FOR UPDATE`, id)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		r.logger.Error("failed to lock user", zap.Error(err), zap.Int("user_id", id))
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, err
}

// ExistsByUsername checks if a user exists with the given username
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT * FROM users WHERE username = ?)`

	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, username).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check username existence", zap.Error(err), zap.String("username", username))
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// List retrieves all users ordered by ID
func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		r.logger.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			r.logger.Error("failed to scan user", zap.Error(err))
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating users", zap.Error(err))
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Update stores the password hash and disabled flag of a user.
// Role and deposit are never written here, deposit belongs to the ledger.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET hashed_password = ?, disabled = ?
		WHERE id = ?
	`

	// MySQL reports 0 affected rows for unchanged values, so the row count is not checked
	_, err := conn(ctx, r.db).ExecContext(ctx, query, user.HashedPassword, user.Disabled, user.ID)
	if err != nil {
		r.logger.Error("failed to update user", zap.Error(err), zap.Int("user_id", user.ID))
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// Delete removes a user; products and sessions go with it
func (r *userRepository) Delete(ctx context.Context, id int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete user", zap.Error(err), zap.Int("user_id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("failed to get rows affected", zap.Error(err))
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrUserNotFound
	}

	return nil
}

// ClearExpiredDeposits zeroes the deposit of buyers whose sessions expired at or before now
// and who have no active session left
func (r *userRepository) ClearExpiredDeposits(ctx context.Context, now time.Time) error {
	query := `
		UPDATE users
		SET deposit = 0
		WHERE role = 'BUYER'
			AND EXISTS (SELECT 1 FROM user_sessions s WHERE s.user_id = users.id AND s.expiry_time <= ?)
			AND NOT EXISTS (SELECT 1 FROM user_sessions a WHERE a.user_id = users.id AND a.expiry_time > ?)
	`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, now, now); err != nil {
		r.logger.Error("failed to clear expired deposits", zap.Error(err))
		return fmt.Errorf("failed to clear expired deposits: %w", err)
	}

	return nil
}

// SetDeposit mirrors a buyer's session balance onto the user row. Sellers are left untouched.
func (r *userRepository) SetDeposit(ctx context.Context, userID int, amount int) error {
	query := `UPDATE users SET deposit = ? WHERE id = ? AND role = 'BUYER'`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, amount, userID); err != nil {
		r.logger.Error("failed to set user deposit", zap.Error(err), zap.Int("user_id", userID))
		return fmt.Errorf("failed to set user deposit: %w", err)
	}

	return nil
}
