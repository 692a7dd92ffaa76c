package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vendingmachine/backend/internal/auth"
	"github.com/vendingmachine/backend/internal/metrics"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Transactor is the interface that wraps transactional execution
type Transactor interface {
	// Method WithinTx runs fn inside a single database transaction.
	//
	// Repository calls made with the context passed to fn join the transaction.
	//
	// If fn returns an error, the transaction is rolled back and the error is returned.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository is the interface that wraps methods for User table data access
type UserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user, its ID is set on success.
	//
	// If the username is already taken, models.ErrUsernameTaken will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, models.ErrUserNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method GetByUsername retrieves a user by username.
	//
	// If user with such username does not exist, models.ErrUserNotFound will be returned together with "nil" value.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Method ExistsByUsername checks if a user with such username exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Method List retrieves all users.
	List(ctx context.Context) ([]models.User, error)
	// Method LockByID retrieves a user by ID and locks the row for the surrounding transaction.
	//
	// If user with such ID does not exist, models.ErrUserNotFound will be returned together with "nil" value.
	LockByID(ctx context.Context, id int) (*models.User, error)
	// Method Update stores the password hash and disabled flag of the user.
	//
	// Role and deposit are left untouched.
	Update(ctx context.Context, user *models.User) error
	// Method Delete removes a user by ID.
	//
	// If user with such ID does not exist, models.ErrUserNotFound will be returned.
	Delete(ctx context.Context, id int) error
	// Method ClearExpiredDeposits zeroes the deposit of buyers left without an active session at "now".
	ClearExpiredDeposits(ctx context.Context, now time.Time) error
	// Method SetDeposit sets the deposit of a buyer. Sellers are not affected.
	SetDeposit(ctx context.Context, userID int, amount int) error
}

// SessionRepository is the interface that wraps methods for UserSession table data access
type SessionRepository interface {
	// Method Create inserts a new session, its ID is set on success.
	Create(ctx context.Context, session *models.Session) error
	// Method GetByID retrieves a session by ID.
	//
	// If session with such ID does not exist, models.ErrSessionNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Session, error)
	// Method GetByIDForUpdate retrieves a session by ID and locks the row for the surrounding transaction.
	//
	// If session with such ID does not exist, models.ErrSessionNotFound will be returned together with "nil" value.
	GetByIDForUpdate(ctx context.Context, id int) (*models.Session, error)
	// Method GetLatestByUserID retrieves the most recent session of a user.
	//
	// If the user has no session, models.ErrSessionNotFound will be returned together with "nil" value.
	GetLatestByUserID(ctx context.Context, userID int) (*models.Session, error)
	// Method UpdateDepositedAmount sets the balance of a session.
	UpdateDepositedAmount(ctx context.Context, id int, amount int) error
	// Method DeleteExpiredByUserID removes the sessions of a user that expired at or before "now".
	DeleteExpiredByUserID(ctx context.Context, userID int, now time.Time) (int64, error)
	// Method DeleteExpired removes all sessions that expired at or before "now" and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionProductRepository is the interface that wraps methods for SessionProduct table data access
type SessionProductRepository interface {
	// Method CreateBatch records "quantity" purchased units of a product against a session.
	CreateBatch(ctx context.Context, sessionID, productID, quantity int, createdAt time.Time) error
	// Method DeleteBySessionID removes every purchase line of a session.
	DeleteBySessionID(ctx context.Context, sessionID int) error
	// Method ListProductsBySessionID returns the product of every purchase line of a session.
	ListProductsBySessionID(ctx context.Context, sessionID int) ([]models.Product, error)
	// Method DeleteExpiredByUserID removes purchase lines of a user's sessions that expired at or before "now".
	DeleteExpiredByUserID(ctx context.Context, userID int, now time.Time) error
	// Method DeleteExpired removes purchase lines of all sessions that expired at or before "now".
	DeleteExpired(ctx context.Context, now time.Time) error
}

// authService implements the session manager
type authService struct {
	transactor         Transactor
	userRepo           UserRepository
	sessionRepo        SessionRepository
	sessionProductRepo SessionProductRepository
	tokenGenerator     *auth.TokenGenerator
	sessionTimeout     time.Duration
	logger             *zap.Logger
	now                func() time.Time
}

// NewAuthService creates a new auth service.
// "sessionTimeout" is the lifetime of both the session and its access token.
func NewAuthService(
	transactor Transactor,
	userRepo UserRepository,
	sessionRepo SessionRepository,
	sessionProductRepo SessionProductRepository,
	tokenGenerator *auth.TokenGenerator,
	sessionTimeout time.Duration,
	logger *zap.Logger,
) *authService {
	return &authService{
		transactor:         transactor,
		userRepo:           userRepo,
		sessionRepo:        sessionRepo,
		sessionProductRepo: sessionProductRepo,
		tokenGenerator:     tokenGenerator,
		sessionTimeout:     sessionTimeout,
		logger:             logger,
		now:                utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Login verifies the credentials, opens a new session and returns its access token.
// It fails with a conflict while the user still has an unexpired session.
func (s *authService) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrUserNotFound) {
		metrics.RecordLogin("invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		metrics.RecordLogin("error")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		metrics.RecordLogin("invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}

	if user.Disabled {
		metrics.RecordLogin("inactive")
		return nil, models.ErrInactiveUser
	}

	var token string
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		// Serializes concurrent logins of the same user
		if _, err := s.userRepo.LockByID(ctx, user.ID); err != nil {
			return err
		}

		now := s.now()

		latest, err := s.sessionRepo.GetLatestByUserID(ctx, user.ID)
		switch {
		case err == nil && latest.IsActive(now):
			return models.ErrActiveSession
		case err != nil && !errors.Is(err, models.ErrSessionNotFound):
			return err
		}

		if err := s.sessionProductRepo.DeleteExpiredByUserID(ctx, user.ID, now); err != nil {
			return err
		}
		if _, err := s.sessionRepo.DeleteExpiredByUserID(ctx, user.ID, now); err != nil {
			return err
		}

		session := &models.Session{
			UserID:     user.ID,
			ExpiryTime: now.Add(s.sessionTimeout),
			CreatedAt:  now,
		}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return err
		}

		if err := s.userRepo.SetDeposit(ctx, user.ID, 0); err != nil {
			return err
		}

		// Signing inside the transaction rolls the session back if it fails
		token, err = s.tokenGenerator.Generate(user.ID, session.ID, session.ExpiryTime)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrActiveSession) {
			metrics.RecordLogin("active_session")
			return nil, err
		}
		metrics.RecordLogin("error")
		s.logger.Error("failed to open session", zap.Error(err), zap.Int("user_id", user.ID))
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	metrics.RecordLogin("success")
	s.logger.Info("user logged in", zap.Int("user_id", user.ID))

	return &models.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Resolve turns a bearer token into the calling user and their active session
func (s *authService) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokenGenerator.Validate(token)
	if err != nil {
		s.logger.Debug("rejected access token", zap.Error(err))
		return nil, models.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Disabled {
		return nil, models.ErrInactiveUser
	}

	session, err := s.sessionRepo.GetByID(ctx, claims.SessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return nil, models.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.UserID != user.ID || !session.IsActive(s.now()) {
		return nil, models.ErrInvalidToken
	}

	return &models.Principal{User: *user, SessionID: session.ID}, nil
}

// Reset clears the balance and purchase lines of the caller's session. Calling it twice is harmless.
func (s *authService) Reset(ctx context.Context, principal *models.Principal) error {
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.sessionRepo.GetByIDForUpdate(ctx, principal.SessionID); err != nil {
			return err
		}
		if err := s.sessionProductRepo.DeleteBySessionID(ctx, principal.SessionID); err != nil {
			return err
		}
		if err := s.sessionRepo.UpdateDepositedAmount(ctx, principal.SessionID, 0); err != nil {
			return err
		}
		return s.userRepo.SetDeposit(ctx, principal.User.ID, 0)
	})
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("failed to reset session: %w", err)
	}

	return nil
}

// PurgeExpired removes every expired session with its purchase lines and returns how many sessions were removed
func (s *authService) PurgeExpired(ctx context.Context) (int64, error) {
	var purged int64
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		if err := s.userRepo.ClearExpiredDeposits(ctx, now); err != nil {
			return err
		}
		if err := s.sessionProductRepo.DeleteExpired(ctx, now); err != nil {
			return err
		}
		var err error
		purged, err = s.sessionRepo.DeleteExpired(ctx, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	metrics.RecordSessionsPurged(purged)
	return purged, nil
}
