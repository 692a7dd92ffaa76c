package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength = 64
	// bcrypt ignores input beyond 72 bytes
	maxPasswordBytes = 72
)

// userService implements the credential store
type userService struct {
	userRepo UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository, logger *zap.Logger) *userService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func validateUsername(verr *models.ValidationError, username string) bool {
	switch {
	case strings.TrimSpace(username) == "":
		verr.Add("Username is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		verr.Add(fmt.Sprintf("Username must be at most %d characters", maxUsernameLength))
	case isNumeric(username):
		verr.Add("Username must contain at least one non-digit character")
	default:
		return true
	}
	return false
}

func validatePassword(verr *models.ValidationError, password string) {
	switch {
	case password == "":
		verr.Add("Password is required")
	case len(password) > maxPasswordBytes:
		verr.Add(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
}

// isNumeric reports whether s is a non-empty run of ASCII digits
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Create validates a registration request and stores the new user with a bcrypt password hash
func (s *userService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	verr := &models.ValidationError{}

	usernameValid := validateUsername(verr, req.Username)
	validatePassword(verr, req.Password)

	role, ok := models.ParseRole(req.Role)
	if !ok {
		verr.Add("Role must be one of: BUYER, SELLER")
	}
	if req.Deposit != nil {
		verr.Add("Deposit cannot be set on user creation")
	}
	if req.HashedPassword != nil {
		verr.Add("Hashed password cannot be set directly")
	}

	if usernameValid {
		exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			verr.Add(models.ErrUsernameTaken.Error())
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:       req.Username,
		HashedPassword: string(hash),
		Role:           role,
	}
	if role == models.RoleBuyer {
		zero := 0
		user.Deposit = &zero
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Int("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// List returns all users
func (s *userService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get finds a user by numeric ID or by username
func (s *userService) Get(ctx context.Context, idOrUsername string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if isNumeric(idOrUsername) {
		id, convErr := strconv.Atoi(idOrUsername)
		if convErr != nil {
			return nil, models.ErrUserNotFound
		}
		user, err = s.userRepo.GetByID(ctx, id)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, idOrUsername)
	}

	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// getOwn resolves the target user and checks that it is the caller's own account
func (s *userService) getOwn(ctx context.Context, caller *models.User, idOrUsername string) (*models.User, error) {
	user, err := s.Get(ctx, idOrUsername)
	if err != nil {
		return nil, err
	}
	if user.ID != caller.ID {
		return nil, models.ErrForbiddenUser
	}
	return user, nil
}

// Update changes the password and/or disabled flag of the caller's own account
func (s *userService) Update(ctx context.Context, caller *models.User, idOrUsername string, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.getOwn(ctx, caller, idOrUsername)
	if err != nil {
		return nil, err
	}

	verr := &models.ValidationError{}
	if req.Role != nil {
		verr.Add("Role cannot be changed")
	}
	if req.Deposit != nil {
		verr.Add("Deposit cannot be changed directly")
	}
	if req.HashedPassword != nil {
		verr.Add("Hashed password cannot be set directly")
	}
	if req.Password != nil {
		validatePassword(verr, *req.Password)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = string(hash)
	}
	if req.Disabled != nil {
		user.Disabled = *req.Disabled
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	// deposit may have moved since the read above
	updated, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	s.logger.Info("user updated", zap.Int("user_id", user.ID))
	return updated, nil
}

// Delete removes the caller's own account together with its products and sessions
func (s *userService) Delete(ctx context.Context, caller *models.User, idOrUsername string) error {
	user, err := s.getOwn(ctx, caller, idOrUsername)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user deleted", zap.Int("user_id", user.ID))
	return nil
}
