package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vendingmachine/backend/internal/metrics"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// machineService implements the deposit ledger and the purchase engine
type machineService struct {
	transactor         Transactor
	userRepo           UserRepository
	productRepo        ProductRepository
	sessionRepo        SessionRepository
	sessionProductRepo SessionProductRepository
	logger             *zap.Logger
	now                func() time.Time
}

// NewMachineService creates a new machine service
func NewMachineService(
	transactor Transactor,
	userRepo UserRepository,
	productRepo ProductRepository,
	sessionRepo SessionRepository,
	sessionProductRepo SessionProductRepository,
	logger *zap.Logger,
) *machineService {
	return &machineService{
		transactor:         transactor,
		userRepo:           userRepo,
		productRepo:        productRepo,
		sessionRepo:        sessionRepo,
		sessionProductRepo: sessionProductRepo,
		logger:             logger,
		now:                utcNow,
	}
}

// lockActiveSession locks the caller's session, an expired session counts as missing
func (s *machineService) lockActiveSession(ctx context.Context, sessionID int) (*models.Session, error) {
	session, err := s.sessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive(s.now()) {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

// Deposit adds a single coin to the caller's session balance and returns the new balance
func (s *machineService) Deposit(ctx context.Context, principal *models.Principal, amount int) (int, error) {
	if amount <= 0 {
		return 0, models.NewValidationError("Amount must be greater than 0")
	}
	if !models.IsValidDenomination(amount) {
		return 0, models.NewValidationError("Amount must be one of the following coins: 5, 10, 20, 50, 100")
	}

	var balance int
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		session, err := s.lockActiveSession(ctx, principal.SessionID)
		if err != nil {
			return err
		}

		balance = session.DepositedAmount + amount
		if err := s.sessionRepo.UpdateDepositedAmount(ctx, session.ID, balance); err != nil {
			return err
		}
		return s.userRepo.SetDeposit(ctx, principal.User.ID, balance)
	})
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to deposit: %w", err)
	}

	metrics.RecordDeposit(amount)
	s.logger.Info("coin deposited",
		zap.Int("user_id", principal.User.ID), zap.Int("amount", amount), zap.Int("balance", balance))

	return balance, nil
}

// Buy purchases "quantity" units of a product from the caller's session balance.
// The session row is always locked before the product row.
func (s *machineService) Buy(ctx context.Context, principal *models.Principal, productID, quantity int) (*models.PurchaseResult, error) {
	if quantity <= 0 {
		return nil, models.NewValidationError("Amount must be greater than 0")
	}

	var result *models.PurchaseResult
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		session, err := s.lockActiveSession(ctx, principal.SessionID)
		if err != nil {
			return err
		}

		product, err := s.productRepo.GetByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		// cost is always positive, dividing avoids overflow on large quantities
		if quantity > session.DepositedAmount/product.Cost {
			return models.ErrInsufficientFunds
		}
		if quantity > product.AmountAvailable {
			return models.ErrInsufficientStock
		}

		if err := s.productRepo.DecrementStock(ctx, product.ID, quantity); err != nil {
			return err
		}

		total := product.Cost * quantity
		balance := session.DepositedAmount - total
		if err := s.sessionRepo.UpdateDepositedAmount(ctx, session.ID, balance); err != nil {
			return err
		}
		if err := s.sessionProductRepo.CreateBatch(ctx, session.ID, product.ID, quantity, s.now()); err != nil {
			return err
		}
		if err := s.userRepo.SetDeposit(ctx, principal.User.ID, balance); err != nil {
			return err
		}

		product.AmountAvailable -= quantity
		result = &models.PurchaseResult{
			Product:    product.ToResponse(),
			Quantity:   quantity,
			TotalSpent: total,
			Balance:    balance,
			Change:     models.BreakIntoCoins(balance),
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientFunds):
			metrics.RecordPurchase("insufficient_funds", quantity)
			return nil, err
		case errors.Is(err, models.ErrInsufficientStock):
			metrics.RecordPurchase("insufficient_stock", quantity)
			return nil, err
		case errors.Is(err, models.ErrNotFound):
			metrics.RecordPurchase("not_found", quantity)
			return nil, err
		}
		metrics.RecordPurchase("error", quantity)
		return nil, fmt.Errorf("failed to buy product: %w", err)
	}

	metrics.RecordPurchase("success", quantity)
	s.logger.Info("product purchased",
		zap.Int("user_id", principal.User.ID),
		zap.Int("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("total_spent", result.TotalSpent),
	)

	return result, nil
}

// Purchases lists the product of every unit bought in the caller's session
func (s *machineService) Purchases(ctx context.Context, principal *models.Principal) ([]models.Product, error) {
	products, err := s.sessionProductRepo.ListProductsBySessionID(ctx, principal.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return products, nil
}

// AvailableProducts lists the products that can currently be bought
func (s *machineService) AvailableProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available products: %w", err)
	}
	return products, nil
}
