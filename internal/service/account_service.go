package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/errors"
	"balance-ledger/internal/identity"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/statestore"
)

// AccountService implements the create/set-balance/get/list operations.
// Each exposed operation runs as one invocation against the store, so the
// host commits or rolls back all of its writes together.
type AccountService struct {
	store  statestore.Store
	logger *slog.Logger
}

func NewAccountService(store statestore.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, accountID, initialBalance string) (*domain.Account, error) {
	s.logger.Info("Creating account", "account_id", accountID, "initial_balance", initialBalance)

	balance, err := parseAmount(initialBalance)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance cannot be negative")
	}

	owner, err := identity.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:      accountID,
		Owner:   owner,
		Balance: balance,
	}

	err = s.store.WithInvocation(ctx, func(state statestore.State) error {
		repo := repository.NewAccountRepository(state, s.logger)

		exists, err := repo.Exists(ctx, accountID)
		if err != nil {
			return err
		}
		if exists {
			return errors.ErrAccountExists
		}

		return repo.Put(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID, "owner", account.Owner)
	return account, nil
}

// SetBalance replaces an existing account's balance. The stored owner is
// carried forward unchanged: ownership binds at creation and is never
// re-stamped by later writes.
func (s *AccountService) SetBalance(ctx context.Context, accountID, newBalance string) (*domain.Account, error) {
	s.logger.Info("Setting balance", "account_id", accountID, "new_balance", newBalance)

	balance, err := parseAmount(newBalance)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, errors.NewAppError(errors.InvalidAmount, "balance cannot be negative")
	}

	var account *domain.Account
	err = s.store.WithInvocation(ctx, func(state statestore.State) error {
		repo := repository.NewAccountRepository(state, s.logger)

		current, err := repo.Get(ctx, accountID)
		if err != nil {
			return err
		}

		current.Balance = balance
		if err := repo.Put(ctx, current); err != nil {
			return err
		}
		account = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Balance updated", "account_id", accountID, "new_balance", balance)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var account *domain.Account
	err := s.store.WithInvocation(ctx, func(state statestore.State) error {
		var err error
		account, err = repository.NewAccountRepository(state, s.logger).Get(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.store.WithInvocation(ctx, func(state statestore.State) error {
		var err error
		accounts, err = repository.NewAccountRepository(state, s.logger).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.NewAppError(errors.InvalidAmount, "amount is not a valid number").WithDetails(err.Error())
	}
	return amount, nil
}
