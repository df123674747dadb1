package service

import (
	"context"
	"log/slog"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/errors"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/statestore"
)

// TransferService moves value between two accounts. Both legs run inside a
// single invocation: the host commits the two writes together or rolls both
// back, so no observer can see a state where only one leg happened.
type TransferService struct {
	store  statestore.Store
	logger *slog.Logger
}

func NewTransferService(store statestore.Store, logger *slog.Logger) *TransferService {
	return &TransferService{
		store:  store,
		logger: logger,
	}
}

type TransferResult struct {
	From domain.Account
	To   domain.Account
}

func (s *TransferService) Transfer(ctx context.Context, idFrom, idTo, amount string) (*TransferResult, error) {
	s.logger.Info("Processing transfer", "from", idFrom, "to", idTo, "amount", amount)

	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	if !value.IsPositive() {
		return nil, errors.NewAppError(errors.InvalidAmount, "transfer amount must be positive")
	}

	if idFrom == idTo {
		return nil, errors.ErrSameAccount
	}

	var result *TransferResult
	err = s.store.WithInvocation(ctx, func(state statestore.State) error {
		repo := repository.NewAccountRepository(state, s.logger)

		// All reads happen before any write: both new balances are staged
		// and checked, then both records are written.
		from, err := repo.Get(ctx, idFrom)
		if err != nil {
			return err
		}
		to, err := repo.Get(ctx, idTo)
		if err != nil {
			return err
		}

		newFrom := from.Balance.Sub(value)
		if newFrom.IsNegative() {
			return errors.ErrInsufficientBalance
		}
		newTo := to.Balance.Add(value)

		// Value conservation across both legs.
		if !newFrom.Add(newTo).Equal(from.Balance.Add(to.Balance)) {
			return errors.NewAppError(errors.InternalError, "transfer does not conserve value")
		}

		from.Balance = newFrom
		to.Balance = newTo

		if err := repo.Put(ctx, from); err != nil {
			return err
		}
		if err := repo.Put(ctx, to); err != nil {
			return err
		}

		result = &TransferResult{From: *from, To: *to}
		return nil
	})
	if err != nil {
		s.logger.Error("Transfer failed", "from", idFrom, "to", idTo, "error", err)
		return nil, err
	}

	s.logger.Info("Transfer completed",
		"from", idFrom,
		"to", idTo,
		"amount", value,
		"from_balance", result.From.Balance,
		"to_balance", result.To.Balance,
	)
	return result, nil
}
