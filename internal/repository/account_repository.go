package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/errors"
	"balance-ledger/internal/statekey"
	"balance-ledger/internal/statestore"
)

// accountRepository reads and writes account records through the keyed
// store view of one invocation. It holds no state of its own; the store is
// the sole source of truth and every operation re-reads it.
type accountRepository struct {
	state  statestore.State
	logger *slog.Logger
}

func NewAccountRepository(state statestore.State, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		state:  state,
		logger: logger,
	}
}

func (r *accountRepository) Exists(ctx context.Context, id string) (bool, error) {
	key, err := statekey.For(statekey.EntityAccount, id)
	if err != nil {
		return false, err
	}

	_, found, err := r.state.Get(ctx, key)
	if err != nil {
		r.logger.Error("Failed to probe account", "account_id", id, "error", err)
		return false, errors.NewAppError(errors.InternalError, "failed to read account").WithDetails(err.Error())
	}
	return found, nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	key, err := statekey.For(statekey.EntityAccount, id)
	if err != nil {
		return nil, err
	}

	value, found, err := r.state.Get(ctx, key)
	if err != nil {
		r.logger.Error("Failed to read account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to read account").WithDetails(err.Error())
	}
	if !found {
		r.logger.Warn("Account not found", "account_id", id)
		return nil, errors.ErrAccountNotFound
	}

	return decodeAccount(value)
}

func (r *accountRepository) Put(ctx context.Context, account *domain.Account) error {
	key, err := statekey.For(statekey.EntityAccount, account.ID)
	if err != nil {
		return err
	}

	value, err := json.Marshal(account)
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to encode account").WithDetails(err.Error())
	}

	if err := r.state.Put(ctx, key, value); err != nil {
		r.logger.Error("Failed to write account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to write account").WithDetails(err.Error())
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	it, err := r.state.Range(ctx,
		statekey.Prefix(statekey.EntityAccount),
		statekey.PrefixEnd(statekey.EntityAccount))
	if err != nil {
		r.logger.Error("Range query failed to start", "error", err)
		return nil, errors.ErrQueryUnavailable.WithDetails(err.Error())
	}
	defer it.Close()

	accounts := []domain.Account{}
	for it.Next() {
		account, err := decodeAccount(it.Value())
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := it.Err(); err != nil {
		r.logger.Error("Range query aborted", "error", err)
		return nil, errors.ErrQueryUnavailable.WithDetails(err.Error())
	}

	return accounts, nil
}

func decodeAccount(value []byte) (*domain.Account, error) {
	var account domain.Account
	if err := json.Unmarshal(value, &account); err != nil {
		return nil, errors.ErrCorruptRecord.WithDetails(err.Error())
	}
	if account.ID == "" {
		return nil, errors.ErrCorruptRecord.WithDetails("record has no id")
	}
	return &account, nil
}
