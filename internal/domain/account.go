package domain

import (
	"context"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/identity"
)

// Account is the persisted ledger record. Balance is non-negative at every
// commit; Owner is the principal that created the account.
type Account struct {
	ID      string             `json:"id"`
	Owner   identity.Principal `json:"owner"`
	Balance decimal.Decimal    `json:"balance"`
}

type AccountRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*Account, error)
	Put(ctx context.Context, account *Account) error
	List(ctx context.Context) ([]Account, error)
}
