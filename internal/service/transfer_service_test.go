package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-ledger/internal/errors"
	"balance-ledger/internal/identity"
	"balance-ledger/internal/statestore"
)

type transferFixture struct {
	accounts  *AccountService
	transfers *TransferService
	ctx       context.Context
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()
	store := statestore.NewMemStore()
	f := &transferFixture{
		accounts:  NewAccountService(store, testLogger()),
		transfers: NewTransferService(store, testLogger()),
		ctx:       callerCtx("org1", "alice"),
	}

	_, err := f.accounts.CreateAccount(f.ctx, "A", "10")
	require.NoError(t, err)
	_, err = f.accounts.CreateAccount(f.ctx, "B", "20")
	require.NoError(t, err)
	return f
}

func (f *transferFixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account, err := f.accounts.GetAccount(f.ctx, id)
	require.NoError(t, err)
	return account.Balance
}

func TestTransferMovesValueAndConservesSum(t *testing.T) {
	f := newTransferFixture(t)

	result, err := f.transfers.Transfer(f.ctx, "A", "B", "5")
	require.NoError(t, err)

	assert.True(t, result.From.Balance.Equal(decimal.NewFromInt(5)))
	assert.True(t, result.To.Balance.Equal(decimal.NewFromInt(25)))

	assert.True(t, f.balance(t, "A").Equal(decimal.NewFromInt(5)))
	assert.True(t, f.balance(t, "B").Equal(decimal.NewFromInt(25)))

	sum := f.balance(t, "A").Add(f.balance(t, "B"))
	assert.True(t, sum.Equal(decimal.NewFromInt(30)))
}

func TestTransferHandlesFractionalAmountsExactly(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.transfers.Transfer(f.ctx, "A", "B", "0.1")
	require.NoError(t, err)
	_, err = f.transfers.Transfer(f.ctx, "A", "B", "0.2")
	require.NoError(t, err)

	assert.True(t, f.balance(t, "A").Equal(decimal.RequireFromString("9.7")))
	assert.True(t, f.balance(t, "B").Equal(decimal.RequireFromString("20.3")))
}

func TestTransferOfEntireBalanceSucceeds(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.transfers.Transfer(f.ctx, "A", "B", "10")
	require.NoError(t, err)

	assert.True(t, f.balance(t, "A").IsZero())
	assert.True(t, f.balance(t, "B").Equal(decimal.NewFromInt(30)))
}

func TestTransferFailsOnInsufficientBalanceBeforeAnyWrite(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.transfers.Transfer(f.ctx, "A", "B", "10.01")
	assertCode(t, err, errors.InsufficientBalance)

	assert.True(t, f.balance(t, "A").Equal(decimal.NewFromInt(10)))
	assert.True(t, f.balance(t, "B").Equal(decimal.NewFromInt(20)))
}

func TestTransferFailsOnSameAccount(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.transfers.Transfer(f.ctx, "A", "A", "5")
	assertCode(t, err, errors.SameAccount)
}

func TestTransferFailsWhenEitherAccountMissing(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.transfers.Transfer(f.ctx, "ghost", "B", "5")
	assertCode(t, err, errors.NotFound)

	_, err = f.transfers.Transfer(f.ctx, "A", "ghost", "5")
	assertCode(t, err, errors.NotFound)

	assert.True(t, f.balance(t, "A").Equal(decimal.NewFromInt(10)))
	assert.True(t, f.balance(t, "B").Equal(decimal.NewFromInt(20)))
}

func TestTransferFailsOnNonPositiveAmount(t *testing.T) {
	f := newTransferFixture(t)

	for _, amount := range []string{"0", "-5", "abc", ""} {
		_, err := f.transfers.Transfer(f.ctx, "A", "B", amount)
		assertCode(t, err, errors.InvalidAmount)
	}

	assert.True(t, f.balance(t, "A").Equal(decimal.NewFromInt(10)))
	assert.True(t, f.balance(t, "B").Equal(decimal.NewFromInt(20)))
}

func TestTransferDoesNotChangeOwnership(t *testing.T) {
	store := statestore.NewMemStore()
	accounts := NewAccountService(store, testLogger())
	transfers := NewTransferService(store, testLogger())

	_, err := accounts.CreateAccount(callerCtx("org1", "alice"), "A", "10")
	require.NoError(t, err)
	_, err = accounts.CreateAccount(callerCtx("org2", "bob"), "B", "20")
	require.NoError(t, err)

	// Carol moves value she has no stake in; owners stay put.
	_, err = transfers.Transfer(callerCtx("org3", "carol"), "A", "B", "5")
	require.NoError(t, err)

	a, err := accounts.GetAccount(callerCtx("org1", "alice"), "A")
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{Org: "org1", ID: "alice"}, a.Owner)

	b, err := accounts.GetAccount(callerCtx("org1", "alice"), "B")
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{Org: "org2", ID: "bob"}, b.Owner)
}

func TestListAfterTransferReflectsBothLegs(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.transfers.Transfer(f.ctx, "A", "B", "5")
	require.NoError(t, err)

	accounts, err := f.accounts.ListAccounts(f.ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	balances := map[string]decimal.Decimal{}
	for _, a := range accounts {
		balances[a.ID] = a.Balance
	}
	assert.True(t, balances["A"].Equal(decimal.NewFromInt(5)))
	assert.True(t, balances["B"].Equal(decimal.NewFromInt(25)))
}
