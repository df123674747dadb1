// Package statestore is the keyed durable store the ledger core runs
// against. The contract mirrors what a transaction-processing host provides:
// single-key get/put, a forward-only range query, and an invocation envelope
// under which all writes commit together or not at all.
package statestore

import (
	"context"
)

// State is the keyed view of the store inside one invocation. Put overwrites
// unconditionally; write-conflict detection between concurrent invocations
// belongs to the backend.
type State interface {
	// Get returns the stored value, or found=false when the key is absent.
	// Absence is a normal result, not an error.
	Get(ctx context.Context, key []byte) (value []byte, found bool, err error)

	// Put writes value under key, replacing any prior value.
	Put(ctx context.Context, key, value []byte) error

	// Range returns an iterator over [start, end) in key order. The
	// iterator is single-pass and must be drained or closed within the
	// current invocation.
	Range(ctx context.Context, start, end []byte) (Iterator, error)
}

// Iterator walks a range query result in the style of sql.Rows.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Store hands out invocations. An error returned by fn rolls back every
// write fn issued; a nil return commits them atomically.
type Store interface {
	WithInvocation(ctx context.Context, fn func(State) error) error
	Close() error
}
