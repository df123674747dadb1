// Package identity carries the attested caller of the current invocation.
// The principal is ambient per invocation: the host surface resolves it once
// and threads it through the context, never through global state.
package identity

import (
	"context"
	"fmt"

	"balance-ledger/internal/errors"
)

// Principal identifies who issued an invocation: the organization the
// caller belongs to plus the caller's own unique id within it.
type Principal struct {
	Org string `json:"org"`
	ID  string `json:"id"`
}

func (p Principal) String() string {
	return fmt.Sprintf("%s/%s", p.Org, p.ID)
}

type contextKey struct{}

// WithPrincipal returns a context carrying the attested caller.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext resolves the current caller. It fails when the host supplied
// no identity, which should not happen inside a validated invocation.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	if !ok || p.Org == "" || p.ID == "" {
		return Principal{}, errors.ErrNoIdentity
	}
	return p, nil
}
