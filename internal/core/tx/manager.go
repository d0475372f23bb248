// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction.
// Nested calls reuse the transaction already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions, used by
// reports that read several tables and need one consistent snapshot.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// AfterCommitter lets services schedule work that must run only once the
// surrounding transaction has committed (cache invalidation, notifications).
type AfterCommitter interface {
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

// Passthrough is a Manager that calls fn directly. Used in tests and by
// components that do not touch the database.
type Passthrough struct{}

func (Passthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Passthrough) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Passthrough) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	fn(ctx)
}
