// Package store groups the accounts and assignments collections behind one
// handle that can also run a function atomically. Two implementations exist:
// PostgresStore for deployments and MemoryStore for tests and single-node use.
package store

import (
	"context"

	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/assignments"
)

// Store is the credential store. Repositories returned from a Store handed to
// a WithTx callback operate inside that transaction.
type Store interface {
	Accounts() accounts.Repository
	Assignments() assignments.Repository
	// WithTx runs fn atomically. Any error returned by fn discards every
	// write fn made. Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	Ping(ctx context.Context) error
}
