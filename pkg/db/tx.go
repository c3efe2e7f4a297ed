// Package db defines the unit-of-work contract shared by the storage backends.
package db

import "context"

// TxFunc runs inside a unit of work. Repositories must be called with the ctx it
// receives so their writes join the same transaction.
type TxFunc func(ctx context.Context) error

// TransactionManager commits every write performed by fn, or none of them.
// Calls nested inside a running transaction join it.
type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TxFunc) error
}
