// Package memory provides an in-process unit of work for the memory backends.
//
// Writes are applied immediately; each repository registers an undo step on the
// journal carried in ctx, and a failed transaction replays those steps in reverse.
// Isolation between writers of one property comes from the property lock, not from
// the journal.
package memory

import (
	"context"
	"staybook/pkg/db"
	"sync"
)

type journalKey struct{}

type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) record(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, fn)
}

func (j *journal) rollback() {
	j.mu.Lock()
	steps := j.undo
	j.undo = nil
	j.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

type transactionManager struct{}

func NewTransactionManager() db.TransactionManager {
	return &transactionManager{}
}

func (m *transactionManager) ExecuteTransaction(ctx context.Context, fn db.TxFunc) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// RecordUndo registers fn to run if the surrounding transaction fails.
// Outside a transaction it does nothing.
func RecordUndo(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.record(fn)
	}
}
