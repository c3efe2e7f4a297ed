package memory

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteTransaction_RollsBackInReverseOrder(t *testing.T) {
	tm := NewTransactionManager()
	var order []int
	state := 0

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		state = 1
		RecordUndo(ctx, func() { order = append(order, 1); state = 0 })
		state = 2
		RecordUndo(ctx, func() { order = append(order, 2); state = 1 })
		return errors.New("boom")
	})

	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if state != 0 {
		t.Errorf("expected state to be restored, got %d", state)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("expected undo order [2 1], got %v", order)
	}
}

func TestExecuteTransaction_CommitKeepsWrites(t *testing.T) {
	tm := NewTransactionManager()
	undone := false

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		RecordUndo(ctx, func() { undone = true })
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if undone {
		t.Error("undo must not run on commit")
	}
}

func TestExecuteTransaction_NestedJoinsOuter(t *testing.T) {
	tm := NewTransactionManager()
	undone := false

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		if err := tm.ExecuteTransaction(ctx, func(inner context.Context) error {
			RecordUndo(inner, func() { undone = true })
			return nil
		}); err != nil {
			return err
		}
		return errors.New("outer failed")
	})
	if err == nil {
		t.Fatal("expected outer error")
	}
	if !undone {
		t.Error("inner writes must roll back with the outer transaction")
	}
}

func TestRecordUndo_OutsideTransaction(t *testing.T) {
	RecordUndo(context.Background(), func() { t.Error("must not be called") })
}
