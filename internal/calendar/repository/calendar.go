package repository

import (
	"context"
	"staybook/pkg/model"
)

const (
	BlocksCollectionName = "Calendar_blocks"
	LocksCollectionName  = "Property_locks"
)

// CalendarRepository stores the occupied and blocked ranges of each property.
// Mutations are expected to run under the property lock and inside a transaction.
type CalendarRepository interface {
	// ListBlocks returns the blocks of propertyID overlapping r, ordered by start date.
	ListBlocks(ctx context.Context, propertyID string, r model.DateRange) ([]*model.CalendarBlock, error)
	FindBlockByID(ctx context.Context, id string) (*model.CalendarBlock, error)
	// InsertBlock fails with a date_conflict failure when any existing block overlaps.
	InsertBlock(ctx context.Context, block *model.CalendarBlock) (string, error)
	// ReleaseBlock is idempotent: releasing a missing block is a no-op.
	ReleaseBlock(ctx context.Context, id string) error
	ReplaceBlockKind(ctx context.Context, id string, kind model.BlockKind) error
}
