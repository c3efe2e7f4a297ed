package repository

import (
	"context"
	"sort"
	"sync"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/calendar/conflict"
	"staybook/pkg/clock"
	"staybook/pkg/db/memory"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

type memoryCalendarRepository struct {
	mu     sync.RWMutex
	blocks map[string]*model.CalendarBlock
	clock  clock.Clock
}

func NewMemoryCalendarRepository(clk clock.Clock) CalendarRepository {
	return &memoryCalendarRepository{
		blocks: make(map[string]*model.CalendarBlock),
		clock:  clk,
	}
}

func (r *memoryCalendarRepository) ListBlocks(ctx context.Context, propertyID string, dr model.DateRange) ([]*model.CalendarBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overlapping(propertyID, dr), nil
}

func (r *memoryCalendarRepository) overlapping(propertyID string, dr model.DateRange) []*model.CalendarBlock {
	var out []*model.CalendarBlock
	for _, b := range r.blocks {
		if b.PropertyID == propertyID && b.Range.Overlaps(dr) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}

func (r *memoryCalendarRepository) FindBlockByID(ctx context.Context, id string) (*model.CalendarBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blocks[id]
	if !ok {
		return nil, bookingserrors.ErrBlockNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryCalendarRepository) InsertBlock(ctx context.Context, block *model.CalendarBlock) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := conflict.CheckConflict(block.Range, r.overlapping(block.PropertyID, block.Range)); err != nil {
		return "", err
	}

	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	block.CreatedAt = r.clock.Now()
	cp := *block
	r.blocks[block.ID] = &cp

	id := block.ID
	memory.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.blocks, id)
	})
	return id, nil
}

func (r *memoryCalendarRepository) ReleaseBlock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[id]
	if !ok {
		return nil
	}
	delete(r.blocks, id)

	memory.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.blocks[id] = b
	})
	return nil
}

func (r *memoryCalendarRepository) ReplaceBlockKind(ctx context.Context, id string, kind model.BlockKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[id]
	if !ok {
		return bookingserrors.ErrBlockNotFound
	}
	previous := b.Kind
	b.Kind = kind

	memory.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.blocks[id]; ok {
			cur.Kind = previous
		}
	})
	return nil
}
