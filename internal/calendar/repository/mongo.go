package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/calendar/conflict"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCalendarRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCalendarRepository(cfg *config.Config) CalendarRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCalendarRepository{
		cfg:        cfg,
		collection: db.Collection(BlocksCollectionName),
	}
}

func overlapFilter(propertyID string, r model.DateRange) bson.M {
	return bson.M{
		"property_id": propertyID,
		"range.start": bson.M{"$lt": r.End},
		"range.end":   bson.M{"$gt": r.Start},
	}
}

func (r *mongoCalendarRepository) ListBlocks(ctx context.Context, propertyID string, dr model.DateRange) ([]*model.CalendarBlock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}})
	cursor, err := r.collection.Find(ctx, overlapFilter(propertyID, dr), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar blocks: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.CalendarBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode calendar blocks: %w", err)
	}
	return blocks, nil
}

func (r *mongoCalendarRepository) FindBlockByID(ctx context.Context, id string) (*model.CalendarBlock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var block model.CalendarBlock
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&block)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to find calendar block: %w", err)
	}
	return &block, nil
}

func (r *mongoCalendarRepository) InsertBlock(ctx context.Context, block *model.CalendarBlock) (string, error) {
	existing, err := r.ListBlocks(ctx, block.PropertyID, block.Range)
	if err != nil {
		return "", err
	}
	if err := conflict.CheckConflict(block.Range, existing); err != nil {
		return "", err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if block.ID == "" {
		block.ID = primitive.NewObjectID().Hex()
	}
	block.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, block); err != nil {
		return "", fmt.Errorf("failed to insert calendar block: %w", err)
	}
	return block.ID, nil
}

func (r *mongoCalendarRepository) ReleaseBlock(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to release calendar block: %w", err)
	}
	return nil
}

func (r *mongoCalendarRepository) ReplaceBlockKind(ctx context.Context, id string, kind model.BlockKind) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"kind": kind}})
	if err != nil {
		return fmt.Errorf("failed to update calendar block: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrBlockNotFound
	}
	return nil
}
