package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"staybook/pkg/config"
	"staybook/pkg/lock"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	lockRetryInitial = 10 * time.Millisecond
	lockRetryMax     = 200 * time.Millisecond
)

// mongoPropertyLocker is an advisory lock shared by every process using the same
// database. A lock document whose expires_at has passed is taken over, so a crashed
// holder blocks its property for at most the lock TTL.
type mongoPropertyLocker struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPropertyLocker(cfg *config.Config) lock.Locker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPropertyLocker{
		cfg:        cfg,
		collection: db.Collection(LocksCollectionName),
	}
}

func (l *mongoPropertyLocker) Acquire(ctx context.Context, propertyID string) (lock.Release, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.LockWaitTimeout)
	defer cancel()

	owner := uuid.NewString()
	backoff := lockRetryInitial

	for {
		acquired, err := l.tryAcquire(ctx, propertyID, owner)
		if acquired {
			return l.releaseFunc(propertyID, owner), nil
		}
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire property lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %q: %v", lock.ErrTimeout, propertyID, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, lockRetryMax)
	}
}

func (l *mongoPropertyLocker) tryAcquire(ctx context.Context, propertyID, owner string) (bool, error) {
	now := time.Now().UTC()
	doc := model.PropertyLock{
		ID:        propertyID,
		Owner:     owner,
		ExpiresAt: now.Add(l.cfg.LockTTL),
		CreatedAt: now,
	}

	_, err := l.collection.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, err
	}

	result, err := l.collection.UpdateOne(ctx,
		bson.M{"_id": propertyID, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": doc.ExpiresAt, "created_at": now}},
	)
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 1 {
		l.cfg.Log.Warn("Took over stale property lock", "property_id", propertyID)
		return true, nil
	}
	return false, nil
}

func (l *mongoPropertyLocker) releaseFunc(propertyID, owner string) lock.Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
			defer cancel()

			if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": propertyID, "owner": owner}); err != nil {
				l.cfg.Log.Warn("Failed to release property lock", "property_id", propertyID, "error", err)
			}
		})
	}
}
