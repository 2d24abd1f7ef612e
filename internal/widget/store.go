package widget

import (
	"context"
	"strconv"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "widget:snapshot:"

// Store publishes and reads widget snapshots through Redis. Snapshots have
// no TTL: the latest publish wins and stays until the next one.
type Store struct {
	rdb *redis.Client
}

// NewStore returns a new snapshot store.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func snapshotKey(userID int64) string {
	return snapshotKeyPrefix + strconv.FormatInt(userID, 10)
}

// Publish replaces the user's snapshot with one built from items.
func (s *Store) Publish(ctx context.Context, userID int64, items []dom.DeadlineItem, now time.Time) error {
	snap := NewSnapshot(items, now)
	b, err := snap.Encode()
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, snapshotKey(userID), b, 0).Err()
}

// Load returns the user's current snapshot. ok is false when none was
// published yet.
func (s *Store) Load(ctx context.Context, userID int64) (Snapshot, bool, error) {
	b, err := s.rdb.Get(ctx, snapshotKey(userID)).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	snap, err := Decode(b)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}
