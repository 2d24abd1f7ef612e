// Package widget is the bridge between the main service and companion
// display surfaces. Instead of sharing ambient storage, the service
// publishes a versioned JSON snapshot of the user's items to a well-known
// Redis key; any companion process reads the snapshot and derives its own
// reduced view with the evaluator.
package widget

import (
	"encoding/json"
	"fmt"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"

	"github.com/google/uuid"
)

// SchemaVersion is bumped on incompatible snapshot layout changes.
// Readers reject snapshots with a newer version instead of guessing.
const SchemaVersion = 1

// Item is the wire record for one deadline in a snapshot. Field set and
// order follow the companion-surface contract: title, date, memo, pin flag.
type Item struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Memo     string    `json:"memo"`
	IsPinned bool      `json:"is_pinned"`
}

// Snapshot is the full payload handed to companion surfaces.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version"`
	SnapshotID    string    `json:"snapshot_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	Items         []Item    `json:"items"`
}

// NewSnapshot builds a snapshot from domain items.
func NewSnapshot(items []dom.DeadlineItem, now time.Time) Snapshot {
	wire := make([]Item, len(items))
	for i, it := range items {
		wire[i] = Item{
			Title:    it.Title,
			Date:     it.Date,
			Memo:     it.Memo,
			IsPinned: it.IsPinned,
		}
	}
	return Snapshot{
		SchemaVersion: SchemaVersion,
		SnapshotID:    uuid.NewString(),
		GeneratedAt:   now,
		Items:         wire,
	}
}

// Encode serializes the snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a snapshot and checks its schema version.
func Decode(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.SchemaVersion > SchemaVersion {
		return Snapshot{}, fmt.Errorf("snapshot schema v%d is newer than supported v%d", s.SchemaVersion, SchemaVersion)
	}
	return s, nil
}

// DomainItems converts the wire records back to domain items for the
// evaluator. IDs are positional: the snapshot does not carry them and the
// evaluator only needs a deterministic tie-break.
func (s Snapshot) DomainItems() []dom.DeadlineItem {
	items := make([]dom.DeadlineItem, len(s.Items))
	for i, it := range s.Items {
		items[i] = dom.DeadlineItem{
			ID:       int64(i + 1),
			Title:    it.Title,
			Date:     it.Date,
			Memo:     it.Memo,
			IsPinned: it.IsPinned,
		}
	}
	return items
}
