package widget

import (
	"strings"
	"testing"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"
	"github.com/ko-tarou/DeadLine/internal/evaluator"
)

var now = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func TestSnapshotRoundTrip(t *testing.T) {
	items := []dom.DeadlineItem{
		{ID: 42, Title: "thesis", Date: now.AddDate(0, 0, 5), Memo: "final draft", IsPinned: true},
		{ID: 7, Title: "visa renewal", Date: now.AddDate(0, 0, 60), Memo: ""},
	}
	snap := NewSnapshot(items, now)
	if snap.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version %d, want %d", snap.SchemaVersion, SchemaVersion)
	}
	if snap.SnapshotID == "" {
		t.Fatalf("snapshot ID must be set")
	}

	b, err := snap.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Title != "thesis" || !got.Items[0].IsPinned {
		t.Fatalf("round trip lost data: %+v", got.Items)
	}
	if got.SnapshotID != snap.SnapshotID {
		t.Fatalf("snapshot ID changed in transit")
	}
}

func TestDecodeRejectsNewerSchema(t *testing.T) {
	_, err := Decode([]byte(`{"schema_version": 99, "items": []}`))
	if err == nil || !strings.Contains(err.Error(), "newer") {
		t.Fatalf("expected newer-schema rejection, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

// A companion surface feeds the decoded snapshot straight into the
// evaluator; the pinned item must win exactly as in the main app.
func TestSnapshotDrivesPrimarySelection(t *testing.T) {
	items := []dom.DeadlineItem{
		{ID: 1, Title: "soon", Date: now.AddDate(0, 0, 2)},
		{ID: 2, Title: "pinned far", Date: now.AddDate(0, 0, 40), IsPinned: true},
	}
	b, err := NewSnapshot(items, now).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	primary, ok := evaluator.SelectPrimary(snap.DomainItems(), now)
	if !ok || primary.Title != "pinned far" {
		t.Fatalf("primary = (%q, %v), want pinned item", primary.Title, ok)
	}
}

func TestSnapshotWithoutPinFallsBackToSoonest(t *testing.T) {
	items := []dom.DeadlineItem{
		{ID: 1, Title: "later", Date: now.AddDate(0, 0, 9)},
		{ID: 2, Title: "sooner", Date: now.AddDate(0, 0, 1)},
		{ID: 3, Title: "gone", Date: now.AddDate(0, 0, -3)},
	}
	snap := NewSnapshot(items, now)
	primary, ok := evaluator.SelectPrimary(snap.DomainItems(), now)
	if !ok || primary.Title != "sooner" {
		t.Fatalf("primary = (%q, %v), want soonest upcoming", primary.Title, ok)
	}
}
