package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"

	"github.com/jackc/pgx/v5"
)

// fakeItemRepo is an in-memory ItemRepo for service tests.
type fakeItemRepo struct {
	nextID int64
	items  map[int64]dom.DeadlineItem
	now    time.Time
}

func newFakeRepo(now time.Time) *fakeItemRepo {
	return &fakeItemRepo{nextID: 1, items: map[int64]dom.DeadlineItem{}, now: now}
}

func (f *fakeItemRepo) Create(_ context.Context, it dom.DeadlineItem) (dom.DeadlineItem, error) {
	it.ID = f.nextID
	f.nextID++
	it.CreatedAt = f.now
	it.UpdatedAt = f.now
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeItemRepo) GetByID(_ context.Context, userID, id int64) (dom.DeadlineItem, error) {
	it, ok := f.items[id]
	if !ok || it.UserID != userID || it.DeletedAt != nil {
		return dom.DeadlineItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (f *fakeItemRepo) List(_ context.Context, userID int64) ([]dom.DeadlineItem, error) {
	var list []dom.DeadlineItem
	for _, it := range f.items {
		if it.UserID == userID && it.DeletedAt == nil {
			list = append(list, it)
		}
	}
	return list, nil
}

func (f *fakeItemRepo) Update(_ context.Context, userID, id int64, patch dom.DeadlineItem) (dom.DeadlineItem, error) {
	it, ok := f.items[id]
	if !ok || it.UserID != userID || it.DeletedAt != nil {
		return dom.DeadlineItem{}, pgx.ErrNoRows
	}
	it.Title, it.Date, it.Memo = patch.Title, patch.Date, patch.Memo
	it.UpdatedAt = f.now
	f.items[id] = it
	return it, nil
}

func (f *fakeItemRepo) SoftDelete(_ context.Context, userID, id int64) error {
	it, ok := f.items[id]
	if !ok || it.UserID != userID {
		return nil
	}
	now := f.now
	it.DeletedAt = &now
	it.IsPinned = false
	f.items[id] = it
	return nil
}

func (f *fakeItemRepo) SetPinned(_ context.Context, userID, id int64) (dom.DeadlineItem, error) {
	target, ok := f.items[id]
	if !ok || target.UserID != userID || target.DeletedAt != nil {
		return dom.DeadlineItem{}, pgx.ErrNoRows
	}
	for k, it := range f.items {
		if it.UserID == userID && it.ID != id {
			it.IsPinned = false
			f.items[k] = it
		}
	}
	target.IsPinned = true
	target.UpdatedAt = f.now
	f.items[id] = target
	return target, nil
}

func (f *fakeItemRepo) Unpin(_ context.Context, userID, id int64) (dom.DeadlineItem, error) {
	it, ok := f.items[id]
	if !ok || it.UserID != userID || it.DeletedAt != nil {
		return dom.DeadlineItem{}, pgx.ErrNoRows
	}
	it.IsPinned = false
	f.items[id] = it
	return it, nil
}

func (f *fakeItemRepo) Search(ctx context.Context, userID int64, q string) ([]dom.DeadlineItem, error) {
	all, _ := f.List(ctx, userID)
	q = strings.ToLower(q)
	var out []dom.DeadlineItem
	for _, it := range all {
		if strings.Contains(strings.ToLower(it.Title), q) || strings.Contains(strings.ToLower(it.Memo), q) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) Overdue(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	all, _ := f.List(ctx, userID)
	var out []dom.DeadlineItem
	for _, it := range all {
		if it.Date.Before(f.now) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) Upcoming(ctx context.Context, userID int64, days int) ([]dom.DeadlineItem, error) {
	all, _ := f.List(ctx, userID)
	var out []dom.DeadlineItem
	for _, it := range all {
		if !it.Date.Before(f.now) && it.Date.Before(f.now.AddDate(0, 0, days+1)) {
			out = append(out, it)
		}
	}
	return out, nil
}

var testNow = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

func newTestService() (*ItemService, *fakeItemRepo) {
	f := newFakeRepo(testNow)
	s := NewItemService(f, nil, nil)
	s.SetClock(func() time.Time { return testNow })
	return s, f
}

const user = int64(1)

func TestCreateValidates(t *testing.T) {
	s, _ := newTestService()
	_, err := s.Create(context.Background(), user, "  ", strings.Repeat("m", 1001), testNow)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Reasons) != 2 {
		t.Fatalf("expected both violations reported, got %v", verr.Reasons)
	}
}

func TestCreateTrimsInput(t *testing.T) {
	s, _ := newTestService()
	it, err := s.Create(context.Background(), user, "  pay rent  ", "  by wire  ", testNow.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.Title != "pay rent" || it.Memo != "by wire" {
		t.Fatalf("input not trimmed: %q / %q", it.Title, it.Memo)
	}
}

func TestListIsRanked(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	far, _ := s.Create(ctx, user, "far", "", testNow.AddDate(0, 0, 30))
	overdue, _ := s.Create(ctx, user, "overdue", "", testNow.AddDate(0, 0, -2))
	today, _ := s.Create(ctx, user, "today", "", testNow)

	list, err := s.List(ctx, user, SortPriority)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []int64{list[0].ID, list[1].ID, list[2].ID}
	want := []int64{overdue.ID, today.ID, far.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order %v, want %v", got, want)
		}
	}
}

func TestParseSortMode(t *testing.T) {
	if m, err := ParseSortMode(""); err != nil || m != SortPriority {
		t.Fatalf("empty sort: got (%v, %v), want priority", m, err)
	}
	for _, valid := range []string{"priority", "date_asc", "date_desc", "title_asc", "title_desc", "created_desc"} {
		if m, err := ParseSortMode(valid); err != nil || string(m) != valid {
			t.Fatalf("%q: got (%v, %v)", valid, m, err)
		}
	}
	if _, err := ParseSortMode("newest"); err == nil {
		t.Fatalf("expected unknown-sort error")
	}
}

func TestListSortModes(t *testing.T) {
	s, f := newTestService()
	ctx := context.Background()
	// Created in this order, so fake IDs are 1..3 and CreatedAt is shared;
	// give each a distinct creation time by hand.
	b, _ := s.Create(ctx, user, "banana", "", testNow.AddDate(0, 0, 5))
	a, _ := s.Create(ctx, user, "apple", "", testNow.AddDate(0, 0, 20))
	c, _ := s.Create(ctx, user, "cherry", "", testNow.AddDate(0, 0, 1))
	for i, id := range []int64{b.ID, a.ID, c.ID} {
		it := f.items[id]
		it.CreatedAt = testNow.Add(time.Duration(i) * time.Hour)
		f.items[id] = it
	}

	cases := []struct {
		mode SortMode
		want []int64
	}{
		{SortDateAsc, []int64{c.ID, b.ID, a.ID}},
		{SortDateDesc, []int64{a.ID, b.ID, c.ID}},
		{SortTitleAsc, []int64{a.ID, b.ID, c.ID}},
		{SortTitleDesc, []int64{c.ID, b.ID, a.ID}},
		{SortCreatedDesc, []int64{c.ID, a.ID, b.ID}},
	}
	for _, tc := range cases {
		list, err := s.List(ctx, user, tc.mode)
		if err != nil {
			t.Fatalf("%s: %v", tc.mode, err)
		}
		for i, want := range tc.want {
			if list[i].ID != want {
				got := []int64{list[0].ID, list[1].ID, list[2].ID}
				t.Fatalf("%s: order %v, want %v", tc.mode, got, tc.want)
			}
		}
	}
}

func TestListSortTieBreaksByID(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	x, _ := s.Create(ctx, user, "same", "", testNow.AddDate(0, 0, 2))
	y, _ := s.Create(ctx, user, "same", "", testNow.AddDate(0, 0, 2))

	for _, mode := range []SortMode{SortDateAsc, SortDateDesc, SortTitleAsc, SortTitleDesc, SortCreatedDesc} {
		list, err := s.List(ctx, user, mode)
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if list[0].ID != x.ID || list[1].ID != y.ID {
			t.Fatalf("%s: equal items must fall back to ID order, got %d then %d", mode, list[0].ID, list[1].ID)
		}
	}
}

func TestPinClearsOtherPins(t *testing.T) {
	s, f := newTestService()
	ctx := context.Background()
	a, _ := s.Create(ctx, user, "a", "", testNow.AddDate(0, 0, 1))
	b, _ := s.Create(ctx, user, "b", "", testNow.AddDate(0, 0, 2))

	if _, err := s.Pin(ctx, user, a.ID); err != nil {
		t.Fatalf("pin a: %v", err)
	}
	if _, err := s.Pin(ctx, user, b.ID); err != nil {
		t.Fatalf("pin b: %v", err)
	}

	pinned := 0
	for _, it := range f.items {
		if it.IsPinned {
			pinned++
			if it.ID != b.ID {
				t.Fatalf("wrong item pinned: %d", it.ID)
			}
		}
	}
	if pinned != 1 {
		t.Fatalf("expected exactly one pinned item, got %d", pinned)
	}
}

func TestPrimaryPrefersPinned(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	s.Create(ctx, user, "soon", "", testNow.AddDate(0, 0, 1))
	farPinned, _ := s.Create(ctx, user, "far pinned", "", testNow.AddDate(0, 0, 50))
	if _, err := s.Pin(ctx, user, farPinned.ID); err != nil {
		t.Fatalf("pin: %v", err)
	}

	got, ok, err := s.Primary(ctx, user)
	if err != nil || !ok || got.ID != farPinned.ID {
		t.Fatalf("Primary = (%d, %v, %v), want pinned item %d", got.ID, ok, err, farPinned.ID)
	}
}

func TestPrimaryNoneWhenAllOverdue(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	s.Create(ctx, user, "late", "", testNow.AddDate(0, 0, -1))
	if _, ok, err := s.Primary(ctx, user); err != nil || ok {
		t.Fatalf("expected no primary, got ok=%v err=%v", ok, err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s, _ := newTestService()
	title := "x"
	_, err := s.Update(context.Background(), user, 999, &title, nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateValidatesPatchedState(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	it, _ := s.Create(ctx, user, "fine", "", testNow.AddDate(0, 0, 1))
	bad := strings.Repeat("t", 101)
	_, err := s.Update(ctx, user, it.ID, &bad, nil, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	s.Create(ctx, user, "overdue", "", testNow.AddDate(0, 0, -4))
	s.Create(ctx, user, "today", "", testNow)
	pinned, _ := s.Create(ctx, user, "week", "", testNow.AddDate(0, 0, 6))
	s.Create(ctx, user, "month", "", testNow.AddDate(0, 0, 31))
	s.Pin(ctx, user, pinned.ID)

	st, err := s.Stats(ctx, user)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 4 || st.Overdue != 1 || st.DueToday != 1 || st.Urgent != 2 || st.Pinned != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestDeleteHidesItem(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	it, _ := s.Create(ctx, user, "gone soon", "", testNow.AddDate(0, 0, 1))
	if err := s.Delete(ctx, user, it.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, user, it.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUserScoping(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	it, _ := s.Create(ctx, user, "mine", "", testNow.AddDate(0, 0, 1))
	if _, err := s.GetByID(ctx, user+1, it.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user must not see the item, got %v", err)
	}
}
