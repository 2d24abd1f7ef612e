package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"
	"github.com/ko-tarou/DeadLine/internal/evaluator"
	"github.com/ko-tarou/DeadLine/internal/repo"
	"github.com/ko-tarou/DeadLine/internal/widget"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"

	"github.com/ko-tarou/DeadLine/internal/cache"
)

var ErrNotFound = errors.New("not found")

// upcomingWindowDays matches the evaluator's urgency horizon.
const upcomingWindowDays = 7

// ValidationError carries every violated input rule at once.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// ItemService orchestrates item persistence, caching, evaluation and the
// widget snapshot. All derived fields come from the evaluator; the service
// never re-derives day counts itself.
type ItemService struct {
	repo   repo.ItemRepo
	cache  *cache.ItemCache
	widget *widget.Store
	sf     singleflight.Group
	now    func() time.Time
}

// NewItemService creates an ItemService. cache and widget may be nil, which
// disables the respective side channel.
func NewItemService(r repo.ItemRepo, c *cache.ItemCache, w *widget.Store) *ItemService {
	return &ItemService{repo: r, cache: c, widget: w, now: time.Now}
}

// SetClock overrides the reference clock, for tests.
func (s *ItemService) SetClock(now func() time.Time) { s.now = now }

// Now returns the service's reference time.
func (s *ItemService) Now() time.Time { return s.now() }

func (s *ItemService) Create(ctx context.Context, userID int64, title, memo string, date time.Time) (dom.DeadlineItem, error) {
	title = strings.TrimSpace(title)
	memo = strings.TrimSpace(memo)
	if reasons := evaluator.Validate(title, memo); len(reasons) > 0 {
		return dom.DeadlineItem{}, &ValidationError{Reasons: reasons}
	}

	it, err := s.repo.Create(ctx, dom.DeadlineItem{
		UserID: userID,
		Title:  title,
		Date:   date,
		Memo:   memo,
	})
	if err != nil {
		return dom.DeadlineItem{}, err
	}
	s.afterMutation(ctx, userID)
	return it, nil
}

// SortMode selects the list ordering. SortPriority is the evaluator
// ranking; the rest are plain presentation sorts.
type SortMode string

const (
	SortPriority    SortMode = "priority"
	SortDateAsc     SortMode = "date_asc"
	SortDateDesc    SortMode = "date_desc"
	SortTitleAsc    SortMode = "title_asc"
	SortTitleDesc   SortMode = "title_desc"
	SortCreatedDesc SortMode = "created_desc"
)

// ParseSortMode maps a query value onto a SortMode. Empty means the
// default priority ranking.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.TrimSpace(s)); m {
	case "":
		return SortPriority, nil
	case SortPriority, SortDateAsc, SortDateDesc, SortTitleAsc, SortTitleDesc, SortCreatedDesc:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort %q", s)
	}
}

// List returns the user's items in the requested ordering. The default is
// the display ranking: priority score descending, earlier due date first.
func (s *ItemService) List(ctx context.Context, userID int64, mode SortMode) ([]dom.DeadlineItem, error) {
	list, err := s.rawList(ctx, userID)
	if err != nil {
		return nil, err
	}
	if mode == SortPriority || mode == "" {
		return evaluator.Rank(list, s.now()), nil
	}
	sorted := append([]dom.DeadlineItem(nil), list...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch mode {
		case SortDateAsc:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		case SortDateDesc:
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
		case SortTitleAsc:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case SortTitleDesc:
			if a.Title != b.Title {
				return a.Title > b.Title
			}
		case SortCreatedDesc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
	return sorted, nil
}

func (s *ItemService) rawList(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	if s.cache != nil {
		key := "list:" + strconv.FormatInt(userID, 10)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetList(ctx, userID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.List(ctx, userID)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetList(ctx, userID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.DeadlineItem), nil
	}
	return s.repo.List(ctx, userID)
}

func (s *ItemService) GetByID(ctx context.Context, userID, id int64) (dom.DeadlineItem, error) {
	it, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.DeadlineItem{}, ErrNotFound
		}
		return dom.DeadlineItem{}, err
	}
	return it, nil
}

func (s *ItemService) Update(ctx context.Context, userID, id int64, title, memo *string, date *time.Time) (dom.DeadlineItem, error) {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.DeadlineItem{}, ErrNotFound
		}
		return dom.DeadlineItem{}, err
	}
	patch := existing
	if title != nil {
		patch.Title = strings.TrimSpace(*title)
	}
	if memo != nil {
		patch.Memo = strings.TrimSpace(*memo)
	}
	if date != nil {
		patch.Date = *date
	}
	if reasons := evaluator.Validate(patch.Title, patch.Memo); len(reasons) > 0 {
		return dom.DeadlineItem{}, &ValidationError{Reasons: reasons}
	}
	it, err := s.repo.Update(ctx, userID, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.DeadlineItem{}, ErrNotFound
		}
		return dom.DeadlineItem{}, err
	}
	s.afterMutation(ctx, userID)
	return it, nil
}

func (s *ItemService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.SoftDelete(ctx, userID, id); err != nil {
		return err
	}
	s.afterMutation(ctx, userID)
	return nil
}

// Pin marks one item for prominent display. The repository clears every
// other pin of the user in the same transaction.
func (s *ItemService) Pin(ctx context.Context, userID, id int64) (dom.DeadlineItem, error) {
	it, err := s.repo.SetPinned(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.DeadlineItem{}, ErrNotFound
		}
		return dom.DeadlineItem{}, err
	}
	s.afterMutation(ctx, userID)
	return it, nil
}

func (s *ItemService) Unpin(ctx context.Context, userID, id int64) (dom.DeadlineItem, error) {
	it, err := s.repo.Unpin(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.DeadlineItem{}, ErrNotFound
		}
		return dom.DeadlineItem{}, err
	}
	s.afterMutation(ctx, userID)
	return it, nil
}

// Primary returns the headline item: the pinned one, else the soonest
// upcoming. ok is false when neither exists.
func (s *ItemService) Primary(ctx context.Context, userID int64) (dom.DeadlineItem, bool, error) {
	list, err := s.rawList(ctx, userID)
	if err != nil {
		return dom.DeadlineItem{}, false, err
	}
	it, ok := evaluator.SelectPrimary(list, s.now())
	return it, ok, nil
}

// Stats summarizes the user's items per urgency band.
func (s *ItemService) Stats(ctx context.Context, userID int64) (evaluator.Statistics, error) {
	list, err := s.rawList(ctx, userID)
	if err != nil {
		return evaluator.Statistics{}, err
	}
	return evaluator.Summarize(list, s.now()), nil
}

func (s *ItemService) Search(ctx context.Context, userID int64, q string) ([]dom.DeadlineItem, error) {
	q = strings.TrimSpace(q)
	if s.cache != nil {
		key := "search:" + strconv.FormatInt(userID, 10) + ":" + strings.ToLower(q)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetSearch(ctx, userID, q); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.Search(ctx, userID, q)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetSearch(ctx, userID, q, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.DeadlineItem), nil
	}
	return s.repo.Search(ctx, userID, q)
}

func (s *ItemService) Overdue(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	if s.cache != nil {
		key := "overdue:" + strconv.FormatInt(userID, 10)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetOverdue(ctx, userID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.Overdue(ctx, userID)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetOverdue(ctx, userID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.DeadlineItem), nil
	}
	return s.repo.Overdue(ctx, userID)
}

// Upcoming returns items due within the next week, soonest first.
func (s *ItemService) Upcoming(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	if s.cache != nil {
		key := "upcoming:" + strconv.FormatInt(userID, 10)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetUpcoming(ctx, userID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.Upcoming(ctx, userID, upcomingWindowDays)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetUpcoming(ctx, userID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.DeadlineItem), nil
	}
	return s.repo.Upcoming(ctx, userID, upcomingWindowDays)
}

// WidgetEntry derives the companion-surface view from the published
// snapshot. ok is false when the snapshot has no displayable item.
func (s *ItemService) WidgetEntry(ctx context.Context, userID int64) (dom.DeadlineItem, bool, error) {
	if s.widget == nil {
		return dom.DeadlineItem{}, false, nil
	}
	snap, found, err := s.widget.Load(ctx, userID)
	if err != nil {
		return dom.DeadlineItem{}, false, err
	}
	if !found {
		return dom.DeadlineItem{}, false, nil
	}
	it, ok := evaluator.SelectPrimary(snap.DomainItems(), s.now())
	return it, ok, nil
}

// afterMutation drops stale caches and republishes the widget snapshot.
// Snapshot publish failures are logged, never surfaced: the widget is a
// best-effort mirror, the mutation already committed.
func (s *ItemService) afterMutation(ctx context.Context, userID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx, userID)
	}
	if s.widget != nil {
		list, err := s.repo.List(ctx, userID)
		if err != nil {
			log.Printf("widget snapshot: list items: %v", err)
			return
		}
		if err := s.widget.Publish(ctx, userID, list, s.now()); err != nil {
			log.Printf("widget snapshot: publish: %v", err)
		}
	}
}
