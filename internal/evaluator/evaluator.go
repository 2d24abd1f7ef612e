// Package evaluator is the deadline evaluation core: pure functions that
// turn (due date, pinned flag, now) into days remaining, a status band,
// display text and a sortable priority score. It holds no state and never
// touches storage; callers hand it item snapshots and a reference time.
package evaluator

import (
	"fmt"
	"sort"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"
)

// StatusKind is the urgency band of a deadline.
type StatusKind string

const (
	StatusOverdue  StatusKind = "overdue"
	StatusDueToday StatusKind = "due_today"
	StatusUrgent   StatusKind = "urgent"  // 1..3 days left
	StatusWarning  StatusKind = "warning" // 4..7 days left
	StatusNormal   StatusKind = "normal"  // more than a week out
)

// Status is the classification of a single deadline. Days carries the band
// payload: days elapsed for overdue, days left otherwise.
type Status struct {
	Kind StatusKind
	Days int
}

// DaysRemaining returns the signed whole-day difference between the calendar
// day of date and the calendar day of now, read in now's location.
// Time-of-day on either input is ignored. The civil dates are re-anchored in
// UTC before subtracting, so the difference is an exact multiple of 24h even
// across DST transitions. It never fails: a difference that does not divide
// into whole days counts as 0.
func DaysRemaining(date, now time.Time) int {
	target := startOfDay(date.In(now.Location()))
	today := startOfDay(now)
	hours := target.Sub(today).Hours()
	days := int(hours / 24)
	if float64(days)*24 != hours {
		// Degenerate calendar result: substitute 0 rather than surface an
		// error. Long-standing behavior, kept for compatibility.
		return 0
	}
	return days
}

// startOfDay takes t's calendar day in its own location and anchors it at
// UTC midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify maps a days-remaining value onto its urgency band. The band
// boundaries (0, 1, 7) are contractual: they drive colors, text and scoring
// downstream.
func Classify(days int) Status {
	switch {
	case days < 0:
		return Status{Kind: StatusOverdue, Days: -days}
	case days == 0:
		return Status{Kind: StatusDueToday}
	case days <= 3:
		return Status{Kind: StatusUrgent, Days: days}
	case days <= 7:
		return Status{Kind: StatusWarning, Days: days}
	default:
		return Status{Kind: StatusNormal, Days: days}
	}
}

// Text renders the status for display.
func (s Status) Text() string {
	switch s.Kind {
	case StatusOverdue:
		if s.Days == 1 {
			return "1 day overdue"
		}
		return fmt.Sprintf("%d days overdue", s.Days)
	case StatusDueToday:
		return "due today"
	default:
		if s.Days == 1 {
			return "due tomorrow"
		}
		return fmt.Sprintf("%d days left", s.Days)
	}
}

// PriorityScore combines the urgency band and the pin state into a single
// sortable integer; higher means more prominent. The pinned bonus (1000)
// exceeds the highest urgency base (500), so a pinned item outranks every
// unpinned one.
func PriorityScore(pinned bool, days int) int {
	var score int
	switch {
	case days < 0:
		score = 500
	case days == 0:
		score = 400
	case days <= 3:
		score = 300
	case days <= 7:
		score = 200
	default:
		score = 100 - days
		if score < 0 {
			score = 0
		}
	}
	if pinned {
		score += 1000
	}
	return score
}

// Compare reports whether a ranks strictly before b for display: priority
// score descending, then due date ascending, then ID ascending. The ID
// tie-break makes the order total, so sorting is deterministic under any
// input permutation.
func Compare(a, b dom.DeadlineItem, now time.Time) bool {
	sa := PriorityScore(a.IsPinned, DaysRemaining(a.Date, now))
	sb := PriorityScore(b.IsPinned, DaysRemaining(b.Date, now))
	if sa != sb {
		return sa > sb
	}
	// Same normalization as DaysRemaining: the calendar day is read in
	// now's location, so the tie-break agrees with the score it breaks.
	da := startOfDay(a.Date.In(now.Location()))
	db := startOfDay(b.Date.In(now.Location()))
	if !da.Equal(db) {
		return da.Before(db)
	}
	return a.ID < b.ID
}

// Rank returns a copy of items sorted by Compare. The input slice is not
// modified.
func Rank(items []dom.DeadlineItem, now time.Time) []dom.DeadlineItem {
	ranked := append([]dom.DeadlineItem(nil), items...)
	sort.Slice(ranked, func(i, j int) bool {
		return Compare(ranked[i], ranked[j], now)
	})
	return ranked
}

// SelectPrimary picks the headline item: the pinned one if present, else
// the soonest item that is not yet overdue. Returns false when neither
// exists. A pinned item wins even when overdue.
func SelectPrimary(items []dom.DeadlineItem, now time.Time) (dom.DeadlineItem, bool) {
	for _, it := range items {
		if it.IsPinned {
			return it, true
		}
	}
	var best dom.DeadlineItem
	found := false
	for _, it := range items {
		if DaysRemaining(it.Date, now) < 0 {
			continue
		}
		if !found || startOfDay(it.Date).Before(startOfDay(best.Date)) {
			best = it
			found = true
		}
	}
	return best, found
}

// Statistics summarizes a collection for the stats view.
type Statistics struct {
	Total    int
	Overdue  int
	DueToday int
	Urgent   int // due within the next 7 days, today included
	Pinned   int
}

// Summarize counts items per band relative to now.
func Summarize(items []dom.DeadlineItem, now time.Time) Statistics {
	st := Statistics{Total: len(items)}
	for _, it := range items {
		days := DaysRemaining(it.Date, now)
		if days < 0 {
			st.Overdue++
		}
		if days == 0 {
			st.DueToday++
		}
		if days >= 0 && days <= 7 {
			st.Urgent++
		}
		if it.IsPinned {
			st.Pinned++
		}
	}
	return st
}
