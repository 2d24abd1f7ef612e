package domain

import "time"

// DeadlineItem is the domain entity for a tracked deadline.
// Не зависит от Gin, Postgres, Redis.
type DeadlineItem struct {
	ID       int64
	UserID   int64
	Title    string
	Date     time.Time // due date, date-only semantics
	Memo     string
	IsPinned bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
