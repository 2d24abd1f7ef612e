package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DueDate parses a due date from JSON as either date-only ("2006-01-02") or
// RFC3339. Date-only is stored as start of that day in UTC.
type DueDate struct{ t *time.Time }

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02", // date only
		time.RFC3339, // 2006-01-02T15:04:05Z07:00
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			// If it was date-only (no time component), use start of day UTC
			if layout == "2006-01-02" {
				parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			}
			d.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("date: use date (YYYY-MM-DD) or RFC3339 datetime")
}

// Ptr returns *time.Time for use in service/domain.
func (d DueDate) Ptr() *time.Time { return d.t }

type CreateItemRequest struct {
	Title string  `json:"title" binding:"required"`
	Date  DueDate `json:"date" binding:"required"` // "2026-02-19" or RFC3339
	Memo  string  `json:"memo"`
}

type UpdateItemRequest struct {
	Title *string  `json:"title"`
	Date  *DueDate `json:"date"` // nil = keep current value
	Memo  *string  `json:"memo"`
}

// ItemResponse is an item plus the derived fields the evaluator computes
// for it at response time.
type ItemResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	Memo          string    `json:"memo"`
	IsPinned      bool      `json:"is_pinned"`
	DaysRemaining int       `json:"days_remaining"`
	Status        string    `json:"status"`
	StatusText    string    `json:"status_text"`
	PriorityScore int       `json:"priority_score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

// PrimaryItemResponse wraps the headline item; Item is null when the
// collection has no pinned and no upcoming item.
type PrimaryItemResponse struct {
	Item *ItemResponse `json:"item"`
}

type StatsResponse struct {
	Total    int `json:"total"`
	Overdue  int `json:"overdue"`
	DueToday int `json:"due_today"`
	Urgent   int `json:"urgent"`
	Pinned   int `json:"pinned"`
}

// WidgetEntryResponse is the reduced view a companion surface renders.
type WidgetEntryResponse struct {
	Title      string `json:"title,omitempty"`
	DaysLeft   *int   `json:"days_left,omitempty"`
	IsPinned   bool   `json:"is_pinned"`
	StatusText string `json:"status_text,omitempty"`
	Empty      bool   `json:"empty"`
}
