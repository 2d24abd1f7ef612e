package repo

import (
	"context"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemRepo interface {
	Create(ctx context.Context, it dom.DeadlineItem) (dom.DeadlineItem, error)
	GetByID(ctx context.Context, userID, id int64) (dom.DeadlineItem, error)
	List(ctx context.Context, userID int64) ([]dom.DeadlineItem, error)
	Update(ctx context.Context, userID, id int64, patch dom.DeadlineItem) (dom.DeadlineItem, error)
	SoftDelete(ctx context.Context, userID, id int64) error
	SetPinned(ctx context.Context, userID, id int64) (dom.DeadlineItem, error)
	Unpin(ctx context.Context, userID, id int64) (dom.DeadlineItem, error)
	Search(ctx context.Context, userID int64, q string) ([]dom.DeadlineItem, error)
	Overdue(ctx context.Context, userID int64) ([]dom.DeadlineItem, error)
	Upcoming(ctx context.Context, userID int64, days int) ([]dom.DeadlineItem, error)
}

const itemColumns = `id, user_id, title, date, memo, is_pinned, created_at, updated_at, deleted_at`

type PGItemRepo struct {
	db *pgxpool.Pool
}

func NewPGItemRepo(db *pgxpool.Pool) *PGItemRepo {
	return &PGItemRepo{db: db}
}

func scanItem(row pgx.Row) (dom.DeadlineItem, error) {
	var it dom.DeadlineItem
	err := row.Scan(
		&it.ID, &it.UserID, &it.Title, &it.Date, &it.Memo, &it.IsPinned,
		&it.CreatedAt, &it.UpdatedAt, &it.DeletedAt,
	)
	return it, err
}

func scanItems(rows pgx.Rows) ([]dom.DeadlineItem, error) {
	defer rows.Close()
	var list []dom.DeadlineItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func (r *PGItemRepo) Create(ctx context.Context, it dom.DeadlineItem) (dom.DeadlineItem, error) {
	query := `
		INSERT INTO items (user_id, title, date, memo)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + itemColumns
	return scanItem(r.db.QueryRow(ctx, query, it.UserID, it.Title, it.Date, it.Memo))
}

func (r *PGItemRepo) GetByID(ctx context.Context, userID, id int64) (dom.DeadlineItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	return scanItem(r.db.QueryRow(ctx, query, id, userID))
}

func (r *PGItemRepo) List(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (r *PGItemRepo) Update(ctx context.Context, userID, id int64, patch dom.DeadlineItem) (dom.DeadlineItem, error) {
	query := `
		UPDATE items SET title = $3, date = $4, memo = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING ` + itemColumns
	return scanItem(r.db.QueryRow(ctx, query, id, userID, patch.Title, patch.Date, patch.Memo))
}

func (r *PGItemRepo) SoftDelete(ctx context.Context, userID, id int64) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`UPDATE items SET deleted_at = $3, updated_at = $3, is_pinned = FALSE
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID, now)
	return err
}

// SetPinned pins one item and clears every other pin of the same user in a
// single transaction, so at most one item per user is ever pinned.
func (r *PGItemRepo) SetPinned(ctx context.Context, userID, id int64) (dom.DeadlineItem, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return dom.DeadlineItem{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE items SET is_pinned = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND is_pinned = TRUE AND id <> $2 AND deleted_at IS NULL`,
		userID, id)
	if err != nil {
		return dom.DeadlineItem{}, err
	}

	it, err := scanItem(tx.QueryRow(ctx,
		`UPDATE items SET is_pinned = TRUE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		 RETURNING `+itemColumns, id, userID))
	if err != nil {
		return dom.DeadlineItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return dom.DeadlineItem{}, err
	}
	return it, nil
}

func (r *PGItemRepo) Unpin(ctx context.Context, userID, id int64) (dom.DeadlineItem, error) {
	query := `
		UPDATE items SET is_pinned = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING ` + itemColumns
	return scanItem(r.db.QueryRow(ctx, query, id, userID))
}

func (r *PGItemRepo) Search(ctx context.Context, userID int64, q string) ([]dom.DeadlineItem, error) {
	pattern := "%" + q + "%"
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE user_id = $1 AND deleted_at IS NULL AND (title ILIKE $2 OR memo ILIKE $2)
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID, pattern)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (r *PGItemRepo) Overdue(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE user_id = $1 AND deleted_at IS NULL AND date < date_trunc('day', NOW())
		ORDER BY date ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

// Upcoming returns items due between today and today+days inclusive.
func (r *PGItemRepo) Upcoming(ctx context.Context, userID int64, days int) ([]dom.DeadlineItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND date >= date_trunc('day', NOW())
		  AND date < date_trunc('day', NOW()) + ($2 + 1) * INTERVAL '1 day'
		ORDER BY date ASC`
	rows, err := r.db.Query(ctx, query, userID, days)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}
