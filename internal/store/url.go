package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/linklytics/apiserver/types"
)

// ErrShortCodeTaken is returned when a generated short code collides
// with an existing mapping.
var ErrShortCodeTaken = errors.New("short code already in use")

// URLRepository handles persistence for short URL mappings.
type URLRepository struct {
	db *sql.DB
}

func NewURLRepository(db *sql.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Create(ctx context.Context, mapping types.URLMapping) (types.URLMapping, error) {
	mapping.CreatedAt = time.Now()

	const query = `
		INSERT INTO url_mappings (user_id, original_url, short_code, click_count, created_at)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		mapping.UserID,
		mapping.OriginalURL,
		mapping.ShortCode,
		mapping.CreatedAt,
	).Scan(&mapping.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.URLMapping{}, ErrShortCodeTaken
		}
		return types.URLMapping{}, err
	}

	return mapping, nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (types.URLMapping, error) {
	const query = `
		SELECT id, user_id, original_url, short_code, click_count, created_at
		FROM url_mappings
		WHERE short_code = $1`
	var mapping types.URLMapping
	err := r.db.QueryRowContext(ctx, query, shortCode).Scan(
		&mapping.ID,
		&mapping.UserID,
		&mapping.OriginalURL,
		&mapping.ShortCode,
		&mapping.ClickCount,
		&mapping.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.URLMapping{}, ErrNotFound
		}
		return types.URLMapping{}, err
	}
	return mapping, nil
}

func (r *URLRepository) ListByUser(ctx context.Context, userID int) ([]types.URLMapping, error) {
	const query = `
		SELECT id, user_id, original_url, short_code, click_count, created_at
		FROM url_mappings
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make([]types.URLMapping, 0)
	for rows.Next() {
		var mapping types.URLMapping
		if err := rows.Scan(
			&mapping.ID,
			&mapping.UserID,
			&mapping.OriginalURL,
			&mapping.ShortCode,
			&mapping.ClickCount,
			&mapping.CreatedAt,
		); err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return mappings, nil
}

// RecordClick resolves a short code, appends a click event, and bumps
// the mapping's click counter in one transaction. It returns the
// resolved mapping so the caller can issue the redirect.
func (r *URLRepository) RecordClick(ctx context.Context, shortCode string, clickedAt time.Time) (types.URLMapping, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.URLMapping{}, err
	}
	defer tx.Rollback()

	const resolveQuery = `
		UPDATE url_mappings
		SET click_count = click_count + 1
		WHERE short_code = $1
		RETURNING id, user_id, original_url, short_code, click_count, created_at`
	var mapping types.URLMapping
	err = tx.QueryRowContext(ctx, resolveQuery, shortCode).Scan(
		&mapping.ID,
		&mapping.UserID,
		&mapping.OriginalURL,
		&mapping.ShortCode,
		&mapping.ClickCount,
		&mapping.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.URLMapping{}, ErrNotFound
		}
		return types.URLMapping{}, err
	}

	const insertQuery = `
		INSERT INTO click_events (url_mapping_id, clicked_at)
		VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertQuery, mapping.ID, clickedAt); err != nil {
		return types.URLMapping{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.URLMapping{}, err
	}
	return mapping, nil
}
