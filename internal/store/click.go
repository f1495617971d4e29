package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/linklytics/apiserver/types"
)

// ClickEventRepository handles read queries over recorded click events.
type ClickEventRepository struct {
	db *sql.DB
}

func NewClickEventRepository(db *sql.DB) *ClickEventRepository {
	return &ClickEventRepository{db: db}
}

// ListByShortCode returns per-day click counts for one short URL within
// [start, end].
func (r *ClickEventRepository) ListByShortCode(ctx context.Context, shortCode string, start, end time.Time) ([]types.ClickStats, error) {
	const query = `
		SELECT date_trunc('day', ce.clicked_at) AS day, COUNT(1)
		FROM click_events ce
		JOIN url_mappings um ON um.id = ce.url_mapping_id
		WHERE um.short_code = $1
		  AND ce.clicked_at >= $2
		  AND ce.clicked_at <= $3
		GROUP BY day
		ORDER BY day`
	rows, err := r.db.QueryContext(ctx, query, shortCode, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClickStats(rows)
}

// TotalsByUser returns per-day click counts aggregated over every short
// URL owned by the user within [start, end].
func (r *ClickEventRepository) TotalsByUser(ctx context.Context, userID int, start, end time.Time) ([]types.ClickStats, error) {
	const query = `
		SELECT date_trunc('day', ce.clicked_at) AS day, COUNT(1)
		FROM click_events ce
		JOIN url_mappings um ON um.id = ce.url_mapping_id
		WHERE um.user_id = $1
		  AND ce.clicked_at >= $2
		  AND ce.clicked_at <= $3
		GROUP BY day
		ORDER BY day`
	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClickStats(rows)
}

func scanClickStats(rows *sql.Rows) ([]types.ClickStats, error) {
	stats := make([]types.ClickStats, 0)
	for rows.Next() {
		var s types.ClickStats
		if err := rows.Scan(&s.Date, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
