package types

import "time"

// URLMapping represents a shortened URL owned by a user.
type URLMapping struct {
	// ID is the unique identifier of the mapping.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// OriginalURL is the destination the short code redirects to.
	OriginalURL string `json:"original_url" db:"original_url"`

	// ShortCode is the unique path segment identifying this mapping,
	// e.g. "Ab3xK9qZ" in https://lnk.example/Ab3xK9qZ.
	ShortCode string `json:"short_code" db:"short_code"`

	// ClickCount is the total number of recorded redirects through
	// this mapping. Maintained by the store alongside click events.
	ClickCount int64 `json:"click_count" db:"click_count"`

	// CreatedAt is the timestamp at which the mapping was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClickEvent represents a single recorded redirect through a short URL.
type ClickEvent struct {
	// ID is the unique identifier of the event.
	ID int64 `json:"id" db:"id"`

	// URLMappingID is the identifier of the mapping that was resolved.
	URLMappingID int `json:"url_mapping_id" db:"url_mapping_id"`

	// ClickedAt is the timestamp at which the redirect was served.
	ClickedAt time.Time `json:"clicked_at" db:"clicked_at"`
}

// ClickStats is a per-day aggregate of click events.
type ClickStats struct {
	// Date is the day the clicks were recorded on (UTC, midnight).
	Date time.Time `json:"date" db:"date"`

	// Count is the number of clicks recorded on Date.
	Count int64 `json:"count" db:"count"`
}
