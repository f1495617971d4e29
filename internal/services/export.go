package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/linklytics/apiserver/internal/storage"
)

// ErrExportDisabled is returned when no object-storage backend is
// configured for analytics exports.
var ErrExportDisabled = errors.New("analytics export is not configured")

const exportURLValidity = 15 * time.Minute

// ExportResult describes a completed analytics export: where the CSV
// landed and a presigned URL for downloading it.
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AnalyticsExporter writes a user's per-day click totals to object
// storage as CSV and hands back a presigned download URL.
type AnalyticsExporter struct {
	clicks  ClickEventRepository
	storage *storage.Storage
}

// NewAnalyticsExporter constructs an exporter. A nil storage wrapper
// means exports are disabled.
func NewAnalyticsExporter(clicks ClickEventRepository, objectStorage *storage.Storage) *AnalyticsExporter {
	return &AnalyticsExporter{
		clicks:  clicks,
		storage: objectStorage,
	}
}

// Enabled reports whether an object-storage backend is configured.
func (e *AnalyticsExporter) Enabled() bool {
	return e != nil && e.storage != nil
}

// Export aggregates the user's clicks per day over [start, end], uploads
// the CSV, and returns a presigned download URL.
func (e *AnalyticsExporter) Export(ctx context.Context, userID int, start, end time.Time) (ExportResult, error) {
	if !e.Enabled() {
		return ExportResult{}, ErrExportDisabled
	}

	stats, err := e.clicks.TotalsByUser(ctx, userID, start, end)
	if err != nil {
		return ExportResult{}, fmt.Errorf("aggregate clicks: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"date", "clicks"}); err != nil {
		return ExportResult{}, err
	}
	for _, s := range stats {
		record := []string{s.Date.Format("2006-01-02"), strconv.FormatInt(s.Count, 10)}
		if err := writer.Write(record); err != nil {
			return ExportResult{}, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("exports/user-%d/clicks-%s.csv", userID, uuid.NewString())
	if err := e.storage.Put(ctx, key, &buf, int64(buf.Len()), "text/csv"); err != nil {
		return ExportResult{}, fmt.Errorf("upload export: %w", err)
	}

	url, err := e.storage.PresignGet(ctx, key, exportURLValidity)
	if err != nil {
		return ExportResult{}, fmt.Errorf("presign export: %w", err)
	}

	return ExportResult{
		Key:       key,
		URL:       url,
		ExpiresAt: time.Now().Add(exportURLValidity),
	}, nil
}
