package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/linklytics/apiserver/internal/storage"
	"github.com/linklytics/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjectStorage struct {
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}}
}

func (m *memObjectStorage) EnsureBucket(context.Context) error { return nil }

func (m *memObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *memObjectStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjectStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key, nil
}

func (m *memObjectStorage) Bucket() string { return "test-bucket" }

func TestExportWritesCSVAndPresigns(t *testing.T) {
	t.Parallel()

	clicks := &fakeClickRepo{stats: []types.ClickStats{
		{Date: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Count: 2},
		{Date: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), Count: 7},
	}}
	backend := newMemObjectStorage()
	exporter := NewAnalyticsExporter(clicks, storage.NewStorage(backend))
	require.True(t, exporter.Enabled())

	start := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	result, err := exporter.Export(context.Background(), 1, start, end)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "exports/user-1/clicks-"))
	assert.Equal(t, "https://storage.test/"+result.Key, result.URL)
	assert.WithinDuration(t, time.Now().Add(exportURLValidity), result.ExpiresAt, time.Minute)

	csvData := string(backend.objects[result.Key])
	assert.Equal(t, "date,clicks\n2026-08-29,2\n2026-08-30,7\n", csvData)
}

func TestExportDisabledWithoutStorage(t *testing.T) {
	t.Parallel()

	exporter := NewAnalyticsExporter(&fakeClickRepo{}, nil)
	assert.False(t, exporter.Enabled())

	_, err := exporter.Export(context.Background(), 1, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrExportDisabled)
}
