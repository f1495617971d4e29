package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"github.com/linklytics/apiserver/internal/auth"
	"github.com/linklytics/apiserver/internal/services"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyURLService struct {
	created    types.URLMapping
	createErr  error
	gotUserID  int
	gotURL     string
	mappings   []types.URLMapping
	stats      []types.ClickStats
	statsErr   error
	totalsErr  error
	gotCode    string
	rangeStart time.Time
	rangeEnd   time.Time
}

func (s *spyURLService) CreateShortURL(_ context.Context, userID int, originalURL string) (types.URLMapping, error) {
	s.gotUserID = userID
	s.gotURL = originalURL
	return s.created, s.createErr
}

func (s *spyURLService) GetURLsByUser(_ context.Context, userID int) ([]types.URLMapping, error) {
	s.gotUserID = userID
	return s.mappings, nil
}

func (s *spyURLService) GetClickEventsByDate(_ context.Context, shortCode string, start, end time.Time) ([]types.ClickStats, error) {
	s.gotCode = shortCode
	s.rangeStart = start
	s.rangeEnd = end
	return s.stats, s.statsErr
}

func (s *spyURLService) GetTotalClicksByUserAndDate(_ context.Context, userID int, start, end time.Time) ([]types.ClickStats, error) {
	s.gotUserID = userID
	s.rangeStart = start
	s.rangeEnd = end
	return s.stats, s.totalsErr
}

type spyExporter struct {
	enabled bool
	result  services.ExportResult
	err     error
	calls   int
}

func (s *spyExporter) Enabled() bool { return s.enabled }

func (s *spyExporter) Export(context.Context, int, time.Time, time.Time) (services.ExportResult, error) {
	s.calls++
	return s.result, s.err
}

func newURLTestServer(t *testing.T, svc *spyURLService, exporter *spyExporter) (*httptest.Server, string) {
	t.Helper()

	tokens := auth.NewTokenManager("test-secret", time.Hour, time.Hour)
	accessToken, err := tokens.IssueAccessToken(types.User{ID: 1, Role: "user"})
	require.NoError(t, err)

	handler := NewURLHandler(svc, exporter, "http://short.test")
	router := chi.NewRouter()
	router.Route("/urls", func(r chi.Router) {
		r.Use(RequireAuth(tokens))
		r.Post("/shorten", handler.CreateShortURL)
		r.Get("/my-urls", handler.ListUserURLs)
		r.Get("/analytics/{shortCode}", handler.GetURLAnalytics)
		r.Get("/total-clicks", handler.GetTotalClicks)
		r.Get("/export", handler.ExportAnalytics)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, accessToken
}

func TestCreateShortURLHandler(t *testing.T) {
	t.Parallel()

	svc := &spyURLService{created: types.URLMapping{
		ID:          3,
		UserID:      1,
		OriginalURL: "https://example.com/page",
		ShortCode:   "Ab3dEf9h",
	}}
	server, token := newURLTestServer(t, svc, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetBody(map[string]string{"originalUrl": "https://example.com/page"}).
		Post(server.URL + "/urls/shorten")
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, 1, svc.gotUserID)
	assert.Equal(t, "https://example.com/page", svc.gotURL)

	var payload URLResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &payload))
	assert.Equal(t, "Ab3dEf9h", payload.ShortCode)
	assert.Equal(t, "http://short.test/Ab3dEf9h", payload.ShortURL)
}

func TestCreateShortURLHandlerRejectsBadURL(t *testing.T) {
	t.Parallel()

	svc := &spyURLService{}
	server, token := newURLTestServer(t, svc, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetBody(map[string]string{"originalUrl": "not a url"}).
		Post(server.URL + "/urls/shorten")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Empty(t, svc.gotURL)
}

func TestURLRoutesRequireAuth(t *testing.T) {
	t.Parallel()

	server, _ := newURLTestServer(t, &spyURLService{}, &spyExporter{})

	paths := []string{"/urls/my-urls", "/urls/total-clicks", "/urls/export"}
	for _, path := range paths {
		resp, err := resty.New().R().Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode(), path)
	}

	resp, err := resty.New().R().
		SetAuthToken("garbage").
		Get(server.URL + "/urls/my-urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestListUserURLsHandler(t *testing.T) {
	t.Parallel()

	svc := &spyURLService{mappings: []types.URLMapping{
		{ID: 1, UserID: 1, OriginalURL: "https://example.com/a", ShortCode: "aaaaaaaa"},
		{ID: 2, UserID: 1, OriginalURL: "https://example.com/b", ShortCode: "bbbbbbbb"},
	}}
	server, token := newURLTestServer(t, svc, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		Get(server.URL + "/urls/my-urls")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var payload []URLResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &payload))
	require.Len(t, payload, 2)
	assert.Equal(t, "http://short.test/aaaaaaaa", payload[0].ShortURL)
}

func TestGetURLAnalyticsHandler(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	svc := &spyURLService{stats: []types.ClickStats{{Date: day, Count: 5}}}
	server, token := newURLTestServer(t, svc, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"startDate": "2026-08-30T00:00:00",
			"endDate":   "2026-08-31T00:00:00",
		}).
		Get(server.URL + "/urls/analytics/Ab3dEf9h")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Ab3dEf9h", svc.gotCode)
	assert.JSONEq(t, `[{"date":"2026-08-30","count":5}]`, string(resp.Body()))
}

func TestGetURLAnalyticsHandlerUnknownCode(t *testing.T) {
	t.Parallel()

	svc := &spyURLService{statsErr: store.ErrNotFound}
	server, token := newURLTestServer(t, svc, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"startDate": "2026-08-30T00:00:00",
			"endDate":   "2026-08-31T00:00:00",
		}).
		Get(server.URL + "/urls/analytics/missing1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestGetURLAnalyticsHandlerBadRange(t *testing.T) {
	t.Parallel()

	server, token := newURLTestServer(t, &spyURLService{}, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetQueryParam("startDate", "yesterday").
		Get(server.URL + "/urls/analytics/Ab3dEf9h")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestGetTotalClicksHandler(t *testing.T) {
	t.Parallel()

	svc := &spyURLService{stats: []types.ClickStats{
		{Date: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Count: 2},
		{Date: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), Count: 7},
	}}
	server, token := newURLTestServer(t, svc, &spyExporter{})

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"startDate": "2026-08-29",
			"endDate":   "2026-08-30",
		}).
		Get(server.URL + "/urls/total-clicks")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"2026-08-29":2,"2026-08-30":7}`, string(resp.Body()))

	// The end date is a calendar day and must be included whole.
	assert.Equal(t, 30, svc.rangeEnd.Day())
	assert.Equal(t, 23, svc.rangeEnd.Hour())
}

func TestExportAnalyticsHandlerDisabled(t *testing.T) {
	t.Parallel()

	exporter := &spyExporter{enabled: false}
	server, token := newURLTestServer(t, &spyURLService{}, exporter)

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"startDate": "2026-08-29",
			"endDate":   "2026-08-30",
		}).
		Get(server.URL + "/urls/export")
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
	assert.Zero(t, exporter.calls)
}

func TestExportAnalyticsHandler(t *testing.T) {
	t.Parallel()

	exporter := &spyExporter{
		enabled: true,
		result: services.ExportResult{
			Key: "exports/user-1/clicks-abc.csv",
			URL: "https://storage.test/presigned",
		},
	}
	server, token := newURLTestServer(t, &spyURLService{}, exporter)

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"startDate": "2026-08-29",
			"endDate":   "2026-08-30",
		}).
		Get(server.URL + "/urls/export")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, 1, exporter.calls)

	var payload services.ExportResult
	require.NoError(t, json.Unmarshal(resp.Body(), &payload))
	assert.Equal(t, "https://storage.test/presigned", payload.URL)
}
