package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/linklytics/apiserver/internal/services"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
)

const (
	queryStartDate = "startDate"
	queryEndDate   = "endDate"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// urlService is the slice of URLService the handler consumes.
type urlService interface {
	CreateShortURL(ctx context.Context, userID int, originalURL string) (types.URLMapping, error)
	GetURLsByUser(ctx context.Context, userID int) ([]types.URLMapping, error)
	GetClickEventsByDate(ctx context.Context, shortCode string, start, end time.Time) ([]types.ClickStats, error)
	GetTotalClicksByUserAndDate(ctx context.Context, userID int, start, end time.Time) ([]types.ClickStats, error)
}

// analyticsExporter is the slice of AnalyticsExporter the handler consumes.
type analyticsExporter interface {
	Enabled() bool
	Export(ctx context.Context, userID int, start, end time.Time) (services.ExportResult, error)
}

// URLHandler provides HTTP handlers for short URL management and
// click analytics. All routes require an authenticated user.
type URLHandler struct {
	urlService urlService
	exporter   analyticsExporter
	baseURL    string
	validate   *validator.Validate
}

// NewURLHandler constructs a URLHandler with the provided dependencies.
func NewURLHandler(service urlService, exporter analyticsExporter, baseURL string) *URLHandler {
	return &URLHandler{
		urlService: service,
		exporter:   exporter,
		baseURL:    strings.TrimRight(baseURL, "/"),
		validate:   validator.New(),
	}
}

// URLRouter registers URL management routes on the given router.
func URLRouter(
	r chi.Router,
	service *services.URLService,
	exporter *services.AnalyticsExporter,
	authMiddleware func(http.Handler) http.Handler,
	baseURL string,
) {
	handler := NewURLHandler(service, exporter, baseURL)

	r.Use(authMiddleware)
	r.Post("/shorten", handler.CreateShortURL)
	r.Get("/my-urls", handler.ListUserURLs)
	r.Get("/analytics/{shortCode}", handler.GetURLAnalytics)
	r.Get("/total-clicks", handler.GetTotalClicks)
	r.Get("/export", handler.ExportAnalytics)
}

// CreateShortURL shortens an original URL for the authenticated user.
func (h *URLHandler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.OriginalURL = strings.TrimSpace(req.OriginalURL)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "a valid originalUrl is required")
		return
	}

	mapping, err := h.urlService.CreateShortURL(r.Context(), userID, req.OriginalURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create short url")
		return
	}

	writeJSON(w, http.StatusCreated, h.urlResponse(mapping))
}

// ListUserURLs lists every short URL owned by the authenticated user.
func (h *URLHandler) ListUserURLs(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	mappings, err := h.urlService.GetURLsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list urls")
		return
	}

	responses := make([]URLResponse, 0, len(mappings))
	for _, mapping := range mappings {
		responses = append(responses, h.urlResponse(mapping))
	}

	writeJSON(w, http.StatusOK, responses)
}

// GetURLAnalytics returns per-day click counts for one short URL within
// the requested datetime range.
//
// Analytics are keyed by short code alone: any authenticated user may
// query any code, not just their own. This is intentional, matching the
// upstream behavior this endpoint preserves.
func (h *URLHandler) GetURLAnalytics(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	start, end, err := parseDateTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.urlService.GetClickEventsByDate(r.Context(), shortCode, start, end)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "short url not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch analytics")
		return
	}

	writeJSON(w, http.StatusOK, clickStatsResponse(stats))
}

// GetTotalClicks returns per-day click totals across all of the
// authenticated user's short URLs within the requested date range.
func (h *URLHandler) GetTotalClicks(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.urlService.GetTotalClicksByUserAndDate(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch totals")
		return
	}

	totals := make(map[string]int64, len(stats))
	for _, s := range stats {
		totals[s.Date.Format(dateLayout)] = s.Count
	}

	writeJSON(w, http.StatusOK, totals)
}

// ExportAnalytics writes the caller's per-day click totals to object
// storage as CSV and returns a presigned download URL.
func (h *URLHandler) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.exporter == nil || !h.exporter.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "analytics export is not configured")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.exporter.Export(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export analytics")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ShortenRequest is the payload for creating a short URL.
type ShortenRequest struct {
	OriginalURL string `json:"originalUrl" validate:"required,url"`
}

// URLResponse is the API shape of a short URL mapping.
type URLResponse struct {
	ID          int       `json:"id"`
	OriginalURL string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ClickStatsResponse is one per-day aggregate in an analytics response.
type ClickStatsResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

func (h *URLHandler) urlResponse(mapping types.URLMapping) URLResponse {
	return URLResponse{
		ID:          mapping.ID,
		OriginalURL: mapping.OriginalURL,
		ShortCode:   mapping.ShortCode,
		ShortURL:    h.baseURL + "/" + mapping.ShortCode,
		ClickCount:  mapping.ClickCount,
		CreatedAt:   mapping.CreatedAt,
	}
}

func clickStatsResponse(stats []types.ClickStats) []ClickStatsResponse {
	responses := make([]ClickStatsResponse, 0, len(stats))
	for _, s := range stats {
		responses = append(responses, ClickStatsResponse{
			Date:  s.Date.Format(dateLayout),
			Count: s.Count,
		})
	}
	return responses
}

func parseDateTimeRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := parseDateTime(r.URL.Query().Get(queryStartDate))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid startDate")
	}
	end, err := parseDateTime(r.URL.Query().Get(queryEndDate))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid endDate")
	}
	return start, end, nil
}

func parseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(dateTimeLayout, raw)
}

// parseDateRange parses startDate/endDate as calendar dates. The end
// date is inclusive.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(r.URL.Query().Get(queryStartDate)))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid startDate")
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(r.URL.Query().Get(queryEndDate)))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid endDate")
	}
	end = end.Add(24*time.Hour - time.Nanosecond)
	return start, end, nil
}
