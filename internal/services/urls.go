package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/linklytics/apiserver/internal/logger"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
)

const (
	shortCodeLength   = 8
	shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxShortCodeTries = 5
)

// URLRepository defines persistence operations for short URL mappings.
type URLRepository interface {
	Create(ctx context.Context, mapping types.URLMapping) (types.URLMapping, error)
	GetByShortCode(ctx context.Context, shortCode string) (types.URLMapping, error)
	ListByUser(ctx context.Context, userID int) ([]types.URLMapping, error)
	RecordClick(ctx context.Context, shortCode string, clickedAt time.Time) (types.URLMapping, error)
}

// ClickEventRepository defines read queries over recorded clicks.
type ClickEventRepository interface {
	ListByShortCode(ctx context.Context, shortCode string, start, end time.Time) ([]types.ClickStats, error)
	TotalsByUser(ctx context.Context, userID int, start, end time.Time) ([]types.ClickStats, error)
}

// URLService encapsulates short URL use-cases: creation, listing,
// redirect resolution with click recording, and click analytics.
type URLService struct {
	repo      URLRepository
	clicks    ClickEventRepository
	publisher *ClickPublisher
}

func NewURLService(repo URLRepository, clicks ClickEventRepository, publisher *ClickPublisher) *URLService {
	return &URLService{
		repo:      repo,
		clicks:    clicks,
		publisher: publisher,
	}
}

// CreateShortURL assigns a random short code to the original URL and
// persists the mapping for the given user. Code collisions are retried
// with a fresh code.
func (s *URLService) CreateShortURL(ctx context.Context, userID int, originalURL string) (types.URLMapping, error) {
	for try := 0; try < maxShortCodeTries; try++ {
		code, err := randomShortCode()
		if err != nil {
			return types.URLMapping{}, err
		}

		mapping, err := s.repo.Create(ctx, types.URLMapping{
			UserID:      userID,
			OriginalURL: originalURL,
			ShortCode:   code,
		})
		if err != nil {
			if errors.Is(err, store.ErrShortCodeTaken) {
				continue
			}
			return types.URLMapping{}, err
		}
		return mapping, nil
	}
	return types.URLMapping{}, fmt.Errorf("could not assign a unique short code after %d attempts", maxShortCodeTries)
}

// GetURLsByUser lists every mapping owned by the user.
func (s *URLService) GetURLsByUser(ctx context.Context, userID int) ([]types.URLMapping, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetClickEventsByDate returns per-day click counts for one short URL
// within [start, end]. Unknown short codes yield store.ErrNotFound.
func (s *URLService) GetClickEventsByDate(ctx context.Context, shortCode string, start, end time.Time) ([]types.ClickStats, error) {
	if _, err := s.repo.GetByShortCode(ctx, shortCode); err != nil {
		return nil, err
	}
	return s.clicks.ListByShortCode(ctx, shortCode, start, end)
}

// GetTotalClicksByUserAndDate returns per-day click totals across all
// of the user's short URLs within [start, end].
func (s *URLService) GetTotalClicksByUserAndDate(ctx context.Context, userID int, start, end time.Time) ([]types.ClickStats, error) {
	return s.clicks.TotalsByUser(ctx, userID, start, end)
}

// ResolveAndRecordClick resolves a short code to its original URL and
// records the click. The click event is also published to the message
// queue; a publish failure is logged and never fails the redirect.
func (s *URLService) ResolveAndRecordClick(ctx context.Context, shortCode string) (types.URLMapping, error) {
	clickedAt := time.Now()
	mapping, err := s.repo.RecordClick(ctx, shortCode, clickedAt)
	if err != nil {
		return types.URLMapping{}, err
	}

	if err := s.publisher.Publish(ctx, mapping, clickedAt); err != nil {
		logger.Log.Warnw("failed to publish click event",
			"short_code", shortCode,
			"error", err,
		)
	}

	return mapping, nil
}

func randomShortCode() (string, error) {
	buf := make([]byte, shortCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(buf), nil
}
