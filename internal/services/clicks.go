package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/linklytics/apiserver/internal/mq"
	"github.com/linklytics/apiserver/types"
)

// ClickEventsChannel is the broker channel click events are published to.
const ClickEventsChannel = "linklytics.clicks"

// ClickMessage is the wire form of a click event published to the
// message queue for external analytics consumers.
type ClickMessage struct {
	EventID      string    `json:"event_id"`
	URLMappingID int       `json:"url_mapping_id"`
	UserID       int       `json:"user_id"`
	ShortCode    string    `json:"short_code"`
	OriginalURL  string    `json:"original_url"`
	ClickedAt    time.Time `json:"clicked_at"`
}

// ClickPublisher publishes click events to the configured message
// queue. A nil publisher (no broker configured) is valid and drops
// every event.
type ClickPublisher struct {
	queue *mq.MQ
}

func NewClickPublisher(queue *mq.MQ) *ClickPublisher {
	if queue == nil {
		return nil
	}
	return &ClickPublisher{queue: queue}
}

// Publish sends one click event to the click channel.
func (p *ClickPublisher) Publish(ctx context.Context, mapping types.URLMapping, clickedAt time.Time) error {
	if p == nil {
		return nil
	}

	msg := ClickMessage{
		EventID:      uuid.NewString(),
		URLMappingID: mapping.ID,
		UserID:       mapping.UserID,
		ShortCode:    mapping.ShortCode,
		OriginalURL:  mapping.OriginalURL,
		ClickedAt:    clickedAt,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = p.queue.Publish(ctx, ClickEventsChannel, data, map[string]string{
		"short_code": mapping.ShortCode,
	})
	return err
}
