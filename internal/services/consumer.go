package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linklytics/apiserver/internal/logger"
	"github.com/linklytics/apiserver/internal/mq"
)

// ClickConsumer drains the click-event channel. It is the in-process
// counterpart of external analytics consumers: it decodes each event
// and emits a structured log record for downstream aggregation.
type ClickConsumer struct {
	queue *mq.MQ
}

func NewClickConsumer(queue *mq.MQ) *ClickConsumer {
	return &ClickConsumer{queue: queue}
}

// Run subscribes to the click channel and blocks until the context is
// cancelled or the subscription fails.
func (c *ClickConsumer) Run(ctx context.Context) error {
	return c.queue.Subscribe(ctx, ClickEventsChannel, c.handle)
}

func (c *ClickConsumer) handle(_ context.Context, msg mq.Message) error {
	var click ClickMessage
	if err := json.Unmarshal(msg.Data, &click); err != nil {
		return fmt.Errorf("decode click event %s: %w", msg.ID, err)
	}

	logger.Log.Infow("click event",
		"event_id", click.EventID,
		"url_mapping_id", click.URLMappingID,
		"user_id", click.UserID,
		"short_code", click.ShortCode,
		"clicked_at", click.ClickedAt,
	)
	return nil
}
