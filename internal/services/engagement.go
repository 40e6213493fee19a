package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/feastro/apiserver/internal/mq"
	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
)

// EventPublisher emits engagement events.
type EventPublisher interface {
	PublishEngagement(ctx context.Context, event types.EngagementEvent) error
}

// EngagementRecorder counts publish outcomes, e.g. for metrics.
type EngagementRecorder interface {
	EngagementEvent(action, result string)
}

// Broker is the subset of the message queue used for engagement events.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEngagement(context.Context, types.EngagementEvent) error { return nil }

// EngagementPublisher serializes events as JSON onto a broker channel.
type EngagementPublisher struct {
	broker   Broker
	channel  string
	recorder EngagementRecorder
}

func NewEngagementPublisher(broker Broker, channel string, recorder EngagementRecorder) *EngagementPublisher {
	return &EngagementPublisher{broker: broker, channel: channel, recorder: recorder}
}

func (p *EngagementPublisher) PublishEngagement(ctx context.Context, event types.EngagementEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.broker.Publish(ctx, p.channel, data, map[string]string{
		"action":    event.Action.String(),
		"recipe_id": fmt.Sprint(event.RecipeID),
	})
	if p.recorder != nil {
		result := "published"
		if err != nil {
			result = "failed"
		}
		p.recorder.EngagementEvent(event.Action.String(), result)
	}
	return err
}

// EngagementLog appends consumed events.
type EngagementLog interface {
	AppendLog(ctx context.Context, event types.EngagementEvent) error
}

// EngagementConsumer drains the engagement channel into the engagement log.
type EngagementConsumer struct {
	broker  Broker
	channel string
	log     EngagementLog
	logger  *slog.Logger
}

func NewEngagementConsumer(broker Broker, channel string, log EngagementLog, logger *slog.Logger) *EngagementConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngagementConsumer{broker: broker, channel: channel, log: log, logger: logger}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (c *EngagementConsumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "engagement consumer started", "channel", c.channel)
	return c.broker.Subscribe(ctx, c.channel, c.Handle)
}

// Handle decodes one message and appends it to the log. Malformed payloads
// and events for deleted records are dropped rather than redelivered.
func (c *EngagementConsumer) Handle(ctx context.Context, msg mq.Message) error {
	var event types.EngagementEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed engagement event", "message_id", msg.ID, "error", err)
		return nil
	}
	if err := c.log.AppendLog(ctx, event); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.logger.InfoContext(ctx, "dropping engagement event for deleted record", "recipe_id", event.RecipeID)
			return nil
		}
		c.logger.ErrorContext(ctx, "append engagement log", "message_id", msg.ID, "error", err)
		return err
	}
	return nil
}
