package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/feastro/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const appID = "feastro"

// RabbitMQClient publishes and consumes through the default exchange, one
// queue per channel name. Publishing and consuming use separate AMQP
// channels; publishes are serialized because amqp.Channel is not safe for
// concurrent use.
type RabbitMQClient struct {
	conn      *amqp.Connection
	publishCh *amqp.Channel
	consumeCh *amqp.Channel
	cfg       config.RabbitMQConfig

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQClient dials cfg.URL and opens the publish and consume channels.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat:  10 * time.Second,
		Properties: amqp.Table{"connection_name": appID},
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	client := &RabbitMQClient{conn: conn, cfg: cfg, declared: map[string]bool{}}
	if client.publishCh, err = conn.Channel(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if client.consumeCh, err = conn.Channel(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	if cfg.PrefetchCount > 0 {
		if err := client.consumeCh.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}
	return client, nil
}

func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declare(r.publishCh, channel); err != nil {
		return "", err
	}

	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	id := uuid.NewString()
	err := r.publishCh.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: r.deliveryMode(),
		MessageId:    id,
		AppId:        appID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return id, nil
}

// Subscribe blocks until ctx ends or the delivery stream closes. A message
// whose handler fails is requeued once; a second failure drops it.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	err := r.declare(r.consumeCh, channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	tag := appID + "-" + uuid.NewString()
	deliveries, err := r.consumeCh.Consume(channel, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}
	defer func() { _ = r.consumeCh.Cancel(tag, false) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{ID: d.MessageId, Data: d.Body, Attributes: headersToAttributes(d.Headers)}
			if err := handler(ctx, msg); err != nil {
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	for _, ch := range []*amqp.Channel{r.publishCh, r.consumeCh} {
		if ch != nil {
			_ = ch.Close()
		}
	}
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// declare must be called with r.mu held.
func (r *RabbitMQClient) declare(ch *amqp.Channel, queue string) error {
	if r.declared[queue] {
		return nil
	}
	if _, err := ch.QueueDeclare(queue, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	r.declared[queue] = true
	return nil
}

func (r *RabbitMQClient) deliveryMode() uint8 {
	if r.cfg.QueueDurable {
		return amqp.Persistent
	}
	return amqp.Transient
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for k, v := range headers {
		switch val := v.(type) {
		case string:
			attrs[k] = val
		case []byte:
			attrs[k] = string(val)
		default:
			attrs[k] = fmt.Sprint(val)
		}
	}
	return attrs
}
