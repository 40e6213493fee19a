package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/feastro/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubClient maps each channel to a topic and a single shared
// subscription named channel+suffix, so every worker competes for the
// same stream of events.
type PubSubClient struct {
	client         *pubsub.Client
	suffix         string
	maxOutstanding int

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubClient creates the SDK client. PUBSUB_EMULATOR_HOST is honoured
// by the SDK itself.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubClient{
		client:         client,
		suffix:         cfg.SubscriptionSuffix,
		maxOutstanding: cfg.MaxOutstanding,
		topics:         map[string]*pubsub.Topic{},
	}, nil
}

func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	topic, err := p.topic(ctx, channel)
	if err != nil {
		return "", err
	}
	id, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return id, nil
}

// Subscribe blocks in Receive until ctx ends. Failed messages are nacked
// and redelivered by Pub/Sub.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	topic, err := p.topic(ctx, channel)
	if err != nil {
		return err
	}

	name := p.subscriptionName(channel)
	sub := p.client.Subscription(name)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", name, err)
	}
	if !ok {
		if sub, err = p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic}); err != nil {
			return fmt.Errorf("create subscription %s: %w", name, err)
		}
	}
	if p.maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = p.maxOutstanding
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		if err := handler(ctx, Message{ID: m.ID, Data: m.Data, Attributes: m.Attributes}); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

// Close flushes pending publishes before closing the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.topics = map[string]*pubsub.Topic{}
	p.mu.Unlock()
	return p.client.Close()
}

// topic returns the cached handle for channel, creating the topic on first use.
func (p *PubSubClient) topic(ctx context.Context, channel string) (*pubsub.Topic, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("pubsub channel is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[channel]; ok {
		return t, nil
	}

	t := p.client.Topic(channel)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", channel, err)
	}
	if !ok {
		if t, err = p.client.CreateTopic(ctx, channel); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", channel, err)
		}
	}
	p.topics[channel] = t
	return t, nil
}

func (p *PubSubClient) subscriptionName(channel string) string {
	return channel + p.suffix
}
