package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrPublishFailed marks relay failures so job metrics can classify them.
var ErrPublishFailed = errors.New("publish_failed")

// Message is the wire form of an outbox event.
type Message struct {
	ID   string
	Type string
	Data []byte
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
}

type PublisherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Redis     *redis.Client `optional:"true"`
}

// NewPublisher selects the relay target from configuration.
func NewPublisher(p PublisherParams) (Publisher, error) {
	cfg := p.Config.Events
	switch strings.ToLower(strings.TrimSpace(cfg.Publisher)) {
	case "", config.PublisherLog:
		return NewLogPublisher(p.Log), nil
	case config.PublisherRedis:
		if p.Redis == nil {
			return nil, errors.New("events publisher redis requires REDIS_ADDRESS")
		}
		return NewRedisPublisher(p.Redis, cfg.RedisChannel), nil
	case config.PublisherPubSub:
		if strings.TrimSpace(cfg.PubSubProjectID) == "" {
			return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
		}
		var opts []option.ClientOption
		if cfg.PubSubCredJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.PubSubCredJSON)))
		}
		client, err := pubsub.NewClient(context.Background(), cfg.PubSubProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		pub := NewPubSubPublisher(client, cfg.PubSubTopic)
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				pub.topic.Stop()
				return client.Close()
			},
		})
		return pub, nil
	default:
		return nil, fmt.Errorf("unsupported events publisher %q", cfg.Publisher)
	}
}

type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events.log")}
}

func (p *LogPublisher) Name() string { return config.PublisherLog }

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("event",
		zap.String("event_id", msg.ID),
		zap.String("event_type", msg.Type),
		zap.ByteString("payload", msg.Data),
	)
	return nil
}

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return config.PublisherRedis }

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	if err := p.client.Publish(ctx, p.channel, msg.Data).Err(); err != nil {
		return fmt.Errorf("%w: redis: %w", ErrPublishFailed, err)
	}
	return nil
}

type PubSubPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubPublisher(client *pubsub.Client, topic string) *PubSubPublisher {
	return &PubSubPublisher{topic: client.Topic(topic)}
}

func (p *PubSubPublisher) Name() string { return config.PublisherPubSub }

func (p *PubSubPublisher) Publish(ctx context.Context, msg Message) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: msg.Data,
		Attributes: map[string]string{
			"event_id":   msg.ID,
			"event_type": msg.Type,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("%w: pubsub: %w", ErrPublishFailed, err)
	}
	return nil
}
