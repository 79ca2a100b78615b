package events

import (
	"context"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/pkg/messaging"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// LogSink writes failure events to the log only.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event provider.FailureEvent) {
	s.logger.Warn("Failure event",
		zap.String("source", event.Source),
		zap.String("kind", event.Kind),
		zap.String("code", event.Code),
		zap.String("message", event.Message),
		zap.String("user_id", event.UserID),
		zap.Any("fields", event.Fields))
}

// RedisSink publishes failure events as JSON on a Redis channel and logs them.
// Publish errors are logged and dropped.
type RedisSink struct {
	client  messaging.RedisClient
	channel string
	log     *LogSink
	logger  *zap.Logger
}

func NewRedisSink(client messaging.RedisClient, channel string, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		client:  client,
		channel: channel,
		log:     NewLogSink(logger),
		logger:  logger,
	}
}

func (s *RedisSink) Publish(ctx context.Context, event provider.FailureEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.log.Publish(ctx, event)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.client.Publish(ctx, s.channel, event); err != nil {
		s.logger.Error("Failed to publish failure event",
			zap.String("channel", s.channel),
			zap.String("source", event.Source),
			zap.Error(err))
	}
}
