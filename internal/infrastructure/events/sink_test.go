package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/events"
	"github.com/kauecavalcante/chef-de-geladeira/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channel string) (<-chan messaging.Message, error) {
	args := m.Called(ctx, channel)
	return nil, args.Error(1)
}

func (m *MockRedisClient) Close() error {
	return m.Called().Error(0)
}

func TestRedisSink_Publish(t *testing.T) {
	t.Run("event is published with a timestamp", func(t *testing.T) {
		client := new(MockRedisClient)
		sink := events.NewRedisSink(client, "chef.events", zap.NewNop())

		client.On("Publish", mock.Anything, "chef.events", mock.MatchedBy(func(e provider.FailureEvent) bool {
			return e.Source == "webhook.stripe" && !e.Timestamp.IsZero()
		})).Return(nil)

		sink.Publish(context.Background(), provider.FailureEvent{Source: "webhook.stripe", Kind: "invalid_signature"})

		client.AssertExpectations(t)
	})

	t.Run("publish failure does not propagate", func(t *testing.T) {
		client := new(MockRedisClient)
		sink := events.NewRedisSink(client, "chef.events", zap.NewNop())
		client.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		assert.NotPanics(t, func() {
			sink.Publish(context.Background(), provider.FailureEvent{Source: "abuse_recorder"})
		})
	})

	t.Run("cancelled request context still publishes", func(t *testing.T) {
		client := new(MockRedisClient)
		sink := events.NewRedisSink(client, "chef.events", zap.NewNop())
		client.On("Publish", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), "chef.events", mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sink.Publish(ctx, provider.FailureEvent{Source: "webhook.mercadopago"})

		client.AssertExpectations(t)
	})
}
