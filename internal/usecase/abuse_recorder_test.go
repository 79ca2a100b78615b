package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestAbuseRecorder_RecordAttempt(t *testing.T) {
	t.Run("attempt outlives the request context", func(t *testing.T) {
		users, sink := new(MockUserRepository), new(MockEventSink)
		recorder := usecase.NewAbuseRecorder(users, sink, zap.NewNop())
		users.On("RecordInvalidRequest", mock.Anything, "U", mock.AnythingOfType("time.Time")).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		recorder.RecordAttempt(ctx, "U")
		cancel()
		recorder.Wait()

		users.AssertExpectations(t)
		sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("failure is published to the sink", func(t *testing.T) {
		users, sink := new(MockUserRepository), new(MockEventSink)
		recorder := usecase.NewAbuseRecorder(users, sink, zap.NewNop())
		users.On("RecordInvalidRequest", mock.Anything, "U", mock.Anything).Return(errors.New("db down"))
		sink.On("Publish", mock.Anything, mock.MatchedBy(func(e provider.FailureEvent) bool {
			return e.Source == "abuse_recorder" && e.UserID == "U"
		})).Return()

		recorder.RecordAttempt(context.Background(), "U")
		recorder.Wait()

		sink.AssertExpectations(t)
	})
}
