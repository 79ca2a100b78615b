package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
)

const defaultAbuseRecordTimeout = 5 * time.Second

// AbuseRecorder counts invalid requests per user in the background.
type AbuseRecorder struct {
	users   repository.UserRepository
	sink    provider.EventSink
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewAbuseRecorder creates a recorder. sink may be nil.
func NewAbuseRecorder(users repository.UserRepository, sink provider.EventSink, logger *zap.Logger) *AbuseRecorder {
	return &AbuseRecorder{
		users:   users,
		sink:    sink,
		logger:  logger,
		timeout: defaultAbuseRecordTimeout,
		now:     time.Now,
	}
}

// RecordAttempt schedules the counter update and returns immediately. The
// update outlives the request context but is bounded by its own timeout;
// failures are logged and published, never returned.
func (r *AbuseRecorder) RecordAttempt(ctx context.Context, userID string) {
	at := r.now()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.users.RecordInvalidRequest(ctx, userID, at); err != nil {
			apperrors.LogError(r.logger, err, "Failed to record invalid request", zap.String("user_id", userID))
			if r.sink != nil {
				r.sink.Publish(ctx, provider.FailureEvent{
					Source:    "abuse_recorder",
					Kind:      "record_failed",
					Code:      apperrors.CodeOf(err),
					Message:   err.Error(),
					UserID:    userID,
					Timestamp: time.Now().UTC(),
				})
			}
			return
		}

		r.logger.Info("Invalid request recorded", zap.String("user_id", userID))
	}()
}

// Wait blocks until scheduled updates have finished.
func (r *AbuseRecorder) Wait() {
	r.wg.Wait()
}
