package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/model"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxErrorMessageLength keeps provider error bodies out of the audit table.
const maxErrorMessageLength = 1000

type paymentEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentEventRepository {
	return &paymentEventRepository{
		db:     db,
		logger: logger,
	}
}

// Save appends an audit entry
func (r *paymentEventRepository) Save(ctx context.Context, event *entity.PaymentEventRecord) error {
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	message := event.ErrorMessage
	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength]
	}

	m := &model.PaymentEvent{
		Provider:        string(event.Provider),
		EventType:       event.EventType,
		UserID:          nullable(event.UserID),
		SubscriptionRef: nullable(event.SubscriptionRef),
		PlanTarget:      nullable(string(event.PlanTarget)),
		Outcome:         event.Outcome,
		ErrorCode:       nullable(event.ErrorCode),
		ErrorMessage:    nullable(message),
		EventAt:         event.EventAt,
		ReceivedAt:      receivedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("Failed to save payment event",
			zap.String("provider", m.Provider),
			zap.String("event_type", m.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to save payment event: %w", err)
	}

	event.ID = m.ID
	event.ReceivedAt = receivedAt
	return nil
}

// ListByUser returns the user's most recent audit entries
func (r *paymentEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.PaymentEventRecord, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("received_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.PaymentEvent
	if err := query.Find(&rows).Error; err != nil {
		r.logger.Error("Failed to list payment events",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}

	events := make([]entity.PaymentEventRecord, 0, len(rows))
	for _, m := range rows {
		events = append(events, entity.PaymentEventRecord{
			ID:              m.ID,
			Provider:        entity.PaymentProvider(m.Provider),
			EventType:       m.EventType,
			UserID:          deref(m.UserID),
			SubscriptionRef: deref(m.SubscriptionRef),
			PlanTarget:      entity.Plan(deref(m.PlanTarget)),
			Outcome:         m.Outcome,
			ErrorCode:       deref(m.ErrorCode),
			ErrorMessage:    deref(m.ErrorMessage),
			EventAt:         m.EventAt,
			ReceivedAt:      m.ReceivedAt,
		})
	}
	return events, nil
}
