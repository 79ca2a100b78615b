package repository

import (
	"context"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
)

// PaymentEventRepository keeps the webhook audit log.
type PaymentEventRepository interface {
	Save(ctx context.Context, event *entity.PaymentEventRecord) error
	// ListByUser returns the user's events newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.PaymentEventRecord, error)
}
