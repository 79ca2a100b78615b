package model

import (
	"time"
)

// PaymentEvent is one received payment webhook and what was done with it.
type PaymentEvent struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider        string     `gorm:"size:20;not null;index" json:"provider"`
	EventType       string     `gorm:"size:100;not null;index" json:"event_type"`
	UserID          *string    `gorm:"size:128;index:idx_payment_events_user_received,priority:1" json:"user_id,omitempty"`
	SubscriptionRef *string    `gorm:"size:255;index" json:"subscription_ref,omitempty"`
	PlanTarget      *string    `gorm:"size:20" json:"plan_target,omitempty"`
	Outcome         string     `gorm:"size:20;not null;index" json:"outcome"`
	ErrorCode       *string    `gorm:"size:50" json:"error_code,omitempty"`
	ErrorMessage    *string    `gorm:"type:text" json:"error_message,omitempty"`
	EventAt         *time.Time `json:"event_at,omitempty"`
	ReceivedAt      time.Time  `gorm:"not null;default:now();index:idx_payment_events_user_received,priority:2,sort:desc" json:"received_at"`
}

// TableName specifies the table name for GORM
func (PaymentEvent) TableName() string {
	return "payment_events"
}
