package model

import (
	"time"

	"gorm.io/datatypes"
)

// User is the persisted user subscription record.
type User struct {
	ID          string `gorm:"primaryKey;size:128" json:"id"`
	Email       string `gorm:"size:320" json:"email"`
	DisplayName string `gorm:"size:200" json:"display_name"`

	Plan                 string     `gorm:"size:20;not null;default:'free'" json:"plan"`
	SubscriptionStatus   string     `gorm:"size:40;not null;default:'none'" json:"subscription_status"`
	SubscriptionCancelAt *time.Time `json:"subscription_cancel_at,omitempty"`

	StripeCustomerID          *string `gorm:"size:100;index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID      *string `gorm:"size:100;uniqueIndex" json:"stripe_subscription_id,omitempty"`
	MercadoPagoSubscriptionID *string `gorm:"size:100;uniqueIndex" json:"mercadopago_subscription_id,omitempty"`
	SubscriptionProvider      *string `gorm:"size:20" json:"subscription_provider,omitempty"`

	RecipeCount   int        `gorm:"not null;default:0" json:"recipe_count"`
	LastResetDate time.Time  `gorm:"not null" json:"last_reset_date"`
	LastEventAt   *time.Time `json:"last_event_at,omitempty"`

	DietaryPreferences   datatypes.JSONSlice[string]             `gorm:"type:jsonb" json:"dietary_preferences"`
	IngredientExceptions datatypes.JSONType[map[string][]string] `gorm:"type:jsonb" json:"ingredient_exceptions"`

	InvalidRequestCount  int        `gorm:"not null;default:0" json:"invalid_request_count"`
	LastInvalidRequestAt *time.Time `json:"last_invalid_request_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
