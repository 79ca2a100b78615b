package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/model"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserRepository(db *gorm.DB, logger *zap.Logger) repository.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// modelToEntity converts a model.User to entity.UserSubscriptionRecord
func (r *userRepository) modelToEntity(m *model.User) *entity.UserSubscriptionRecord {
	prefs := make([]entity.PreferenceTag, 0, len(m.DietaryPreferences))
	for _, p := range m.DietaryPreferences {
		prefs = append(prefs, entity.PreferenceTag(p))
	}

	exceptions := entity.IngredientExceptions{}
	for pref, items := range m.IngredientExceptions.Data() {
		exceptions[entity.PreferenceTag(pref)] = items
	}

	return &entity.UserSubscriptionRecord{
		UserID:                     m.ID,
		Email:                      m.Email,
		DisplayName:                m.DisplayName,
		Plan:                       entity.Plan(m.Plan),
		SubscriptionStatus:         entity.SubscriptionStatus(m.SubscriptionStatus),
		SubscriptionCancelAt:       m.SubscriptionCancelAt,
		StripeCustomerRef:          deref(m.StripeCustomerID),
		StripeSubscriptionRef:      deref(m.StripeSubscriptionID),
		MercadoPagoSubscriptionRef: deref(m.MercadoPagoSubscriptionID),
		SubscriptionProvider:       entity.PaymentProvider(deref(m.SubscriptionProvider)),
		RecipeCount:                m.RecipeCount,
		LastResetDate:              m.LastResetDate,
		LastEventAt:                m.LastEventAt,
		DietaryPreferences:         prefs,
		IngredientExceptions:       exceptions,
		InvalidRequestCount:        m.InvalidRequestCount,
		LastInvalidRequestAt:       m.LastInvalidRequestAt,
		CreatedAt:                  m.CreatedAt,
		UpdatedAt:                  m.UpdatedAt,
	}
}

// entityToModel converts an entity.UserSubscriptionRecord to model.User
func (r *userRepository) entityToModel(e *entity.UserSubscriptionRecord) *model.User {
	return &model.User{
		ID:                        e.UserID,
		Email:                     e.Email,
		DisplayName:               e.DisplayName,
		Plan:                      string(e.Plan),
		SubscriptionStatus:        string(e.SubscriptionStatus),
		SubscriptionCancelAt:      e.SubscriptionCancelAt,
		StripeCustomerID:          nullable(e.StripeCustomerRef),
		StripeSubscriptionID:      nullable(e.StripeSubscriptionRef),
		MercadoPagoSubscriptionID: nullable(e.MercadoPagoSubscriptionRef),
		SubscriptionProvider:      nullable(string(e.SubscriptionProvider)),
		RecipeCount:               e.RecipeCount,
		LastResetDate:             e.LastResetDate,
		LastEventAt:               e.LastEventAt,
		DietaryPreferences:        tagsToStrings(e.DietaryPreferences),
		IngredientExceptions:      exceptionsToJSON(e.IngredientExceptions),
		InvalidRequestCount:       e.InvalidRequestCount,
		LastInvalidRequestAt:      e.LastInvalidRequestAt,
		CreatedAt:                 e.CreatedAt,
		UpdatedAt:                 e.UpdatedAt,
	}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*entity.UserSubscriptionRecord, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, err
	}
	return r.modelToEntity(&user), nil
}

func (r *userRepository) Create(ctx context.Context, record *entity.UserSubscriptionRecord) error {
	user := r.entityToModel(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user).Error
}

func (r *userRepository) GetBySubscriptionRef(ctx context.Context, p entity.PaymentProvider, ref string) (*entity.UserSubscriptionRecord, error) {
	var column string
	switch p {
	case entity.PaymentProviderStripe:
		column = "stripe_subscription_id"
	case entity.PaymentProviderMercadoPago:
		column = "mercado_pago_subscription_id"
	default:
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedProvider, p)
	}

	var user model.User
	err := r.db.WithContext(ctx).Where(column+" = ?", ref).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, err
	}
	return r.modelToEntity(&user), nil
}

func (r *userRepository) ApplySubscription(ctx context.Context, userID string, update repository.SubscriptionUpdate) error {
	fields := map[string]interface{}{
		"plan":                   string(update.Plan),
		"subscription_status":    string(update.Status),
		"subscription_cancel_at": update.CancelAt,
	}
	if update.StripeCustomerRef != "" {
		fields["stripe_customer_id"] = update.StripeCustomerRef
	}
	if update.StripeSubscriptionRef != "" {
		fields["stripe_subscription_id"] = update.StripeSubscriptionRef
	}
	if update.MercadoPagoSubscriptionRef != "" {
		fields["mercado_pago_subscription_id"] = update.MercadoPagoSubscriptionRef
	}
	if update.Provider != "" {
		fields["subscription_provider"] = string(update.Provider)
	}
	if update.EventAt != nil {
		fields["last_event_at"] = *update.EventAt
	}

	return r.updateFields(ctx, userID, fields)
}

func (r *userRepository) ResetMonthlyUsage(ctx context.Context, userID string, at time.Time) error {
	return r.updateFields(ctx, userID, map[string]interface{}{
		"recipe_count":    0,
		"last_reset_date": at,
	})
}

func (r *userRepository) IncrementRecipeCount(ctx context.Context, userID string) error {
	return r.updateFields(ctx, userID, map[string]interface{}{
		"recipe_count": gorm.Expr("recipe_count + 1"),
	})
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, update repository.ProfileUpdate) error {
	fields := map[string]interface{}{}
	if update.DisplayName != nil {
		fields["display_name"] = *update.DisplayName
	}
	if update.DietaryPreferences != nil {
		fields["dietary_preferences"] = tagsToStrings(*update.DietaryPreferences)
	}
	if len(fields) == 0 {
		return nil
	}
	return r.updateFields(ctx, userID, fields)
}

// MergeIngredientException adds ingredient to the preference's exception set
// under a row lock so concurrent saves do not overwrite each other.
func (r *userRepository) MergeIngredientException(ctx context.Context, userID string, preference entity.PreferenceTag, ingredient string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "ingredient_exceptions").
			Where("id = ?", userID).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrUserNotFound
			}
			return err
		}

		exceptions := entity.IngredientExceptions{}
		for pref, items := range user.IngredientExceptions.Data() {
			exceptions[entity.PreferenceTag(pref)] = items
		}
		if !exceptions.Merge(preference, ingredient) {
			return nil
		}

		return tx.Model(&model.User{}).
			Where("id = ?", userID).
			Update("ingredient_exceptions", exceptionsToJSON(exceptions)).Error
	})
}

func (r *userRepository) RecordInvalidRequest(ctx context.Context, userID string, at time.Time) error {
	return r.updateFields(ctx, userID, map[string]interface{}{
		"invalid_request_count":   gorm.Expr("invalid_request_count + 1"),
		"last_invalid_request_at": at,
	})
}

func (r *userRepository) updateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		r.logger.Error("Failed to update user",
			zap.String("user_id", userID),
			zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tagsToStrings(tags []entity.PreferenceTag) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(tags))
	for _, t := range tags {
		out = append(out, string(t))
	}
	return out
}

func exceptionsToJSON(exceptions entity.IngredientExceptions) datatypes.JSONType[map[string][]string] {
	m := make(map[string][]string, len(exceptions))
	for pref, items := range exceptions {
		m[string(pref)] = items
	}
	return datatypes.NewJSONType(m)
}
