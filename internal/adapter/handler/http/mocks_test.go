package http

import (
	"context"
	"net/url"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	"github.com/stretchr/testify/mock"
)

type mockRecipeGenerator struct {
	mock.Mock
}

func (m *mockRecipeGenerator) Generate(ctx context.Context, in usecase.GenerateRecipeInput) (*entity.Recipe, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Recipe), args.Error(1)
}

func (m *mockRecipeGenerator) ListRecipes(ctx context.Context, userID, email string) ([]entity.Recipe, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Recipe), args.Error(1)
}

type mockIngredientChecker struct {
	mock.Mock
}

func (m *mockIngredientChecker) ValidateIngredients(ctx context.Context, userID, email, ingredients string, preferences []string) (*entity.ConflictReport, error) {
	args := m.Called(ctx, userID, email, ingredients, preferences)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ConflictReport), args.Error(1)
}

func (m *mockIngredientChecker) FilterIngredients(ctx context.Context, ingredients string) (*entity.IngredientClassification, error) {
	args := m.Called(ctx, ingredients)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.IngredientClassification), args.Error(1)
}

func (m *mockIngredientChecker) SaveException(ctx context.Context, userID, email, preference, ingredient string) (string, error) {
	args := m.Called(ctx, userID, email, preference, ingredient)
	return args.String(0), args.Error(1)
}

type mockProfileManager struct {
	mock.Mock
}

func (m *mockProfileManager) GetProfile(ctx context.Context, userID, email string) (*usecase.ProfileView, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ProfileView), args.Error(1)
}

func (m *mockProfileManager) UpdateProfile(ctx context.Context, userID, email string, displayName *string, preferences []string) error {
	args := m.Called(ctx, userID, email, displayName, preferences)
	return args.Error(0)
}

func (m *mockProfileManager) UpdatePreferences(ctx context.Context, userID, email string, preferences []string) error {
	args := m.Called(ctx, userID, email, preferences)
	return args.Error(0)
}

type mockBillingManager struct {
	mock.Mock
}

func (m *mockBillingManager) StartCheckout(ctx context.Context, userID, email string, providerName entity.PaymentProvider) (string, error) {
	args := m.Called(ctx, userID, email, providerName)
	return args.String(0), args.Error(1)
}

func (m *mockBillingManager) OpenBillingPortal(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockBillingManager) CancelSubscription(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockBillingManager) VerifyPayment(ctx context.Context, userID, paymentID string) error {
	args := m.Called(ctx, userID, paymentID)
	return args.Error(0)
}

type mockAttemptRecorder struct {
	mock.Mock
}

func (m *mockAttemptRecorder) RecordAttempt(ctx context.Context, userID string) {
	m.Called(ctx, userID)
}

type mockEventApplier struct {
	mock.Mock
}

func (m *mockEventApplier) Apply(ctx context.Context, event *entity.NormalizedPaymentEvent) (usecase.ReconcileOutcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(usecase.ReconcileOutcome), args.Error(1)
}

type mockMercadoPagoSource struct {
	mock.Mock
}

func (m *mockMercadoPagoSource) Normalize(ctx context.Context, body []byte, query url.Values) (*entity.NormalizedPaymentEvent, string, error) {
	args := m.Called(ctx, body, query)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*entity.NormalizedPaymentEvent), args.String(1), args.Error(2)
}

type mockEventSink struct {
	mock.Mock
}

func (m *mockEventSink) Publish(ctx context.Context, event provider.FailureEvent) {
	m.Called(ctx, event)
}

type mockEventAuditor struct {
	mock.Mock
}

func (m *mockEventAuditor) Save(ctx context.Context, event *entity.PaymentEventRecord) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
