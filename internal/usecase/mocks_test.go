package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*entity.UserSubscriptionRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserSubscriptionRecord), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, record *entity.UserSubscriptionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUserRepository) GetBySubscriptionRef(ctx context.Context, p entity.PaymentProvider, ref string) (*entity.UserSubscriptionRecord, error) {
	args := m.Called(ctx, p, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserSubscriptionRecord), args.Error(1)
}

func (m *MockUserRepository) ApplySubscription(ctx context.Context, userID string, update repository.SubscriptionUpdate) error {
	args := m.Called(ctx, userID, update)
	return args.Error(0)
}

func (m *MockUserRepository) ResetMonthlyUsage(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementRecipeCount(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID string, update repository.ProfileUpdate) error {
	args := m.Called(ctx, userID, update)
	return args.Error(0)
}

func (m *MockUserRepository) MergeIngredientException(ctx context.Context, userID string, preference entity.PreferenceTag, ingredient string) error {
	args := m.Called(ctx, userID, preference, ingredient)
	return args.Error(0)
}

func (m *MockUserRepository) RecordInvalidRequest(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

// MockRecipeRepository is a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) Save(ctx context.Context, recipe *entity.Recipe) error {
	args := m.Called(ctx, recipe)
	return args.Error(0)
}

func (m *MockRecipeRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.Recipe, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Recipe), args.Error(1)
}

// MockLanguageModel is a mock implementation of LanguageModel
type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockMercadoPagoAPI is a mock implementation of MercadoPagoAPI
type MockMercadoPagoAPI struct {
	mock.Mock
}

func (m *MockMercadoPagoAPI) Name() entity.PaymentProvider {
	return entity.PaymentProviderMercadoPago
}

func (m *MockMercadoPagoAPI) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockMercadoPagoAPI) GetPayment(ctx context.Context, paymentID string) (*provider.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Payment), args.Error(1)
}

func (m *MockMercadoPagoAPI) GetPreapproval(ctx context.Context, preapprovalID string) (*provider.Preapproval, error) {
	args := m.Called(ctx, preapprovalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Preapproval), args.Error(1)
}

func (m *MockMercadoPagoAPI) SearchLatestPreapproval(ctx context.Context, externalReference string) (*provider.Preapproval, error) {
	args := m.Called(ctx, externalReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Preapproval), args.Error(1)
}

func (m *MockMercadoPagoAPI) CancelPreapproval(ctx context.Context, preapprovalID string) error {
	args := m.Called(ctx, preapprovalID)
	return args.Error(0)
}

// MockStripeBilling is a mock implementation of StripeBilling
type MockStripeBilling struct {
	mock.Mock
}

func (m *MockStripeBilling) Name() entity.PaymentProvider {
	return entity.PaymentProviderStripe
}

func (m *MockStripeBilling) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockStripeBilling) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	args := m.Called(ctx, customerRef, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockStripeBilling) CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error {
	args := m.Called(ctx, subscriptionRef)
	return args.Error(0)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// MockEventSink is a mock implementation of EventSink
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Publish(ctx context.Context, event provider.FailureEvent) {
	m.Called(ctx, event)
}

// memoryUserRepository keeps records in memory and applies updates the way
// the SQL repository does.
type memoryUserRepository struct {
	mu      sync.Mutex
	records map[string]*entity.UserSubscriptionRecord
}

func newMemoryUserRepository(records ...*entity.UserSubscriptionRecord) *memoryUserRepository {
	repo := &memoryUserRepository{records: map[string]*entity.UserSubscriptionRecord{}}
	for _, r := range records {
		repo.records[r.UserID] = r
	}
	return repo
}

func (r *memoryUserRepository) snapshot(userID string) entity.UserSubscriptionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.records[userID]
}

func (r *memoryUserRepository) GetByID(ctx context.Context, userID string) (*entity.UserSubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, domainErrors.ErrUserNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryUserRepository) Create(ctx context.Context, record *entity.UserSubscriptionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.UserID]; !ok {
		cp := *record
		r.records[record.UserID] = &cp
	}
	return nil
}

func (r *memoryUserRepository) GetBySubscriptionRef(ctx context.Context, p entity.PaymentProvider, ref string) (*entity.UserSubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if (p == entity.PaymentProviderStripe && rec.StripeSubscriptionRef == ref) ||
			(p == entity.PaymentProviderMercadoPago && rec.MercadoPagoSubscriptionRef == ref) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrUserNotFound
}

func (r *memoryUserRepository) ApplySubscription(ctx context.Context, userID string, u repository.SubscriptionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[userID]
	rec.Plan = u.Plan
	rec.SubscriptionStatus = u.Status
	rec.SubscriptionCancelAt = u.CancelAt
	if u.StripeCustomerRef != "" {
		rec.StripeCustomerRef = u.StripeCustomerRef
	}
	if u.StripeSubscriptionRef != "" {
		rec.StripeSubscriptionRef = u.StripeSubscriptionRef
	}
	if u.MercadoPagoSubscriptionRef != "" {
		rec.MercadoPagoSubscriptionRef = u.MercadoPagoSubscriptionRef
	}
	if u.Provider != "" {
		rec.SubscriptionProvider = u.Provider
	}
	if u.EventAt != nil {
		rec.LastEventAt = u.EventAt
	}
	return nil
}

func (r *memoryUserRepository) ResetMonthlyUsage(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID].RecipeCount = 0
	r.records[userID].LastResetDate = at
	return nil
}

func (r *memoryUserRepository) IncrementRecipeCount(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID].RecipeCount++
	return nil
}

func (r *memoryUserRepository) UpdateProfile(ctx context.Context, userID string, u repository.ProfileUpdate) error {
	return nil
}

func (r *memoryUserRepository) MergeIngredientException(ctx context.Context, userID string, preference entity.PreferenceTag, ingredient string) error {
	return nil
}

func (r *memoryUserRepository) RecordInvalidRequest(ctx context.Context, userID string, at time.Time) error {
	return nil
}
