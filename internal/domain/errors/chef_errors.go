package errors

import "errors"

var (
	// ErrUserNotFound indicates that no subscription record exists for the user
	ErrUserNotFound = errors.New("user not found")

	// ErrEntitlementDenied indicates that a free user reached the monthly generation limit
	ErrEntitlementDenied = errors.New("monthly recipe limit reached")

	// ErrNoBillingCustomer indicates that the user has no Stripe customer to open a portal for
	ErrNoBillingCustomer = errors.New("no billing customer for user")

	// ErrNoSubscription indicates that the user has no provider subscription reference
	ErrNoSubscription = errors.New("no subscription found for user")

	// ErrMissingEmail indicates that checkout was requested for a user without email
	ErrMissingEmail = errors.New("user email is required for checkout")

	// ErrUnsupportedProvider indicates an unknown or unconfigured payment provider
	ErrUnsupportedProvider = errors.New("unsupported payment provider")

	// ErrInvalidSignature indicates a webhook whose signature could not be verified
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload indicates a webhook or model response that could not be parsed
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrPaymentNotVerified indicates a payment that is not approved for the requesting user
	ErrPaymentNotVerified = errors.New("payment could not be verified")

	// ErrUpstream indicates a failure of an external provider or the language model
	ErrUpstream = errors.New("upstream service failure")
)
