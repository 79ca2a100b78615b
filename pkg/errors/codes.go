package errors

// Application-wide error codes.
const (
	ErrInternal          = "INTERNAL"
	ErrNotFound          = "NOT_FOUND"
	ErrInvalidArgument   = "INVALID_ARGUMENT"
	ErrUnauthenticated   = "UNAUTHENTICATED"
	ErrUnauthorized      = "UNAUTHORIZED"
	ErrConflict          = "CONFLICT"
	ErrTimeout           = "TIMEOUT"
	ErrNotImplemented    = "NOT_IMPLEMENTED"
	ErrResourceExhausted = "RESOURCE_EXHAUSTED"
	ErrUpstream          = "UPSTREAM"
)
