package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingBearerToken = errors.New("missing bearer token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidPayload     = errors.New("invalid payload")
)
