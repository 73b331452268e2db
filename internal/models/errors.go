package models

import "github.com/pkg/errors"

var (
	// ErrNotAuthorized signals a missing credential or an HTTP 401.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrRateLimitExceeded signals an HTTP 429.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

type APIError struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}
