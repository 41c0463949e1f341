package services

import "errors"

// Shared sentinels the handlers map to HTTP statuses.
var (
	ErrForbidden    = errors.New("forbidden access")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)
