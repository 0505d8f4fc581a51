package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrInvalidCode      = errors.New("invalid code")
	ErrExpiredCode      = errors.New("code expired")
	ErrStorage          = errors.New("storage error")
	ErrUpstream         = errors.New("upstream error")
)

// Store-level outcomes. Stores return these; services translate them.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
