package shared

import "errors"

var (
	// ErrNotFound indicates a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor lacks a required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidToken indicates an unknown or revoked API token.
	ErrInvalidToken = errors.New("invalid token")
)
