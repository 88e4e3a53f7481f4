package model

import "errors"

var (
	// ErrValidation marks bad or missing caller input. Requests failing
	// validation have no side effect.
	ErrValidation = errors.New("validation error")

	// ErrSecretUnavailable marks a failed credential fetch. The previous
	// cached snapshot stays in effect until the next TTL tick.
	ErrSecretUnavailable = errors.New("secret unavailable")

	// ErrDownstream marks a store or queue connection/operation failure.
	ErrDownstream = errors.New("downstream unavailable")

	ErrNotFound = errors.New("not found")
)
