// Package services is the boundary between transports and the journey core:
// it publishes lifecycle events and assembles read views from the registry.
package services

import "errors"

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidRequest   = errors.New("invalid request")
)

// IsNotFound checks if an error should surface as HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

// IsValidationError checks if an error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
