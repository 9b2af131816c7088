package models

import (
	"errors"
	"fmt"
)

// Domain errors. Surfaces match them with errors.Is to pick the
// user-visible message.
var (
	// ErrNotFound is returned when a sku or order id cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers malformed input, empty carts and empty orders.
	ErrValidation = errors.New("validation failed")
	// ErrProductUnavailable is returned when adding an inactive or missing sku.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrDeliveryFailed is returned when a notification reached no channel.
	ErrDeliveryFailed = errors.New("notification delivery failed")

	ErrEmptyCart     = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrEmptyOrder    = fmt.Errorf("%w: no orderable items", ErrValidation)
	ErrMixedCurrency = fmt.Errorf("%w: cart already holds another currency", ErrValidation)
	ErrOrderTooLarge = fmt.Errorf("%w: order total out of range", ErrValidation)
)

// UsageError reports a malformed operator command together with the
// expected grammar.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Usage
}

// Unwrap lets errors.Is(err, ErrValidation) match usage errors.
func (e *UsageError) Unwrap() error {
	return ErrValidation
}

// Usage builds a UsageError.
func Usage(format string) error {
	return &UsageError{Usage: format}
}
