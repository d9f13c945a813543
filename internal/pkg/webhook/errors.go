package webhook

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestInvalid is returned for deliveries missing required headers
	// or carrying a body that is not a usable JSON payload.
	ErrRequestInvalid = errors.New("invalid webhook request")
	// ErrSecretNotConfigured means no signing secret is configured.
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	// ErrUnauthorized means the signature did not match the body.
	ErrUnauthorized = errors.New("invalid webhook signature")
)

// PersistenceError wraps a store failure that happened while recording or
// processing an accepted delivery.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("webhook %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
