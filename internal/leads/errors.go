package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead does not exist or belongs to another user
	ErrLeadNotFound = errors.New("lead not found")

	// ErrMissingOwner is returned when an operation is attempted without an authenticated owner
	ErrMissingOwner = errors.New("lead owner is required")
)
