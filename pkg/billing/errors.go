package billing

import "errors"

var (
	// ErrNotConfigured is returned when a Syncer or provider is created
	// without its required dependencies
	ErrNotConfigured = errors.New("billing sync not configured")

	// ErrMappingNotFound is returned when no customer mapping exists for the
	// requested user or provider customer identifier
	ErrMappingNotFound = errors.New("customer mapping not found")

	// ErrMappingExists is returned by stores when inserting a customer
	// mapping violates the uniqueness constraint on the user identifier
	ErrMappingExists = errors.New("customer mapping already exists")

	// ErrInvalidWebhookSignature is returned when webhook signature
	// validation fails
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrInvalidWebhookPayload is returned when a webhook payload cannot be
	// parsed into its narrow schema
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
)
