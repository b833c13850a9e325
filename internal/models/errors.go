package models

import "errors"

// Sentinel errors shared across services. The API layer maps these to HTTP
// statuses with errors.Is; the webhook path additionally treats ErrNotFound
// and ErrAlreadyProcessed as soft successes so the provider stops retrying.
var (
	ErrUnauthorized      = errors.New("caller not permitted for this transition")
	ErrInvalidTransition = errors.New("transition not legal from current state")
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyProcessed  = errors.New("event already processed")
	ErrValidation        = errors.New("validation failed")
	ErrSignatureInvalid  = errors.New("webhook signature invalid")
	ErrInsufficientFunds = errors.New("insufficient token balance")
)
