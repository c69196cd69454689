package cashledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound         = errors.New("cashledger: not found")
	ErrAlreadyExists    = errors.New("cashledger: already exists")
	ErrInvalidInput     = errors.New("cashledger: invalid input")
	ErrCrossStoreAccess = errors.New("cashledger: entity belongs to another store")

	// Transaction errors
	ErrTransactionNotFound = notFoundError("transaction")
	ErrInvalidAmount       = errors.New("cashledger: amount must be positive and within range")
	ErrInvalidCurrency     = errors.New("cashledger: unsupported currency")
	ErrAlreadySettled      = errors.New("cashledger: transaction already settled")
	ErrHasPayments         = errors.New("cashledger: transaction has payments")
	ErrTransactionCanceled = errors.New("cashledger: transaction is canceled")

	// Payment errors
	ErrPaymentNotFound     = notFoundError("payment")
	ErrOverpaymentRejected = errors.New("cashledger: payment exceeds outstanding balance")
	ErrInvalidReversal     = errors.New("cashledger: invalid reversal")
	ErrKindMismatch        = errors.New("cashledger: payment kind does not match transaction kind")

	// Recurrence errors
	ErrRecurrenceNotFound  = notFoundError("recurrence")
	ErrRecurrenceNotActive = errors.New("cashledger: recurrence is not active")

	// Party errors
	ErrPartyNotFound = notFoundError("party")
	ErrPartyArchived = errors.New("cashledger: party is archived")

	// Store errors
	ErrStoreClosed     = errors.New("cashledger: store is closed")
	ErrMigrationFailed = errors.New("cashledger: migration failed")
)

// notFoundError is an entity-specific not-found error that also matches
// ErrNotFound.
type notFoundError string

func (e notFoundError) Error() string { return "cashledger: " + string(e) + " not found" }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cashledger: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if the caller supplied bad input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidCurrency) ||
		errors.Is(err, ErrKindMismatch)
}

// IsConflict returns true if the request is well-formed but the current
// state of the entity does not allow it.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrOverpaymentRejected) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrHasPayments) ||
		errors.Is(err, ErrTransactionCanceled) ||
		errors.Is(err, ErrRecurrenceNotActive) ||
		errors.Is(err, ErrInvalidReversal) ||
		errors.Is(err, ErrPartyArchived)
}

// IsForbidden returns true for tenant-scope violations.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrCrossStoreAccess)
}
