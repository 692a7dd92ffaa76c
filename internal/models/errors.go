package models

import (
	"errors"
	"strings"
)

// Error kinds. Every domain error unwraps to exactly one of these.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrAuthorization     = errors.New("authorization failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("Insufficient funds")
	ErrInsufficientStock = errors.New("Insufficient stock")
)

// DomainError is an error with a fixed client-facing detail.
//
// The detail is safe to return to API clients as is, and errors.Is(err, kind) reports the kind.
type DomainError struct {
	kind   error
	detail string
}

func newDomainError(kind error, detail string) *DomainError {
	return &DomainError{kind: kind, detail: detail}
}

func (e *DomainError) Error() string { return e.detail }

func (e *DomainError) Unwrap() error { return e.kind }

var (
	ErrInvalidCredentials = newDomainError(ErrAuthentication, "Incorrect username or password")
	ErrInvalidToken       = newDomainError(ErrAuthentication, "Could not validate credentials")
	ErrInactiveUser       = newDomainError(ErrAuthentication, "Inactive user")

	ErrNotBuyer         = newDomainError(ErrAuthorization, "User is not a buyer")
	ErrNotSeller        = newDomainError(ErrAuthorization, "User is not a seller")
	ErrNotBuyerOrSeller = newDomainError(ErrAuthorization, "User is not a buyer or seller")
	ErrForbiddenUser    = newDomainError(ErrAuthorization, "Operation is only allowed on your own account")
	ErrProductRetrieval = newDomainError(ErrAuthorization, "Product retrieval")
	ErrActiveSession    = newDomainError(ErrConflict, "Cannot log into a user with an active session")
	ErrUsernameTaken    = newDomainError(ErrConflict, "Username already exists")
	ErrUserNotFound     = newDomainError(ErrNotFound, "User not found")
	ErrProductNotFound  = newDomainError(ErrNotFound, "Product not found")
	ErrSessionNotFound  = newDomainError(ErrNotFound, "Session not found")
)

// ValidationError collects every problem found in a client request.
type ValidationError struct {
	Errors []string
}

// NewValidationError creates a validation error from one or more messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// Add appends a message to the list
func (e *ValidationError) Add(message string) {
	e.Errors = append(e.Errors, message)
}

// OrNil returns nil when no problems were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}
