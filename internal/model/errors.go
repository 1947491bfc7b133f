package model

import "errors"

// Ledger failure kinds. Mutating operations abort with exactly one of these
// and leave no partial state behind; the RPC layer surfaces the text verbatim.
var (
	ErrAlreadyRegistered      = errors.New("user already registered")
	ErrNotRegistered          = errors.New("user is not registered")
	ErrRecipientNotRegistered = errors.New("recipient is not registered")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrIndexOutOfRange        = errors.New("password index out of range")
	ErrGrantNotFound          = errors.New("shared password not found")
	ErrInsufficientPayment    = errors.New("registration fee below minimum")
)

// ErrNotFound is the generic storage-level miss, translated by services
// into one of the kinds above.
var ErrNotFound = errors.New("not found")
