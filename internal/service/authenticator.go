package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

// Scheme selects the write-gating policy for vault operations.
type Scheme string

const (
	// SchemeCapability authorizes any registered caller; no per-call secret.
	SchemeCapability Scheme = "capability"
	// SchemeHash additionally matches a per-call hash against the account's
	// stored auth hash. This is the legacy policy.
	SchemeHash Scheme = "hash"
)

// Authenticator decides whether a caller may mutate its own vault state.
// It runs inside the transaction of the operation it gates.
type Authenticator interface {
	Authorize(ctx context.Context, tx model.StateTx, caller common.Address, authHash common.Hash) error
}

// NewAuthenticator returns the Authenticator for the given scheme, defaulting
// to the capability policy for unknown values.
func NewAuthenticator(scheme Scheme) Authenticator {
	if scheme == SchemeHash {
		return &HashAuth{}
	}
	return &CapabilityAuth{}
}

// CapabilityAuth treats registration itself as the capability.
type CapabilityAuth struct{}

func (a *CapabilityAuth) Authorize(ctx context.Context, tx model.StateTx, caller common.Address, _ common.Hash) error {
	_, err := tx.Accounts().GetByAddress(ctx, caller)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	return nil
}

// HashAuth requires the caller to present its registration auth hash on every
// gated call. Registration is checked before the hash comparison, so an
// unregistered caller fails with ErrNotRegistered, not ErrAuthenticationFailed.
type HashAuth struct{}

func (a *HashAuth) Authorize(ctx context.Context, tx model.StateTx, caller common.Address, authHash common.Hash) error {
	account, err := tx.Accounts().GetByAddress(ctx, caller)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if subtle.ConstantTimeCompare(account.AuthHash[:], authHash[:]) != 1 {
		return model.ErrAuthenticationFailed
	}
	return nil
}
