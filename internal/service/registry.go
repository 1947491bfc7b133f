package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dcriggs/eth-password-manager/internal/logger"
	"github.com/dcriggs/eth-password-manager/internal/model"
)

// Registry tracks which addresses hold an account, their declared public
// keys and, under the hash scheme, their registration auth hash.
type Registry struct {
	ledger model.Ledger
	auth   Authenticator
	logger *logger.Logger
}

func NewRegistry(ledger model.Ledger, auth Authenticator, logger *logger.Logger) *Registry {
	return &Registry{
		ledger: ledger,
		auth:   auth,
		logger: logger,
	}
}

// RegisterParams contains parameters to register a caller.
type RegisterParams struct {
	Caller    common.Address
	PublicKey []byte
	AuthHash  common.Hash
	Payment   *big.Int
}

// RegisterUser creates the caller's account. It fails with
// ErrAlreadyRegistered on a second attempt and with ErrInsufficientPayment
// when the attached payment is below model.MinRegistrationFee. The payment is
// recorded on the account and retained.
func (s *Registry) RegisterUser(ctx context.Context, params RegisterParams) (model.Account, error) {
	var account model.Account

	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		_, err := tx.Accounts().GetByAddress(ctx, params.Caller)
		if err == nil {
			return model.ErrAlreadyRegistered
		}
		if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to get account: %w", err)
		}

		if params.Payment == nil || params.Payment.Cmp(model.MinRegistrationFee) < 0 {
			return model.ErrInsufficientPayment
		}

		account, err = tx.Accounts().Create(ctx, model.Account{
			Address:      params.Caller,
			PublicKey:    params.PublicKey,
			AuthHash:     params.AuthHash,
			FeePaid:      new(big.Int).Set(params.Payment),
			RegisteredAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Account{}, err
	}

	s.logger.Info("Registry: user registered",
		"address", account.Address.Hex(),
		"fee_wei", account.FeePaid.String())

	return account, nil
}

// IsUserRegistered reports whether the address holds an account. It is a pure
// read and never fails on an unknown address.
func (s *Registry) IsUserRegistered(ctx context.Context, address common.Address) (bool, error) {
	var registered bool
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		_, err := tx.Accounts().GetByAddress(ctx, address)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		registered = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return registered, nil
}

// GetUserPublicKey returns the stored public key, or an empty slice for an
// unregistered address. Callers who need the distinction check
// IsUserRegistered first.
func (s *Registry) GetUserPublicKey(ctx context.Context, address common.Address) ([]byte, error) {
	var publicKey []byte
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		account, err := tx.Accounts().GetByAddress(ctx, address)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		publicKey = account.PublicKey
		return nil
	})
	if err != nil {
		return nil, err
	}
	return publicKey, nil
}

// AuthenticateUser is the read-only probe front ends use before submitting a
// mutating call. It never fails; any authorization error reads as false.
func (s *Registry) AuthenticateUser(ctx context.Context, address common.Address, authHash common.Hash) (bool, error) {
	var ok bool
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		if err := s.auth.Authorize(ctx, tx, address, authHash); err != nil {
			if errors.Is(err, model.ErrNotRegistered) || errors.Is(err, model.ErrAuthenticationFailed) {
				return nil
			}
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// UpdateRegistrationPassword replaces the caller's auth hash after
// re-authenticating with the old one. Only meaningful under the hash scheme.
func (s *Registry) UpdateRegistrationPassword(ctx context.Context, caller common.Address, oldHash, newHash common.Hash) error {
	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		account, err := tx.Accounts().GetByAddress(ctx, caller)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account.AuthHash != oldHash {
			return model.ErrAuthenticationFailed
		}
		if err := tx.Accounts().UpdateAuthHash(ctx, caller, newHash); err != nil {
			return fmt.Errorf("failed to update auth hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Registry: registration password updated", "address", caller.Hex())
	return nil
}
