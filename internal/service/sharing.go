package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/dcriggs/eth-password-manager/internal/logger"
	"github.com/dcriggs/eth-password-manager/internal/model"
)

// Sharing is the directed grant ledger between registered accounts. A grant
// is one row serving both the sender's "sent" view and the recipient's
// "received" view, so share and revoke touch both views atomically by
// construction.
type Sharing struct {
	ledger model.Ledger
	logger *logger.Logger
}

func NewSharing(ledger model.Ledger, logger *logger.Logger) *Sharing {
	return &Sharing{
		ledger: ledger,
		logger: logger,
	}
}

// SharePassword grants the recipient a named reference to off-chain encrypted
// data. Both parties must be registered; the recipient failing registration
// is surfaced as the distinct ErrRecipientNotRegistered kind.
func (s *Sharing) SharePassword(ctx context.Context, caller, recipient common.Address, name, dataHash string) (model.ShareGrant, error) {
	var grant model.ShareGrant

	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		if _, err := tx.Accounts().GetByAddress(ctx, caller); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrNotRegistered
			}
			return fmt.Errorf("failed to get sender account: %w", err)
		}
		if _, err := tx.Accounts().GetByAddress(ctx, recipient); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrRecipientNotRegistered
			}
			return fmt.Errorf("failed to get recipient account: %w", err)
		}

		var err error
		grant, err = tx.Shares().Create(ctx, model.ShareGrant{
			ID:        uuid.New(),
			Sender:    caller,
			Recipient: recipient,
			Name:      name,
			DataHash:  dataHash,
			SharedAt:  time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to create grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.ShareGrant{}, err
	}

	s.logger.Info("Sharing: password shared",
		"sender", caller.Hex(),
		"recipient", recipient.Hex(),
		"name", name)

	return grant, nil
}

// GetSharedPasswordsReceived returns grants the caller received from the
// given sender, in insertion order.
func (s *Sharing) GetSharedPasswordsReceived(ctx context.Context, caller, sender common.Address) ([]model.ShareGrant, error) {
	var grants []model.ShareGrant
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		var err error
		grants, err = tx.Shares().GetReceived(ctx, caller, sender)
		if err != nil {
			return fmt.Errorf("failed to get received grants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// GetAllSharedPasswordsReceived returns every grant the caller received,
// across all senders, each entry carrying the counterparty address.
func (s *Sharing) GetAllSharedPasswordsReceived(ctx context.Context, caller common.Address) ([]model.ShareGrant, error) {
	var grants []model.ShareGrant
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		var err error
		grants, err = tx.Shares().GetAllReceived(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get received grants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// GetAllSharedPasswordsSent returns every grant the caller sent, across all
// recipients.
func (s *Sharing) GetAllSharedPasswordsSent(ctx context.Context, caller common.Address) ([]model.ShareGrant, error) {
	var grants []model.ShareGrant
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		var err error
		grants, err = tx.Shares().GetAllSent(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get sent grants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// RevokeSharedPassword removes the oldest grant matching (caller, recipient,
// name, dataHash) from both views. A revoke with no matching grant fails
// loudly with ErrGrantNotFound.
func (s *Sharing) RevokeSharedPassword(ctx context.Context, caller, recipient common.Address, name, dataHash string) error {
	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		if _, err := tx.Accounts().GetByAddress(ctx, caller); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrNotRegistered
			}
			return fmt.Errorf("failed to get sender account: %w", err)
		}

		err := tx.Shares().DeleteMatch(ctx, caller, recipient, name, dataHash)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrGrantNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to delete grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Sharing: password revoked",
		"sender", caller.Hex(),
		"recipient", recipient.Hex(),
		"name", name)

	return nil
}
