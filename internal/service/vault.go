package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/dcriggs/eth-password-manager/internal/logger"
	"github.com/dcriggs/eth-password-manager/internal/model"
)

// Vault is the per-account ordered password sequence. Every mutating call is
// gated by the Authenticator inside its own write transaction.
type Vault struct {
	ledger model.Ledger
	auth   Authenticator
	logger *logger.Logger
}

func NewVault(ledger model.Ledger, auth Authenticator, logger *logger.Logger) *Vault {
	return &Vault{
		ledger: ledger,
		auth:   auth,
		logger: logger,
	}
}

// RecordParams contains the caller-supplied fields of a password record.
type RecordParams struct {
	Website  string
	UserName string
	Payload  string
	AuthHash common.Hash
}

// StorePassword appends a record to the end of the caller's sequence.
func (s *Vault) StorePassword(ctx context.Context, caller common.Address, params RecordParams) (model.PasswordRecord, error) {
	var record model.PasswordRecord

	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		if err := s.auth.Authorize(ctx, tx, caller, params.AuthHash); err != nil {
			return err
		}

		count, err := tx.Records().Count(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to count records: %w", err)
		}

		record, err = tx.Records().Append(ctx, model.PasswordRecord{
			ID:        uuid.New(),
			Owner:     caller,
			Position:  count,
			Website:   params.Website,
			UserName:  params.UserName,
			Payload:   params.Payload,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.PasswordRecord{}, err
	}

	s.logger.Debug("Vault: password stored",
		"owner", caller.Hex(),
		"position", record.Position)

	return record, nil
}

// GetPasswords returns the caller's whole sequence in position order. The
// sequence is never paginated or partial.
func (s *Vault) GetPasswords(ctx context.Context, caller common.Address, authHash common.Hash) ([]model.PasswordRecord, error) {
	var records []model.PasswordRecord
	err := s.ledger.Read(ctx, func(tx model.StateTx) error {
		if err := s.auth.Authorize(ctx, tx, caller, authHash); err != nil {
			return err
		}
		var err error
		records, err = tx.Records().GetByOwner(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdatePasswordDetails overwrites the record at index in place. The sequence
// length never changes.
func (s *Vault) UpdatePasswordDetails(ctx context.Context, caller common.Address, index int, params RecordParams) error {
	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		if err := s.auth.Authorize(ctx, tx, caller, params.AuthHash); err != nil {
			return err
		}
		if err := s.checkIndex(ctx, tx, caller, index); err != nil {
			return err
		}
		if err := tx.Records().UpdateAt(ctx, caller, index, params.Website, params.UserName, params.Payload); err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Vault: password updated", "owner", caller.Hex(), "index", index)
	return nil
}

// DeletePassword removes the record at index with the swap-with-last-and-pop
// strategy: the last record moves into the vacated slot and the sequence
// shrinks by one. Relative order of the remaining records is not preserved.
func (s *Vault) DeletePassword(ctx context.Context, caller common.Address, index int, authHash common.Hash) error {
	err := s.ledger.Write(ctx, func(tx model.StateTx) error {
		if err := s.auth.Authorize(ctx, tx, caller, authHash); err != nil {
			return err
		}
		if err := s.checkIndex(ctx, tx, caller, index); err != nil {
			return err
		}
		if err := tx.Records().SwapDelete(ctx, caller, index); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Vault: password deleted", "owner", caller.Hex(), "index", index)
	return nil
}

func (s *Vault) checkIndex(ctx context.Context, tx model.StateTx, owner common.Address, index int) error {
	count, err := tx.Records().Count(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if index < 0 || index >= count {
		return model.ErrIndexOutOfRange
	}
	return nil
}
