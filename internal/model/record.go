package model

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// PasswordRecord is one entry in an owner's ordered sequence. Position is the
// contract-level index; ID is a server-assigned handle that stays valid across
// the swap-delete reordering.
type PasswordRecord struct {
	ID        uuid.UUID
	Owner     common.Address
	Position  int
	Website   string
	UserName  string
	Payload   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStore defines persistence operations for password records.
// Sequences are dense: positions run 0..count-1 with no holes.
type RecordStore interface {
	Append(ctx context.Context, record PasswordRecord) (PasswordRecord, error)
	GetByOwner(ctx context.Context, owner common.Address) ([]PasswordRecord, error)
	Count(ctx context.Context, owner common.Address) (int, error)
	// UpdateAt overwrites website, username and payload in place.
	UpdateAt(ctx context.Context, owner common.Address, position int, website, userName, payload string) error
	// SwapDelete removes the record at position by moving the last record of
	// the sequence into its slot and shrinking the sequence by one.
	SwapDelete(ctx context.Context, owner common.Address, position int) error
}
