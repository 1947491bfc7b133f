package model

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ShareGrant is a directed reference from sender to recipient pointing at an
// off-chain encrypted payload. A single grant backs both the sender's "sent"
// view and the recipient's "received" view.
type ShareGrant struct {
	ID        uuid.UUID
	Sender    common.Address
	Recipient common.Address
	Name      string
	DataHash  string
	SharedAt  time.Time
}

// ShareStore defines persistence operations for share grants.
// All enumerations preserve insertion order.
type ShareStore interface {
	Create(ctx context.Context, grant ShareGrant) (ShareGrant, error)
	GetReceived(ctx context.Context, recipient, sender common.Address) ([]ShareGrant, error)
	GetAllReceived(ctx context.Context, recipient common.Address) ([]ShareGrant, error)
	GetAllSent(ctx context.Context, sender common.Address) ([]ShareGrant, error)
	// DeleteMatch removes the oldest grant matching the full triple and
	// returns ErrNotFound when nothing matches.
	DeleteMatch(ctx context.Context, sender, recipient common.Address, name, dataHash string) error
}
