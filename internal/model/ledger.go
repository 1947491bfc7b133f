package model

import "context"

// StateTx is one consistent view over the ledger state. Stores obtained from
// the same StateTx observe each other's writes.
type StateTx interface {
	Accounts() AccountStore
	Records() RecordStore
	Shares() ShareStore
}

// Ledger is the operation boundary of the state machine. Write runs fn inside
// a single transaction: if fn returns an error every mutation it performed is
// discarded, otherwise all of them commit together. Writes are serialized;
// Read observes the latest committed state.
type Ledger interface {
	Write(ctx context.Context, fn func(tx StateTx) error) error
	Read(ctx context.Context, fn func(tx StateTx) error) error
}
