package postgres

import (
	"context"
	"fmt"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

var _ model.Ledger = (*Ledger)(nil)

// Ledger implements the all-or-nothing operation boundary on top of database
// transactions: Write opens one transaction, runs the operation against it
// and commits only when the whole operation succeeded.
type Ledger struct {
	db *Connection
}

func NewLedger(db *Connection) *Ledger {
	return &Ledger{db: db}
}

// writeLockKey is the advisory lock serializing write transactions, the
// single-writer counterpart of the memory ledger's mutex. Without it two
// concurrent operations read the same snapshot: registration pre-checks pass
// twice and surface a key violation instead of ErrAlreadyRegistered, and
// concurrent swap-deletes renumber against a stale MAX(pos), leaving a hole
// in the position sequence.
const writeLockKey = int64(0x70617373_6d616e01)

func (l *Ledger) Write(ctx context.Context, fn func(tx model.StateTx) error) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Held until commit or rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, writeLockKey); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}

	if err := fn(&stateTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Ledger) Read(ctx context.Context, fn func(tx model.StateTx) error) error {
	return fn(&stateTx{q: l.db.Pool})
}

type stateTx struct {
	q Querier
}

func (t *stateTx) Accounts() model.AccountStore { return NewAccountRepository(t.q) }
func (t *stateTx) Records() model.RecordStore   { return NewRecordRepository(t.q) }
func (t *stateTx) Shares() model.ShareStore     { return NewShareRepository(t.q) }
