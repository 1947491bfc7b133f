package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

type SessionRepository struct {
	db Querier
}

func NewSessionRepository(db Querier) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session model.ChallengeSession) error {
	query := `INSERT INTO challenge_sessions (session_id, address, nonce, expires_at, consumed)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		session.SessionID, session.Address.Bytes(), session.Nonce,
		session.ExpiresAt, session.Consumed,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (model.ChallengeSession, error) {
	query := `SELECT session_id, address, nonce, expires_at, consumed
			  FROM challenge_sessions WHERE session_id = $1`

	var (
		session model.ChallengeSession
		address []byte
	)
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.SessionID, &address, &session.Nonce,
		&session.ExpiresAt, &session.Consumed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ChallengeSession{}, model.ErrNotFound
		}
		return model.ChallengeSession{}, fmt.Errorf("failed to get challenge session: %w", err)
	}
	session.Address = common.BytesToAddress(address)

	return session, nil
}

// Consume flips the consumed flag in one statement so that of two racing
// logins presenting the same session exactly one wins. Zero rows means the
// session is unknown or already consumed.
func (r *SessionRepository) Consume(ctx context.Context, sessionID string) error {
	query := `UPDATE challenge_sessions SET consumed = TRUE
			  WHERE session_id = $1 AND consumed = FALSE`

	cmd, err := r.db.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to consume challenge session: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
