package model

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ChallengeSessionDuration is the TTL for pending wallet challenges.
const ChallengeSessionDuration = 10 * time.Minute

// ChallengeSession is a pending sign-in challenge: the wallet must sign the
// nonce before ExpiresAt, and a session is consumed by its first use.
type ChallengeSession struct {
	SessionID string
	Address   common.Address
	Nonce     []byte
	ExpiresAt time.Time
	Consumed  bool
}

// SessionStore persists pending wallet challenges.
type SessionStore interface {
	Create(ctx context.Context, session ChallengeSession) error
	GetBySessionID(ctx context.Context, sessionID string) (ChallengeSession, error)
	Consume(ctx context.Context, sessionID string) error
}
