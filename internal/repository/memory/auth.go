package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

var _ model.SessionStore = (*SessionStore)(nil)

// SessionStore keeps wallet challenge sessions in process.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.ChallengeSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]model.ChallengeSession)}
}

func (s *SessionStore) Create(_ context.Context, session model.ChallengeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *SessionStore) GetBySessionID(_ context.Context, sessionID string) (model.ChallengeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return model.ChallengeSession{}, model.ErrNotFound
	}
	return session, nil
}

// Consume marks the session used. An unknown or already-consumed session
// reads as ErrNotFound so racing callers cannot both win.
func (s *SessionStore) Consume(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.Consumed {
		return model.ErrNotFound
	}
	session.Consumed = true
	s.sessions[sessionID] = session
	return nil
}

var _ model.RefreshTokenStore = (*RefreshTokenStore)(nil)

// RefreshTokenStore keeps issued refresh tokens in process.
type RefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{tokens: make(map[string]model.RefreshToken)}
}

func (s *RefreshTokenStore) Create(_ context.Context, token model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.JTI] = token
	return nil
}

func (s *RefreshTokenStore) GetByJTI(_ context.Context, jti string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[jti]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return token, nil
}

func (s *RefreshTokenStore) RevokeByJTI(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[jti]
	if !ok {
		return model.ErrNotFound
	}
	if token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
		s.tokens[jti] = token
	}
	return nil
}

func (s *RefreshTokenStore) RevokeAllByAddress(_ context.Context, address common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for jti, token := range s.tokens {
		if token.Address == address && token.RevokedAt == nil {
			token.RevokedAt = &now
			s.tokens[jti] = token
		}
	}
	return nil
}
