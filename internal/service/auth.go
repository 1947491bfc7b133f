package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/dcriggs/eth-password-manager/internal/logger"
	"github.com/dcriggs/eth-password-manager/internal/model"
)

// Auth authenticates wallets against the RPC surface. A caller proves control
// of an address by signing a server-issued nonce (EIP-191 personal message)
// and receives access/refresh tokens in exchange. Registration on the ledger
// is not required to sign in; a fresh wallet needs a token before it can call
// registerUser in the first place.
type Auth struct {
	sessionStore model.SessionStore
	tokenService *TokenService
	logger       *logger.Logger
}

func NewAuth(sessionStore model.SessionStore, tokenService *TokenService, logger *logger.Logger) *Auth {
	return &Auth{
		sessionStore: sessionStore,
		tokenService: tokenService,
		logger:       logger,
	}
}

// ChallengeResult carries the message the wallet must sign.
type ChallengeResult struct {
	SessionID string
	Message   string
}

// Challenge opens a single-use, time-limited sign-in session for the address.
func (a *Auth) Challenge(ctx context.Context, address common.Address) (ChallengeResult, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	session := model.ChallengeSession{
		SessionID: uuid.NewString(),
		Address:   address,
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(model.ChallengeSessionDuration),
	}
	if err := a.sessionStore.Create(ctx, session); err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to create challenge session: %w", err)
	}

	a.logger.Debug("Auth: challenge issued",
		"address", address.Hex(),
		"session_id", session.SessionID)

	return ChallengeResult{
		SessionID: session.SessionID,
		Message:   signInMessage(address, session.SessionID, nonce),
	}, nil
}

// Login verifies the wallet's signature over the challenge message, consumes
// the session and issues an access/refresh token pair. Any verification
// failure reads as ErrAuthenticationFailed; the session stays unconsumed only
// when it was never found.
func (a *Auth) Login(ctx context.Context, sessionID string, signature []byte) (accessToken, refreshToken string, err error) {
	session, err := a.sessionStore.GetBySessionID(ctx, sessionID)
	if errors.Is(err, model.ErrNotFound) {
		return "", "", model.ErrAuthenticationFailed
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to get challenge session: %w", err)
	}

	if session.Consumed || time.Now().After(session.ExpiresAt) {
		return "", "", model.ErrAuthenticationFailed
	}

	recovered, err := recoverSigner(signInMessage(session.Address, session.SessionID, session.Nonce), signature)
	if err != nil || recovered != session.Address {
		a.logger.Info("Auth: signature verification failed",
			"address", session.Address.Hex(),
			"session_id", sessionID)
		return "", "", model.ErrAuthenticationFailed
	}

	// Consume is the atomic single-use gate: losing the race to another
	// login with the same session reads as an authentication failure.
	if err := a.sessionStore.Consume(ctx, sessionID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", "", model.ErrAuthenticationFailed
		}
		return "", "", fmt.Errorf("failed to consume challenge session: %w", err)
	}

	accessToken, refreshToken, err = a.tokenService.Issue(ctx, session.Address)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth: wallet signed in", "address", session.Address.Hex())
	return accessToken, refreshToken, nil
}

// Refresh rotates a refresh token into a new access/refresh pair.
func (a *Auth) Refresh(ctx context.Context, presentedRefresh string) (string, string, error) {
	return a.tokenService.Refresh(ctx, presentedRefresh)
}

// Logout revokes the presented refresh token.
func (a *Auth) Logout(ctx context.Context, presentedRefresh string) error {
	return a.tokenService.RevokeByToken(ctx, presentedRefresh)
}

func signInMessage(address common.Address, sessionID string, nonce []byte) string {
	return fmt.Sprintf("eth-password-manager sign-in\nAddress: %s\nSession: %s\nNonce: %s",
		address.Hex(), sessionID, hexutil.Encode(nonce))
}

// recoverSigner recovers the address that personal-signed message. Accepts
// both 0/1 and 27/28 recovery identifiers.
func recoverSigner(message string, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	pub, err := crypto.SigToPub(crypto.Keccak256([]byte(prefixed)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}
