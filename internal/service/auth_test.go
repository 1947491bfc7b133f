package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcriggs/eth-password-manager/internal/model"
	"github.com/dcriggs/eth-password-manager/internal/repository/memory"
	"github.com/dcriggs/eth-password-manager/internal/testutil"
	"github.com/dcriggs/eth-password-manager/internal/token"
)

func newTestAuth(t *testing.T) (*Auth, *memory.SessionStore, *TokenService) {
	t.Helper()
	logger := testutil.MakeNoopLogger()
	sessions := memory.NewSessionStore()
	tokenService := NewTokenService(token.NewJWT("test-secret"), memory.NewRefreshTokenStore(), logger)
	return NewAuth(sessions, tokenService, logger), sessions, tokenService
}

func newTestWallet(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func signChallenge(t *testing.T, key *ecdsa.PrivateKey, message string) []byte {
	t.Helper()
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)
	return sig
}

func TestAuth_Challenge(t *testing.T) {
	ctx := context.Background()
	auth, sessions, _ := newTestAuth(t)
	_, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.SessionID)
	assert.Contains(t, challenge.Message, address.Hex())
	assert.Contains(t, challenge.Message, challenge.SessionID)

	session, err := sessions.GetBySessionID(ctx, challenge.SessionID)
	require.NoError(t, err)
	assert.Equal(t, address, session.Address)
	assert.False(t, session.Consumed)
	assert.Len(t, session.Nonce, 32)
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	auth, _, tokenService := newTestAuth(t)
	key, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)

	access, refresh, err := auth.Login(ctx, challenge.SessionID, signChallenge(t, key, challenge.Message))
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	caller, err := tokenService.GetCaller(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, address, caller)
}

func TestAuth_Login_LegacyRecoveryID(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth(t)
	key, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)

	// Browser wallets return V as 27/28 rather than 0/1.
	sig := signChallenge(t, key, challenge.Message)
	sig[crypto.RecoveryIDOffset] += 27

	_, _, err = auth.Login(ctx, challenge.SessionID, sig)
	require.NoError(t, err)
}

func TestAuth_Login_WrongKey(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth(t)
	_, address := newTestWallet(t)
	otherKey, _ := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, challenge.SessionID, signChallenge(t, otherKey, challenge.Message))
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestAuth_Login_UnknownSession(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	key, _ := newTestWallet(t)

	_, _, err := auth.Login(context.Background(), "no-such-session", signChallenge(t, key, "whatever"))
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestAuth_Login_SessionSingleUse(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth(t)
	key, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)
	sig := signChallenge(t, key, challenge.Message)

	_, _, err = auth.Login(ctx, challenge.SessionID, sig)
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, challenge.SessionID, sig)
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestAuth_Login_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	auth, sessions, _ := newTestAuth(t)
	key, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)

	session, err := sessions.GetBySessionID(ctx, challenge.SessionID)
	require.NoError(t, err)
	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, sessions.Create(ctx, session))

	_, _, err = auth.Login(ctx, challenge.SessionID, signChallenge(t, key, challenge.Message))
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestAuth_Login_MalformedSignature(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth(t)
	_, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, challenge.SessionID, []byte{1, 2, 3})
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestAuth_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	auth, _, tokenService := newTestAuth(t)
	key, address := newTestWallet(t)

	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)
	_, refresh, err := auth.Login(ctx, challenge.SessionID, signChallenge(t, key, challenge.Message))
	require.NoError(t, err)

	newAccess, newRefresh, err := auth.Refresh(ctx, refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, newRefresh)

	caller, err := tokenService.GetCaller(ctx, newAccess)
	require.NoError(t, err)
	assert.Equal(t, address, caller)

	// The rotated-out token is dead.
	_, _, err = auth.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)

	require.NoError(t, auth.Logout(ctx, newRefresh))
	_, _, err = auth.Refresh(ctx, newRefresh)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)
}
