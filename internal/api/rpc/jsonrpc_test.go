package rpc

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcriggs/eth-password-manager/internal/model"
	"github.com/dcriggs/eth-password-manager/internal/repository/memory"
	"github.com/dcriggs/eth-password-manager/internal/service"
	"github.com/dcriggs/eth-password-manager/internal/testutil"
	"github.com/dcriggs/eth-password-manager/internal/token"
)

// blobStub is an in-process model.BlobStorage for transport tests.
type blobStub struct {
	objects map[string][]byte
}

func newBlobStub() *blobStub {
	return &blobStub{objects: make(map[string][]byte)}
}

func (s *blobStub) Put(_ context.Context, data []byte) (string, error) {
	hash := hexutil.Encode(crypto.Keccak256(data))
	s.objects[hash] = append([]byte(nil), data...)
	return hash, nil
}

func (s *blobStub) Get(_ context.Context, hash string) ([]byte, error) {
	data, ok := s.objects[hash]
	if !ok {
		return nil, model.ErrNotFound
	}
	return data, nil
}

func (s *blobStub) Exists(_ context.Context, hash string) (bool, error) {
	_, ok := s.objects[hash]
	return ok, nil
}

func (s *blobStub) Remove(_ context.Context, hash string) error {
	delete(s.objects, hash)
	return nil
}

type testEnv struct {
	server *httptest.Server
	auth   *service.Auth
	tokens *service.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testutil.MakeNoopLogger()
	ledger := memory.NewLedger()
	auth := &service.CapabilityAuth{}

	tokenService := service.NewTokenService(token.NewJWT("test-secret"), memory.NewRefreshTokenStore(), logger)
	authService := service.NewAuth(memory.NewSessionStore(), tokenService, logger)

	handler := NewHandler(
		service.NewRegistry(ledger, auth, logger),
		service.NewVault(ledger, auth, logger),
		service.NewSharing(ledger, logger),
		authService,
		tokenService,
		newBlobStub(),
		NewContextManager(),
		logger,
	)

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &testEnv{server: server, auth: authService, tokens: tokenService}
}

func (e *testEnv) call(t *testing.T, bearer, method string, params any) rpcResponse {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func (e *testEnv) result(t *testing.T, resp rpcResponse, out any) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected rpc error: %+v", resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// signIn runs the wallet challenge flow and returns a bearer token for a fresh
// key pair.
func (e *testEnv) signIn(t *testing.T) (string, common.Address, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)

	challenge, err := e.auth.Challenge(context.Background(), address)
	require.NoError(t, err)

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(challenge.Message), challenge.Message)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)

	var pair tokenPairResult
	resp := e.call(t, "", "auth_login", map[string]any{
		"sessionId": challenge.SessionID,
		"signature": hexutil.Encode(sig),
	})
	e.result(t, resp, &pair)
	return pair.AccessToken, address, key
}

func (e *testEnv) register(t *testing.T, bearer string) {
	t.Helper()
	resp := e.call(t, bearer, "pm_registerUser", map[string]any{
		"publicKey":  hexutil.Encode([]byte("public-key")),
		"paymentWei": "0x2386f26fc10000",
	})
	require.Nil(t, resp.Error, "register failed: %+v", resp.Error)
}

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	var status map[string]string
	resp := env.call(t, "", "health_check", nil)
	env.result(t, resp, &status)
	assert.Equal(t, "ok", status["status"])
}

func TestHandler_MethodNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.call(t, "", "pm_isUserRegistered", map[string]any{"address": common.Address{}.Hex()})
	require.Nil(t, resp.Error)

	resp = env.call(t, "", "auth_noSuchMethod", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodMissing, resp.Error.Code)
}

func TestHandler_ParseError(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.server.Client().Post(env.server.URL+"/rpc", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotNil(t, decoded.Error)
	assert.Equal(t, -32700, decoded.Error.Code)
}

func TestHandler_RejectsBatchedDocuments(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"health_check"}{"jsonrpc":"2.0","id":2,"method":"health_check"}`)
	resp, err := env.server.Client().Post(env.server.URL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotNil(t, decoded.Error)
	assert.Equal(t, -32600, decoded.Error.Code)
}

func TestHandler_MissingBearerToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.call(t, "", "pm_storePassword", map[string]any{"website": "example.com"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestHandler_InvalidBearerToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.call(t, "garbage-token", "pm_storePassword", map[string]any{"website": "example.com"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestHandler_RegisterFlow(t *testing.T) {
	env := newTestEnv(t)
	bearer, address, _ := env.signIn(t)

	env.register(t, bearer)

	var registered bool
	resp := env.call(t, "", "pm_isUserRegistered", map[string]any{"address": address.Hex()})
	env.result(t, resp, &registered)
	assert.True(t, registered)

	var publicKey hexutil.Bytes
	resp = env.call(t, "", "pm_getUserPublicKey", map[string]any{"address": address.Hex()})
	env.result(t, resp, &publicKey)
	assert.Equal(t, []byte("public-key"), []byte(publicKey))
}

func TestHandler_RegisterTwice_DomainError(t *testing.T) {
	env := newTestEnv(t)
	bearer, _, _ := env.signIn(t)
	env.register(t, bearer)

	resp := env.call(t, bearer, "pm_registerUser", map[string]any{
		"publicKey":  hexutil.Encode([]byte("public-key")),
		"paymentWei": "0x2386f26fc10000",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeDomain, resp.Error.Code)
	assert.Equal(t, "user already registered", resp.Error.Message)
}

func TestHandler_RegisterUnderpaid(t *testing.T) {
	env := newTestEnv(t)
	bearer, _, _ := env.signIn(t)

	resp := env.call(t, bearer, "pm_registerUser", map[string]any{
		"publicKey":  hexutil.Encode([]byte("public-key")),
		"paymentWei": "0x1",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "registration fee below minimum", resp.Error.Message)
}

func TestHandler_VaultFlow(t *testing.T) {
	env := newTestEnv(t)
	bearer, _, _ := env.signIn(t)
	env.register(t, bearer)

	var stored recordResult
	resp := env.call(t, bearer, "pm_storePassword", map[string]any{
		"website":  "example.com",
		"userName": "alice",
		"payload":  "ciphertext",
	})
	env.result(t, resp, &stored)
	assert.Equal(t, 0, stored.Index)

	var records []recordResult
	resp = env.call(t, bearer, "pm_getPasswords", nil)
	env.result(t, resp, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "example.com", records[0].Website)

	var ok bool
	resp = env.call(t, bearer, "pm_updatePasswordDetails", map[string]any{
		"index":    0,
		"website":  "example.com",
		"userName": "alice-renamed",
		"payload":  "new-ciphertext",
	})
	env.result(t, resp, &ok)
	assert.True(t, ok)

	resp = env.call(t, bearer, "pm_deletePassword", map[string]any{"index": 0})
	env.result(t, resp, &ok)
	assert.True(t, ok)

	resp = env.call(t, bearer, "pm_getPasswords", nil)
	env.result(t, resp, &records)
	assert.Empty(t, records)
}

func TestHandler_VaultIndexOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	bearer, _, _ := env.signIn(t)
	env.register(t, bearer)

	resp := env.call(t, bearer, "pm_deletePassword", map[string]any{"index": 0})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "password index out of range", resp.Error.Message)
}

func TestHandler_SharingFlow(t *testing.T) {
	env := newTestEnv(t)
	senderBearer, _, _ := env.signIn(t)
	recipientBearer, recipientAddr, _ := env.signIn(t)
	env.register(t, senderBearer)
	env.register(t, recipientBearer)

	var grant grantResult
	resp := env.call(t, senderBearer, "pm_sharePassword", map[string]any{
		"recipient": recipientAddr.Hex(),
		"name":      "example.com",
		"dataHash":  "hash1",
	})
	env.result(t, resp, &grant)
	assert.Equal(t, recipientAddr, grant.Recipient)

	var received []grantResult
	resp = env.call(t, recipientBearer, "pm_getAllSharedPasswordsReceived", nil)
	env.result(t, resp, &received)
	require.Len(t, received, 1)
	assert.Equal(t, "example.com", received[0].Name)

	var sent []grantResult
	resp = env.call(t, senderBearer, "pm_getAllSharedPasswordsSent", nil)
	env.result(t, resp, &sent)
	require.Len(t, sent, 1)

	var ok bool
	resp = env.call(t, senderBearer, "pm_revokeSharedPassword", map[string]any{
		"recipient": recipientAddr.Hex(),
		"name":      "example.com",
		"dataHash":  "hash1",
	})
	env.result(t, resp, &ok)
	assert.True(t, ok)

	resp = env.call(t, recipientBearer, "pm_getAllSharedPasswordsReceived", nil)
	env.result(t, resp, &received)
	assert.Empty(t, received)
}

func TestHandler_ShareToUnregisteredRecipient(t *testing.T) {
	env := newTestEnv(t)
	bearer, _, _ := env.signIn(t)
	env.register(t, bearer)

	resp := env.call(t, bearer, "pm_sharePassword", map[string]any{
		"recipient": common.HexToAddress("0x9999999999999999999999999999999999999999").Hex(),
		"name":      "example.com",
		"dataHash":  "hash1",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "recipient is not registered", resp.Error.Message)
}

func TestHandler_BlobFlow(t *testing.T) {
	env := newTestEnv(t)
	bearer, _, _ := env.signIn(t)

	payload := []byte("encrypted payload")
	var put blobResult
	resp := env.call(t, bearer, "blob_put", map[string]any{"data": hexutil.Encode(payload)})
	env.result(t, resp, &put)
	assert.Equal(t, hexutil.Encode(crypto.Keccak256(payload)), put.Hash)

	var got blobResult
	resp = env.call(t, "", "blob_get", map[string]any{"hash": put.Hash})
	env.result(t, resp, &got)
	assert.Equal(t, payload, []byte(got.Data))
}

func TestHandler_AuthChallenge(t *testing.T) {
	env := newTestEnv(t)
	address := common.HexToAddress("0x1111111111111111111111111111111111111111")

	var challenge challengeResult
	resp := env.call(t, "", "auth_challenge", map[string]any{"address": address.Hex()})
	env.result(t, resp, &challenge)
	assert.NotEmpty(t, challenge.SessionID)
	assert.Contains(t, challenge.Message, address.Hex())
}

func TestHandler_AuthLoginBadSignature(t *testing.T) {
	env := newTestEnv(t)
	address := common.HexToAddress("0x1111111111111111111111111111111111111111")

	challenge, err := env.auth.Challenge(context.Background(), address)
	require.NoError(t, err)

	resp := env.call(t, "", "auth_login", map[string]any{
		"sessionId": challenge.SessionID,
		"signature": hexutil.Encode(make([]byte, 65)),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "authentication failed", resp.Error.Message)
}

func TestHandler_AuthRefreshOverRPC(t *testing.T) {
	env := newTestEnv(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)

	challenge, err := env.auth.Challenge(context.Background(), address)
	require.NoError(t, err)
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(challenge.Message), challenge.Message)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)

	var pair tokenPairResult
	resp := env.call(t, "", "auth_login", map[string]any{
		"sessionId": challenge.SessionID,
		"signature": hexutil.Encode(sig),
	})
	env.result(t, resp, &pair)

	var rotated tokenPairResult
	resp = env.call(t, "", "auth_refresh", map[string]any{"refreshToken": pair.RefreshToken})
	env.result(t, resp, &rotated)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	var ok bool
	resp = env.call(t, "", "auth_logout", map[string]any{"refreshToken": rotated.RefreshToken})
	env.result(t, resp, &ok)
	assert.True(t, ok)
}
