package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcriggs/eth-password-manager/internal/model"
	"github.com/dcriggs/eth-password-manager/internal/repository/memory"
	"github.com/dcriggs/eth-password-manager/internal/testutil"
)

var (
	addrAlice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrBob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	addrCarol = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestRegistry(t *testing.T) (*Registry, *memory.Ledger) {
	t.Helper()
	ledger := memory.NewLedger()
	return NewRegistry(ledger, &CapabilityAuth{}, testutil.MakeNoopLogger()), ledger
}

func registerTestUser(t *testing.T, registry *Registry, address common.Address) model.Account {
	t.Helper()
	account, err := registry.RegisterUser(context.Background(), RegisterParams{
		Caller:    address,
		PublicKey: []byte("pub-" + address.Hex()),
		Payment:   model.MinRegistrationFee,
	})
	require.NoError(t, err)
	return account
}

func TestRegistry_RegisterUser(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)

	account, err := registry.RegisterUser(ctx, RegisterParams{
		Caller:    addrAlice,
		PublicKey: []byte("alice-public-key"),
		Payment:   big.NewInt(0).Mul(big.NewInt(2), model.MinRegistrationFee),
	})
	require.NoError(t, err)
	assert.Equal(t, addrAlice, account.Address)
	assert.Equal(t, []byte("alice-public-key"), account.PublicKey)

	registered, err := registry.IsUserRegistered(ctx, addrAlice)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestRegistry_RegisterUser_Twice(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	registerTestUser(t, registry, addrAlice)

	_, err := registry.RegisterUser(ctx, RegisterParams{
		Caller:    addrAlice,
		PublicKey: []byte("other-key"),
		Payment:   model.MinRegistrationFee,
	})
	assert.ErrorIs(t, err, model.ErrAlreadyRegistered)
}

func TestRegistry_RegisterUser_InsufficientPayment(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)

	tooLow := new(big.Int).Sub(model.MinRegistrationFee, big.NewInt(1))
	_, err := registry.RegisterUser(ctx, RegisterParams{Caller: addrAlice, Payment: tooLow})
	assert.ErrorIs(t, err, model.ErrInsufficientPayment)

	_, err = registry.RegisterUser(ctx, RegisterParams{Caller: addrAlice})
	assert.ErrorIs(t, err, model.ErrInsufficientPayment)

	// A failed registration must not leave a half-created account behind.
	registered, err := registry.IsUserRegistered(ctx, addrAlice)
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestRegistry_RegisterUser_FeeRetained(t *testing.T) {
	registry, _ := newTestRegistry(t)

	account := registerTestUser(t, registry, addrAlice)
	assert.Zero(t, account.FeePaid.Cmp(model.MinRegistrationFee))
}

func TestRegistry_IsUserRegistered_Unknown(t *testing.T) {
	registry, _ := newTestRegistry(t)

	registered, err := registry.IsUserRegistered(context.Background(), addrBob)
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestRegistry_GetUserPublicKey(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	registerTestUser(t, registry, addrAlice)

	publicKey, err := registry.GetUserPublicKey(ctx, addrAlice)
	require.NoError(t, err)
	assert.Equal(t, []byte("pub-"+addrAlice.Hex()), publicKey)

	// Unknown addresses read as an empty key, not an error.
	publicKey, err = registry.GetUserPublicKey(ctx, addrBob)
	require.NoError(t, err)
	assert.Empty(t, publicKey)
}

func TestRegistry_AuthenticateUser_Capability(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	registerTestUser(t, registry, addrAlice)

	ok, err := registry.AuthenticateUser(ctx, addrAlice, common.Hash{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.AuthenticateUser(ctx, addrBob, common.Hash{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_AuthenticateUser_HashScheme(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	registry := NewRegistry(ledger, &HashAuth{}, testutil.MakeNoopLogger())

	goodHash := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	_, err := registry.RegisterUser(ctx, RegisterParams{
		Caller:   addrAlice,
		AuthHash: goodHash,
		Payment:  model.MinRegistrationFee,
	})
	require.NoError(t, err)

	ok, err := registry.AuthenticateUser(ctx, addrAlice, goodHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.AuthenticateUser(ctx, addrAlice, common.HexToHash("0xbb"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_UpdateRegistrationPassword(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	registry := NewRegistry(ledger, &HashAuth{}, testutil.MakeNoopLogger())

	oldHash := common.HexToHash("0x01")
	newHash := common.HexToHash("0x02")
	_, err := registry.RegisterUser(ctx, RegisterParams{
		Caller:   addrAlice,
		AuthHash: oldHash,
		Payment:  model.MinRegistrationFee,
	})
	require.NoError(t, err)

	require.NoError(t, registry.UpdateRegistrationPassword(ctx, addrAlice, oldHash, newHash))

	ok, err := registry.AuthenticateUser(ctx, addrAlice, newHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.AuthenticateUser(ctx, addrAlice, oldHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_UpdateRegistrationPassword_WrongOldHash(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	registry := NewRegistry(ledger, &HashAuth{}, testutil.MakeNoopLogger())

	_, err := registry.RegisterUser(ctx, RegisterParams{
		Caller:   addrAlice,
		AuthHash: common.HexToHash("0x01"),
		Payment:  model.MinRegistrationFee,
	})
	require.NoError(t, err)

	err = registry.UpdateRegistrationPassword(ctx, addrAlice, common.HexToHash("0x99"), common.HexToHash("0x02"))
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestRegistry_UpdateRegistrationPassword_NotRegistered(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.UpdateRegistrationPassword(context.Background(), addrBob, common.Hash{}, common.HexToHash("0x02"))
	assert.ErrorIs(t, err, model.ErrNotRegistered)
}
