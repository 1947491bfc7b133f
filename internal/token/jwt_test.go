package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestJWT_AccessTokenRoundTrip(t *testing.T) {
	manager := NewJWT("secret")

	tokenString, err := manager.GenerateAccessToken(testAddress)
	require.NoError(t, err)

	address, err := manager.ParseAccessToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, testAddress, address)
}

func TestJWT_RefreshTokenRoundTrip(t *testing.T) {
	manager := NewJWT("secret")

	tokenString, jti, err := manager.GenerateRefreshToken(testAddress)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	address, parsedJTI, err := manager.ParseRefreshToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, testAddress, address)
	assert.Equal(t, jti, parsedJTI)
}

func TestJWT_TypeMismatch(t *testing.T) {
	manager := NewJWT("secret")

	access, err := manager.GenerateAccessToken(testAddress)
	require.NoError(t, err)
	refresh, _, err := manager.GenerateRefreshToken(testAddress)
	require.NoError(t, err)

	_, _, err = manager.ParseRefreshToken(access)
	assert.Error(t, err)

	_, err = manager.ParseAccessToken(refresh)
	assert.Error(t, err)
}

func TestJWT_WrongSecret(t *testing.T) {
	tokenString, err := NewJWT("secret-a").GenerateAccessToken(testAddress)
	require.NoError(t, err)

	_, err = NewJWT("secret-b").ParseAccessToken(tokenString)
	assert.Error(t, err)
}

func TestJWT_Garbage(t *testing.T) {
	manager := NewJWT("secret")

	_, err := manager.ParseAccessToken("not-a-token")
	assert.Error(t, err)
}
