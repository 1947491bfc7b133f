package model

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// TokenManager generates and validates access/refresh tokens bound to an
// Ethereum address.
type TokenManager interface {
	GenerateAccessToken(address common.Address) (string, error)
	GenerateRefreshToken(address common.Address) (token string, jti string, err error)
	ParseAccessToken(token string) (common.Address, error)
	ParseRefreshToken(token string) (address common.Address, jti string, err error)
}

var (
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenMismatch = errors.New("refresh token mismatch")
)
