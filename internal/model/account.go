package model

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MinRegistrationFee is the minimum payment accepted by RegisterUser,
// 0.01 ETH expressed in wei. The fee is retained; there is no refund path.
var MinRegistrationFee = big.NewInt(10_000_000_000_000_000)

// Account is the registration state of one address. An address moves from
// unregistered to registered exactly once and is never deleted.
type Account struct {
	Address      common.Address
	PublicKey    []byte
	AuthHash     common.Hash
	FeePaid      *big.Int
	RegisteredAt time.Time
}

// AccountStore defines persistence operations for accounts.
type AccountStore interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByAddress(ctx context.Context, address common.Address) (Account, error)
	UpdateAuthHash(ctx context.Context, address common.Address, authHash common.Hash) error
}
