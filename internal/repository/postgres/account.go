package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

type AccountRepository struct {
	db Querier
}

func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	query := `INSERT INTO accounts (address, public_key, auth_hash, fee_paid_wei, registered_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING address, public_key, auth_hash, fee_paid_wei, registered_at`

	feePaid := "0"
	if account.FeePaid != nil {
		feePaid = account.FeePaid.String()
	}

	row := r.db.QueryRow(ctx, query,
		account.Address.Bytes(), account.PublicKey, account.AuthHash.Bytes(), feePaid, account.RegisteredAt,
	)
	saved, err := scanAccount(row)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return saved, nil
}

func (r *AccountRepository) GetByAddress(ctx context.Context, address common.Address) (model.Account, error) {
	query := `SELECT address, public_key, auth_hash, fee_paid_wei, registered_at
			  FROM accounts WHERE address = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, address.Bytes()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by address: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) UpdateAuthHash(ctx context.Context, address common.Address, authHash common.Hash) error {
	query := `UPDATE accounts SET auth_hash = $2 WHERE address = $1`

	cmd, err := r.db.Exec(ctx, query, address.Bytes(), authHash.Bytes())
	if err != nil {
		return fmt.Errorf("failed to update auth hash: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		account  model.Account
		address  []byte
		authHash []byte
		feePaid  string
		regAt    time.Time
	)
	if err := row.Scan(&address, &account.PublicKey, &authHash, &feePaid, &regAt); err != nil {
		return model.Account{}, err
	}

	account.Address = common.BytesToAddress(address)
	account.AuthHash = common.BytesToHash(authHash)
	account.RegisteredAt = regAt

	fee, ok := new(big.Int).SetString(feePaid, 10)
	if !ok {
		return model.Account{}, fmt.Errorf("malformed fee value %q", feePaid)
	}
	account.FeePaid = fee

	return account, nil
}
