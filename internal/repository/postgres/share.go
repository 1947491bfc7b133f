package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

var _ model.ShareStore = (*ShareRepository)(nil)

type ShareRepository struct {
	db Querier
}

func NewShareRepository(db Querier) *ShareRepository {
	return &ShareRepository{
		db: db,
	}
}

func (r *ShareRepository) Create(ctx context.Context, grant model.ShareGrant) (model.ShareGrant, error) {
	query := `INSERT INTO share_grants (id, sender, recipient, name, data_hash, shared_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, sender, recipient, name, data_hash, shared_at`

	saved, err := scanGrant(r.db.QueryRow(ctx, query,
		grant.ID, grant.Sender.Bytes(), grant.Recipient.Bytes(),
		grant.Name, grant.DataHash, grant.SharedAt,
	))
	if err != nil {
		return model.ShareGrant{}, fmt.Errorf("failed to create grant: %w", err)
	}
	return saved, nil
}

func (r *ShareRepository) GetReceived(ctx context.Context, recipient, sender common.Address) ([]model.ShareGrant, error) {
	query := `SELECT id, sender, recipient, name, data_hash, shared_at
			  FROM share_grants
			  WHERE recipient = $1 AND sender = $2
			  ORDER BY seq ASC`

	return r.list(ctx, query, recipient.Bytes(), sender.Bytes())
}

func (r *ShareRepository) GetAllReceived(ctx context.Context, recipient common.Address) ([]model.ShareGrant, error) {
	query := `SELECT id, sender, recipient, name, data_hash, shared_at
			  FROM share_grants
			  WHERE recipient = $1
			  ORDER BY seq ASC`

	return r.list(ctx, query, recipient.Bytes())
}

func (r *ShareRepository) GetAllSent(ctx context.Context, sender common.Address) ([]model.ShareGrant, error) {
	query := `SELECT id, sender, recipient, name, data_hash, shared_at
			  FROM share_grants
			  WHERE sender = $1
			  ORDER BY seq ASC`

	return r.list(ctx, query, sender.Bytes())
}

// DeleteMatch removes the oldest grant matching the full (sender, recipient,
// name, hash) tuple. Both the sent and received views are queries over this
// one row, so removal disappears from both at once.
func (r *ShareRepository) DeleteMatch(ctx context.Context, sender, recipient common.Address, name, dataHash string) error {
	query := `DELETE FROM share_grants
			  WHERE id = (
				  SELECT id FROM share_grants
				  WHERE sender = $1 AND recipient = $2 AND name = $3 AND data_hash = $4
				  ORDER BY seq ASC
				  LIMIT 1
			  )`

	cmd, err := r.db.Exec(ctx, query, sender.Bytes(), recipient.Bytes(), name, dataHash)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ShareRepository) list(ctx context.Context, query string, args ...any) ([]model.ShareGrant, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get grants: %w", err)
	}
	defer rows.Close()

	var grants []model.ShareGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return grants, nil
}

func scanGrant(row pgx.Row) (model.ShareGrant, error) {
	var (
		grant     model.ShareGrant
		sender    []byte
		recipient []byte
	)
	err := row.Scan(&grant.ID, &sender, &recipient, &grant.Name, &grant.DataHash, &grant.SharedAt)
	if err != nil {
		return model.ShareGrant{}, err
	}
	grant.Sender = common.BytesToAddress(sender)
	grant.Recipient = common.BytesToAddress(recipient)
	return grant, nil
}
