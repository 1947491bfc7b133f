package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

var _ model.RecordStore = (*RecordRepository)(nil)

type RecordRepository struct {
	db Querier
}

func NewRecordRepository(db Querier) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

func (r *RecordRepository) Append(ctx context.Context, record model.PasswordRecord) (model.PasswordRecord, error) {
	query := `INSERT INTO password_records (id, owner, pos, website, user_name, payload, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id, owner, pos, website, user_name, payload, created_at, updated_at`

	saved, err := scanRecord(r.db.QueryRow(ctx, query,
		record.ID, record.Owner.Bytes(), record.Position,
		record.Website, record.UserName, record.Payload,
		record.CreatedAt, record.UpdatedAt,
	))
	if err != nil {
		return model.PasswordRecord{}, fmt.Errorf("failed to append record: %w", err)
	}
	return saved, nil
}

func (r *RecordRepository) GetByOwner(ctx context.Context, owner common.Address) ([]model.PasswordRecord, error) {
	query := `SELECT id, owner, pos, website, user_name, payload, created_at, updated_at
			  FROM password_records
			  WHERE owner = $1
			  ORDER BY pos ASC`

	rows, err := r.db.Query(ctx, query, owner.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to get records by owner: %w", err)
	}
	defer rows.Close()

	var records []model.PasswordRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *RecordRepository) Count(ctx context.Context, owner common.Address) (int, error) {
	query := `SELECT COUNT(*) FROM password_records WHERE owner = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, owner.Bytes()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *RecordRepository) UpdateAt(ctx context.Context, owner common.Address, pos int, website, userName, payload string) error {
	query := `UPDATE password_records
			  SET website = $3, user_name = $4, payload = $5, updated_at = NOW()
			  WHERE owner = $1 AND pos = $2`

	cmd, err := r.db.Exec(ctx, query, owner.Bytes(), pos, website, userName, payload)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SwapDelete removes the row at pos and, when it was not the last one,
// renumbers the last row into the vacated slot. Runs inside the operation's
// transaction, so the two statements land atomically.
func (r *RecordRepository) SwapDelete(ctx context.Context, owner common.Address, pos int) error {
	var last int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(pos), -1) FROM password_records WHERE owner = $1`,
		owner.Bytes(),
	).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to find last pos: %w", err)
	}
	if pos < 0 || pos > last {
		return model.ErrNotFound
	}

	cmd, err := r.db.Exec(ctx,
		`DELETE FROM password_records WHERE owner = $1 AND pos = $2`,
		owner.Bytes(), pos,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	if pos != last {
		moved, err := r.db.Exec(ctx,
			`UPDATE password_records SET pos = $2 WHERE owner = $1 AND pos = $3`,
			owner.Bytes(), pos, last,
		)
		if err != nil {
			return fmt.Errorf("failed to move last record: %w", err)
		}
		// A sparse sequence must roll the transaction back, not commit.
		if moved.RowsAffected() != 1 {
			return fmt.Errorf("expected to move 1 record from pos %d, moved %d", last, moved.RowsAffected())
		}
	}
	return nil
}

func scanRecord(row pgx.Row) (model.PasswordRecord, error) {
	var (
		record model.PasswordRecord
		owner  []byte
	)
	err := row.Scan(
		&record.ID, &owner, &record.Position,
		&record.Website, &record.UserName, &record.Payload,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PasswordRecord{}, err
		}
		return model.PasswordRecord{}, fmt.Errorf("failed to scan record: %w", err)
	}
	record.Owner = common.BytesToAddress(owner)
	return record, nil
}
