package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/dbx"
)

// SQLiteRepository implements Repository over one vertical's table using
// a DBTX (either *sql.DB or *sql.Tx). The table name comes from the
// vertical descriptor, never from user input.
type SQLiteRepository struct {
	db    dbx.DBTX
	table string
}

// NewSQLiteRepository binds a repository to the given table.
func NewSQLiteRepository(db dbx.DBTX, table string) *SQLiteRepository {
	return &SQLiteRepository{db: db, table: table}
}

// Upsert replaces the row wholesale on conflict; no field merging.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (address, key, content, created_at, listed, submitted)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(address, key) DO UPDATE SET content = excluded.content,
				created_at = excluded.created_at,
				listed = excluded.listed,
				submitted = excluded.submitted
	`, r.table)
	_, err := r.db.ExecContext(ctx, query,
		rec.Address, rec.Key, rec.Content, rec.CreatedAt.Unix(), rec.Listed, rec.Submitted)
	if err != nil {
		return fmt.Errorf("failed to upsert %s record: %w", r.table, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByAddress(ctx context.Context, address string, limit int) ([]Record, error) {
	query := fmt.Sprintf(`SELECT address, key, content, created_at, listed, submitted
		FROM %s WHERE address = ? ORDER BY created_at DESC, key`, r.table)
	args := []any{address}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s records: %w", r.table, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *SQLiteRepository) Get(ctx context.Context, address, key string) (*Record, error) {
	query := fmt.Sprintf(`SELECT address, key, content, created_at, listed, submitted
		FROM %s WHERE address = ? AND key = ?`, r.table)
	row := r.db.QueryRowContext(ctx, query, address, key)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", r.table, err)
	}
	return rec, nil
}

// Delete expects exactly one row to be affected.
func (r *SQLiteRepository) Delete(ctx context.Context, address, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE address = ? AND key = ?`, r.table)
	res, err := r.db.ExecContext(ctx, query, address, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s record: %w", r.table, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: %s record %s/%s", common.ErrNotFound, r.table, address, key)
	}
	return nil
}

func (r *SQLiteRepository) MarkSubmitted(ctx context.Context, address, key string, submitted bool) error {
	query := fmt.Sprintf(`UPDATE %s SET submitted = ? WHERE address = ? AND key = ?`, r.table)
	res, err := r.db.ExecContext(ctx, query, submitted, address, key)
	if err != nil {
		return fmt.Errorf("failed to mark %s record: %w", r.table, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: %s record %s/%s", common.ErrNotFound, r.table, address, key)
	}
	return nil
}

func (r *SQLiteRepository) ListUnsubmitted(ctx context.Context, address string) ([]Record, error) {
	query := fmt.Sprintf(`SELECT address, key, content, created_at, listed, submitted
		FROM %s WHERE address = ? AND submitted = 0 ORDER BY created_at, key`, r.table)
	rows, err := r.db.QueryContext(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsubmitted %s records: %w", r.table, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *SQLiteRepository) DeleteByAddress(ctx context.Context, address string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE address = ?`, r.table)
	if _, err := r.db.ExecContext(ctx, query, address); err != nil {
		return fmt.Errorf("failed to prune %s records: %w", r.table, err)
	}
	return nil
}

// Transact runs fn against a transaction-bound copy of the repository.
// A repository already bound to a transaction runs fn on itself.
func (r *SQLiteRepository) Transact(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return fn(ctx, r)
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLiteRepository(tx, r.table))
	})
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRecord(scan func(dest ...any) error) (*Record, error) {
	var rec Record
	var createdAt int64
	if err := scan(&rec.Address, &rec.Key, &rec.Content, &createdAt, &rec.Listed, &rec.Submitted); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}
