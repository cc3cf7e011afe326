package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubledger/clubledger/internal/platform/db"
)

// ledgerLockKey serializes number allocation across committing transactions.
const ledgerLockKey int64 = 7601

// Repository encapsulates DB operations for ledger lines.
type Repository interface {
	List(ctx context.Context, year int) ([]Transaction, error)
	LinesByInternalNumber(ctx context.Context, internalNumber int64) ([]Transaction, error)
	LookupAccount(ctx context.Context, number string) (AccountRef, error)
	CostCenterExists(ctx context.Context, number string) (bool, error)
	CostObjectExists(ctx context.Context, number string) (bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available inside a commit boundary.
type TxRepository interface {
	LockLedger(ctx context.Context) error
	MaxDocumentSeq(ctx context.Context, year int, resetPrefix string) (int64, error)
	MaxInternalNumber(ctx context.Context) (int64, error)
	MaxClearingNumber(ctx context.Context) (int64, error)
	InsertLines(ctx context.Context, lines []Transaction) ([]Transaction, error)
	LinesByInternalNumber(ctx context.Context, internalNumber int64) ([]Transaction, error)
	MarkReset(ctx context.Context, internalNumber int64) error
	SetClearingNumber(ctx context.Context, ids []int64, clearingNumber int64) (int64, error)
	ClearClearingNumber(ctx context.Context, clearingNumber int64) (int64, error)
}

// AccountRef is the slice of an account the ledger needs for validation and
// denormalized copies.
type AccountRef struct {
	Number string
	Name   string
	Type   string
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const lineColumns = `id, account_number, date, document_number, text, debit, credit,
cost_center, cost_object, document_number_generated, internal_number, reset,
clearing_number, accounting_year, created_at`

func scanLine(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.AccountNumber, &t.Date, &t.DocumentNumber, &t.Text,
		&t.Debit, &t.Credit, &t.CostCenter, &t.CostObject, &t.DocumentNumberGenerated,
		&t.InternalNumber, &t.Reset, &t.ClearingNumber, &t.AccountingYear, &t.CreatedAt)
	return t, err
}

func collectLines(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	var lines []Transaction
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, year int) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM transactions
WHERE accounting_year = $1 ORDER BY internal_number DESC, id ASC`, year)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func (r *repository) LinesByInternalNumber(ctx context.Context, internalNumber int64) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM transactions
WHERE internal_number = $1 ORDER BY id ASC`, internalNumber)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func (r *repository) LookupAccount(ctx context.Context, number string) (AccountRef, error) {
	var ref AccountRef
	err := r.pool.QueryRow(ctx, `SELECT number, name, type FROM accounts WHERE number = $1`, number).
		Scan(&ref.Number, &ref.Name, &ref.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRef{}, ErrAccountNotFound
		}
		return AccountRef{}, err
	}
	return ref, nil
}

func (r *repository) CostCenterExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cost_centers WHERE number = $1)`, number).Scan(&exists)
	return exists, err
}

func (r *repository) CostObjectExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cost_objects WHERE number = $1)`, number).Scan(&exists)
	return exists, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LockLedger(ctx context.Context) error {
	return db.AdvisoryLock(ctx, r.tx, ledgerLockKey)
}

// MaxDocumentSeq returns the highest sequence suffix among auto-generated
// document numbers of the year. Correction receipts (reset prefix) and
// manually entered numbers are excluded from the scan.
func (r *txRepository) MaxDocumentSeq(ctx context.Context, year int, resetPrefix string) (int64, error) {
	yearPrefix := documentYearPrefix(year)
	var max int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(CAST(SUBSTRING(document_number FROM 3) AS BIGINT)), 0)
FROM transactions
WHERE document_number_generated
  AND accounting_year = $1
  AND document_number LIKE $2 || '%'
  AND document_number NOT LIKE $3 || '%'`, year, yearPrefix, resetPrefix).
		Scan(&max)
	return max, err
}

func (r *txRepository) MaxInternalNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(internal_number), 0) FROM transactions`).Scan(&max)
	return max, err
}

func (r *txRepository) MaxClearingNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(clearing_number), 0) FROM transactions`).Scan(&max)
	return max, err
}

func (r *txRepository) InsertLines(ctx context.Context, lines []Transaction) ([]Transaction, error) {
	inserted := make([]Transaction, 0, len(lines))
	for _, line := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO transactions
(account_number, date, document_number, text, debit, credit, cost_center, cost_object,
 document_number_generated, internal_number, reset, clearing_number, accounting_year)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id, created_at`,
			line.AccountNumber, line.Date, line.DocumentNumber, line.Text,
			line.Debit, line.Credit, line.CostCenter, line.CostObject,
			line.DocumentNumberGenerated, line.InternalNumber, line.Reset,
			line.ClearingNumber, line.AccountingYear)
		if err := row.Scan(&line.ID, &line.CreatedAt); err != nil {
			return nil, err
		}
		inserted = append(inserted, line)
	}
	return inserted, nil
}

func (r *txRepository) LinesByInternalNumber(ctx context.Context, internalNumber int64) ([]Transaction, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lineColumns+` FROM transactions
WHERE internal_number = $1 ORDER BY id ASC FOR UPDATE`, internalNumber)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func (r *txRepository) MarkReset(ctx context.Context, internalNumber int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE transactions SET reset = TRUE WHERE internal_number = $1`, internalNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func (r *txRepository) SetClearingNumber(ctx context.Context, ids []int64, clearingNumber int64) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE transactions SET clearing_number = $2 WHERE id = ANY($1)`, ids, clearingNumber)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) ClearClearingNumber(ctx context.Context, clearingNumber int64) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE transactions SET clearing_number = NULL WHERE clearing_number = $1`, clearingNumber)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
