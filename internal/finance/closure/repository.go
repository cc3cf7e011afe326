package closure

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/platform/db"
)

// Repository encapsulates DB operations for closure records.
type Repository interface {
	HasClosure(ctx context.Context, year int) (bool, error)
	ListBalances(ctx context.Context) ([]ClosureBalance, error)
	ListTransactions(ctx context.Context, year int) ([]ClosureTransaction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations of one closure run.
type TxRepository interface {
	HasClosure(ctx context.Context, year int) (bool, error)
	// CopyYear snapshots the given year's ledger lines into denormalized
	// closure rows and returns how many were copied.
	CopyYear(ctx context.Context, year int) (int64, error)
	// OpenItems sums the uncleared debitor and creditor lines across all
	// years: claims as debit-credit over debitor accounts, liabilities as
	// credit-debit over creditor accounts.
	OpenItems(ctx context.Context) (claims, liabilities decimal.Decimal, err error)
	InsertBalance(ctx context.Context, year int, claims, liabilities decimal.Decimal) (ClosureBalance, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func hasClosure(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, year int) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM closure_transactions WHERE accounting_year = $1)`, year).Scan(&exists)
	return exists, err
}

func (r *repository) HasClosure(ctx context.Context, year int) (bool, error) {
	return hasClosure(ctx, r.pool, year)
}

func (r *repository) ListBalances(ctx context.Context) ([]ClosureBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, year, claims, liabilities, created_at
FROM closure_balances ORDER BY year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClosureBalance
	for rows.Next() {
		var b ClosureBalance
		if err := rows.Scan(&b.ID, &b.Year, &b.Claims, &b.Liabilities, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const closureColumns = `id, account_number, account_name, date, document_number, text,
debit, credit, cost_center, cost_center_name, cost_object, cost_object_name,
internal_number, reset, clearing_number, accounting_year, created_at`

func (r *repository) ListTransactions(ctx context.Context, year int) ([]ClosureTransaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+closureColumns+` FROM closure_transactions
WHERE accounting_year = $1 ORDER BY internal_number, id`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClosureTransaction
	for rows.Next() {
		var t ClosureTransaction
		err := rows.Scan(&t.ID, &t.AccountNumber, &t.AccountName, &t.Date, &t.DocumentNumber,
			&t.Text, &t.Debit, &t.Credit, &t.CostCenter, &t.CostCenterName, &t.CostObject,
			&t.CostObjectName, &t.InternalNumber, &t.Reset, &t.ClearingNumber,
			&t.AccountingYear, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) HasClosure(ctx context.Context, year int) (bool, error) {
	return hasClosure(ctx, r.tx, year)
}

func (r *txRepository) CopyYear(ctx context.Context, year int) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
INSERT INTO closure_transactions (account_number, account_name, date, document_number,
	text, debit, credit, cost_center, cost_center_name, cost_object, cost_object_name,
	internal_number, reset, clearing_number, accounting_year, created_at)
SELECT t.account_number, a.name, t.date, t.document_number, t.text, t.debit, t.credit,
	t.cost_center, cc.name, t.cost_object, co.name,
	t.internal_number, t.reset, t.clearing_number, t.accounting_year, now()
FROM transactions t
JOIN accounts a ON a.number = t.account_number
LEFT JOIN cost_centers cc ON cc.number = t.cost_center
LEFT JOIN cost_objects co ON co.number = t.cost_object
WHERE t.accounting_year = $1`, year)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) OpenItems(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var claims, liabilities decimal.Decimal
	err := r.tx.QueryRow(ctx, `
SELECT
	COALESCE(SUM(CASE WHEN a.type = 'debitor' THEN COALESCE(t.debit, 0) - COALESCE(t.credit, 0) ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN a.type = 'creditor' THEN COALESCE(t.credit, 0) - COALESCE(t.debit, 0) ELSE 0 END), 0)
FROM transactions t
JOIN accounts a ON a.number = t.account_number
WHERE t.clearing_number IS NULL AND a.type IN ('debitor', 'creditor')`).
		Scan(&claims, &liabilities)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return claims, liabilities, nil
}

func (r *txRepository) InsertBalance(ctx context.Context, year int, claims, liabilities decimal.Decimal) (ClosureBalance, error) {
	var b ClosureBalance
	err := r.tx.QueryRow(ctx, `
INSERT INTO closure_balances (year, claims, liabilities, created_at)
VALUES ($1, $2, $3, now())
RETURNING id, year, claims, liabilities, created_at`,
		year, claims, liabilities).
		Scan(&b.ID, &b.Year, &b.Claims, &b.Liabilities, &b.CreatedAt)
	if err != nil {
		return ClosureBalance{}, err
	}
	return b, nil
}
