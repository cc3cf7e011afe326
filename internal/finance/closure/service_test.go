package closure

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// openItem is one uncleared debitor/creditor line of the fake ledger.
type openItem struct {
	accountType string
	debit       decimal.Decimal
	credit      decimal.Decimal
	cleared     bool
	year        int
}

type memoryClosureRepo struct {
	items        []openItem
	transactions []ClosureTransaction
	balances     []ClosureBalance
	nextID       int64
}

func (r *memoryClosureRepo) HasClosure(ctx context.Context, year int) (bool, error) {
	for _, t := range r.transactions {
		if t.AccountingYear == year {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryClosureRepo) ListBalances(ctx context.Context) ([]ClosureBalance, error) {
	return r.balances, nil
}

func (r *memoryClosureRepo) ListTransactions(ctx context.Context, year int) ([]ClosureTransaction, error) {
	var out []ClosureTransaction
	for _, t := range r.transactions {
		if t.AccountingYear == year {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryClosureRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryClosureRepo) CopyYear(ctx context.Context, year int) (int64, error) {
	var copied int64
	for _, item := range r.items {
		if item.year != year {
			continue
		}
		r.nextID++
		r.transactions = append(r.transactions, ClosureTransaction{
			ID:             r.nextID,
			AccountNumber:  "10000",
			AccountName:    "snapshot",
			Debit:          item.debit,
			Credit:         item.credit,
			AccountingYear: year,
			CreatedAt:      time.Now(),
		})
		copied++
	}
	return copied, nil
}

func (r *memoryClosureRepo) OpenItems(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	claims, liabilities := decimal.Zero, decimal.Zero
	for _, item := range r.items {
		if item.cleared {
			continue
		}
		switch item.accountType {
		case "debitor":
			claims = claims.Add(item.debit.Sub(item.credit))
		case "creditor":
			liabilities = liabilities.Add(item.credit.Sub(item.debit))
		}
	}
	return claims, liabilities, nil
}

func (r *memoryClosureRepo) InsertBalance(ctx context.Context, year int, claims, liabilities decimal.Decimal) (ClosureBalance, error) {
	r.nextID++
	b := ClosureBalance{ID: r.nextID, Year: year, Claims: claims, Liabilities: liabilities, CreatedAt: time.Now()}
	r.balances = append(r.balances, b)
	return b, nil
}

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func TestRunAggregatesOpenItems(t *testing.T) {
	repo := &memoryClosureRepo{items: []openItem{
		{accountType: "debitor", debit: dec(t, "100"), year: 2024},
		{accountType: "debitor", credit: dec(t, "40"), year: 2024},
		{accountType: "creditor", credit: dec(t, "75"), year: 2024},
		// Cleared lines never count towards the balance.
		{accountType: "creditor", credit: dec(t, "999"), cleared: true, year: 2024},
		// Open items from other years do count; only the snapshot is
		// year-scoped.
		{accountType: "debitor", debit: dec(t, "10"), year: 2023},
	}}
	svc := NewService(repo, nil)

	result, err := svc.Run(context.Background(), 2024, 1)
	require.NoError(t, err)
	require.Equal(t, 2024, result.Year)
	require.Equal(t, int64(4), result.Copied)
	require.Equal(t, "70", result.Balance.Claims.String())
	require.Equal(t, "75", result.Balance.Liabilities.String())
}

func TestRunIsIdempotencyGuarded(t *testing.T) {
	repo := &memoryClosureRepo{items: []openItem{
		{accountType: "debitor", debit: dec(t, "20"), year: 2024},
	}}
	svc := NewService(repo, nil)

	_, err := svc.Run(context.Background(), 2024, 1)
	require.NoError(t, err)
	copied := len(repo.transactions)
	balances := len(repo.balances)

	_, err = svc.Run(context.Background(), 2024, 1)
	require.ErrorIs(t, err, ErrAlreadyClosed)
	require.Len(t, repo.transactions, copied, "second run must not copy")
	require.Len(t, repo.balances, balances, "second run must not write a balance")

	// A different year still closes.
	_, err = svc.Run(context.Background(), 2023, 1)
	require.NoError(t, err)
}

func TestTransactionsUnknownYear(t *testing.T) {
	svc := NewService(&memoryClosureRepo{}, nil)
	_, err := svc.Transactions(context.Background(), 1999)
	require.ErrorIs(t, err, ErrNotFound)
}
