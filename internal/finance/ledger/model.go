package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger line. A receipt is the set of lines sharing a
// document number and an internal number; lines are only ever superseded
// through the reset flow, never edited in place.
type Transaction struct {
	ID             int64
	AccountNumber  string
	Date           time.Time
	DocumentNumber string
	Text           string
	// Exactly one of Debit/Credit is populated on a committed line; the
	// zero value stands for the empty side.
	Debit                   decimal.Decimal
	Credit                  decimal.Decimal
	CostCenter              *string
	CostObject              *string
	DocumentNumberGenerated bool
	InternalNumber          int64
	Reset                   bool
	ClearingNumber          *int64
	AccountingYear          int
	CreatedAt               time.Time
}

// Receipt groups the lines of one committed bookkeeping event.
type Receipt struct {
	DocumentNumber string
	InternalNumber int64
	Lines          []Transaction
}

// DebitTotal sums the debit side of the receipt.
func (r Receipt) DebitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// CreditTotal sums the credit side of the receipt.
func (r Receipt) CreditTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Credit)
	}
	return total
}

// Settings carries the finance tunables every operation needs. They are
// passed explicitly instead of read from a global preferences store.
type Settings struct {
	// AccountingYear scopes document numbering and commits. Zero selects
	// the current calendar year.
	AccountingYear int
	// ResetPrefix marks document numbers of correction receipts.
	ResetPrefix string
}

// Year resolves the active accounting year.
func (s Settings) Year(now time.Time) int {
	if s.AccountingYear != 0 {
		return s.AccountingYear
	}
	return now.Year()
}
