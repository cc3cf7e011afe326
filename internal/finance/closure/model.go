package closure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosureTransaction is an immutable denormalized copy of a ledger line
// taken at closure time. Account and cost dimension fields are copied by
// value so the record survives later renames or deletions of the live rows.
type ClosureTransaction struct {
	ID             int64
	AccountNumber  string
	AccountName    string
	Date           time.Time
	DocumentNumber string
	Text           string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	CostCenter     *string
	CostCenterName *string
	CostObject     *string
	CostObjectName *string
	InternalNumber int64
	Reset          bool
	ClearingNumber *int64
	AccountingYear int
	CreatedAt      time.Time
}

// ClosureBalance is the one-per-year aggregate of open items at closure
// time: claims are net amounts owed to the club, liabilities net amounts
// owed by it.
type ClosureBalance struct {
	ID          int64
	Year        int
	Claims      decimal.Decimal
	Liabilities decimal.Decimal
	CreatedAt   time.Time
}

// Result summarizes one closure run.
type Result struct {
	Year    int
	Copied  int64
	Balance ClosureBalance
}
