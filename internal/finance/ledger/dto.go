package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LegInput describes one submitted leg of a receipt being built.
type LegInput struct {
	AccountNumber  string
	Date           time.Time
	DocumentNumber string
	Text           string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	CostCenter     string
	CostObject     string
}

// Validate applies the field-level checks that run before any state is
// touched.
func (in LegInput) Validate() error {
	if in.AccountNumber == "" {
		return fmt.Errorf("%w: leg missing account", ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: leg missing date", ErrValidation)
	}
	if in.Text == "" {
		return fmt.Errorf("%w: leg missing text", ErrValidation)
	}
	if in.Debit.IsNegative() || in.Credit.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrValidation)
	}
	if in.Debit.IsZero() == in.Credit.IsZero() {
		return fmt.Errorf("%w: leg requires exactly one of debit or credit", ErrValidation)
	}
	return nil
}

// PostingLineInput is one line of a direct balanced posting.
type PostingLineInput struct {
	AccountNumber string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	CostCenter    string
	CostObject    string
}

// PostingInput commits a complete receipt in one call, bypassing the draft
// accumulator. Dues assessment and other programmatic posters use it.
type PostingInput struct {
	Date           time.Time
	DocumentNumber string
	Text           string
	ActorID        int64
	Lines          []PostingLineInput
}

// Validate ensures the posting is complete and balanced.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: posting missing date", ErrValidation)
	}
	if in.Text == "" {
		return fmt.Errorf("%w: posting missing text", ErrValidation)
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: posting requires at least two lines", ErrValidation)
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountNumber == "" {
			return fmt.Errorf("%w: line %d missing account", ErrValidation, idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d negative amount", ErrValidation, idx)
		}
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return fmt.Errorf("%w: line %d requires exactly one of debit or credit", ErrValidation, idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}

// DraftState reports where the accumulator stands after a leg submission.
type DraftState string

const (
	DraftStateAccumulating DraftState = "accumulating"
	DraftStateCommitted    DraftState = "committed"
)

// Suggestion pre-fills the next leg form with the shared receipt fields and
// the amount that would balance the draft.
type Suggestion struct {
	Date           time.Time
	Text           string
	DocumentNumber string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
}

// AddLegResult is returned by every leg submission.
type AddLegResult struct {
	Token       string
	State       DraftState
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Suggestion  *Suggestion
	// Receipt is set once the draft balanced and was committed.
	Receipt *Receipt
}
