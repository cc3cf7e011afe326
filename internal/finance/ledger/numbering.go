package ledger

import (
	"context"
	"fmt"
)

// Document numbers read <two-digit-year><five-digit-sequence>, e.g. "2500001".
// Correction receipts reuse the superseded number behind the reset prefix.

func documentYearPrefix(year int) string {
	return fmt.Sprintf("%02d", year%100)
}

func formatDocumentNumber(year int, seq int64) string {
	return fmt.Sprintf("%s%05d", documentYearPrefix(year), seq)
}

// nextDocumentNumber allocates the next auto-generated document number for
// the year. Callers must hold the ledger lock: the max+1 scan is only safe
// when allocation is serialized.
func nextDocumentNumber(ctx context.Context, tx TxRepository, year int, resetPrefix string) (string, error) {
	max, err := tx.MaxDocumentSeq(ctx, year, resetPrefix)
	if err != nil {
		return "", err
	}
	return formatDocumentNumber(year, max+1), nil
}

// nextInternalNumber allocates the number linking all lines of one logical
// receipt, including the mirror lines of later resets. Requires the ledger
// lock for the same reason as nextDocumentNumber.
func nextInternalNumber(ctx context.Context, tx TxRepository) (int64, error) {
	max, err := tx.MaxInternalNumber(ctx)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func nextClearingNumber(ctx context.Context, tx TxRepository) (int64, error) {
	max, err := tx.MaxClearingNumber(ctx)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
