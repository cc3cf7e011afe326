package ledger

import "errors"

var (
	// ErrValidation wraps field-level input failures surfaced before any
	// state is mutated.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrUnbalanced indicates debit and credit totals differ.
	ErrUnbalanced = errors.New("ledger: receipt lines must balance")
	// ErrReceiptNotFound indicates no lines exist for the internal number.
	ErrReceiptNotFound = errors.New("ledger: receipt not found")
	// ErrLineNotFound indicates a referenced ledger line does not exist.
	ErrLineNotFound = errors.New("ledger: line not found")
	// ErrAlreadyReset indicates the receipt was already superseded.
	ErrAlreadyReset = errors.New("ledger: receipt already reset")
	// ErrAlreadyCleared indicates a cleared line blocks the reset.
	ErrAlreadyCleared = errors.New("ledger: receipt contains cleared lines")
	// ErrClearingNotFound indicates no lines carry the clearing number.
	ErrClearingNotFound = errors.New("ledger: clearing number not found")
	// ErrDraftNotFound indicates the draft token is unknown or expired.
	ErrDraftNotFound = errors.New("ledger: draft not found")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrCostCenterNotFound indicates the referenced cost center does not exist.
	ErrCostCenterNotFound = errors.New("ledger: cost center not found")
	// ErrCostObjectNotFound indicates the referenced cost object does not exist.
	ErrCostObjectNotFound = errors.New("ledger: cost object not found")
)
