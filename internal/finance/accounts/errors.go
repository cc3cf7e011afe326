package accounts

import "errors"

var (
	ErrNotFound      = errors.New("accounts: not found")
	ErrDuplicate     = errors.New("accounts: number already taken")
	ErrInUse         = errors.New("accounts: referenced by ledger lines")
	ErrValidation    = errors.New("accounts: invalid input")
	ErrTypeImmutable = errors.New("accounts: account type cannot change")
)
