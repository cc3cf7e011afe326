package accounts

import "time"

// AccountType enumerates the categories of the chart of accounts.
type AccountType string

const (
	AccountTypeCreditor AccountType = "creditor"
	AccountTypeDebitor  AccountType = "debitor"
	AccountTypeCost     AccountType = "cost"
	AccountTypeIncome   AccountType = "income"
	AccountTypeAsset    AccountType = "asset"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCreditor, AccountTypeDebitor, AccountTypeCost, AccountTypeIncome, AccountTypeAsset:
		return true
	}
	return false
}

// Account is one node of the chart of accounts. The number is the natural
// key ledger lines reference; the type is fixed at creation.
type Account struct {
	ID        int64
	Number    string
	Name      string
	Type      AccountType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CostCenter is an analytical dimension ledger lines may carry.
type CostCenter struct {
	ID          int64
	Number      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CostObject is the second analytical dimension, parallel to CostCenter.
type CostObject struct {
	ID          int64
	Number      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
