package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryAccountsRepo struct {
	accounts map[string]Account
	nextID   int64
}

func newMemoryAccountsRepo() *memoryAccountsRepo {
	return &memoryAccountsRepo{accounts: make(map[string]Account)}
}

func (r *memoryAccountsRepo) ListAccounts(ctx context.Context, query string) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryAccountsRepo) GetAccount(ctx context.Context, number string) (Account, error) {
	a, ok := r.accounts[number]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryAccountsRepo) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	if _, ok := r.accounts[in.Number]; ok {
		return Account{}, ErrDuplicate
	}
	r.nextID++
	a := Account{
		ID:        r.nextID,
		Number:    in.Number,
		Name:      in.Name,
		Type:      in.Type,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.accounts[in.Number] = a
	return a, nil
}

func (r *memoryAccountsRepo) UpdateAccount(ctx context.Context, number string, name string) (Account, error) {
	a, ok := r.accounts[number]
	if !ok {
		return Account{}, ErrNotFound
	}
	a.Name = name
	a.UpdatedAt = time.Now()
	r.accounts[number] = a
	return a, nil
}

func (r *memoryAccountsRepo) DeleteAccount(ctx context.Context, number string) error {
	if _, ok := r.accounts[number]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, number)
	return nil
}

func (r *memoryAccountsRepo) ListCostCenters(ctx context.Context, query string) ([]CostCenter, error) {
	return nil, nil
}

func (r *memoryAccountsRepo) GetCostCenter(ctx context.Context, number string) (CostCenter, error) {
	return CostCenter{}, ErrNotFound
}

func (r *memoryAccountsRepo) CreateCostCenter(ctx context.Context, in DimensionInput) (CostCenter, error) {
	return CostCenter{Number: in.Number, Name: in.Name, Description: in.Description}, nil
}

func (r *memoryAccountsRepo) UpdateCostCenter(ctx context.Context, number string, in DimensionInput) (CostCenter, error) {
	return CostCenter{}, ErrNotFound
}

func (r *memoryAccountsRepo) DeleteCostCenter(ctx context.Context, number string) error {
	return ErrNotFound
}

func (r *memoryAccountsRepo) ListCostObjects(ctx context.Context, query string) ([]CostObject, error) {
	return nil, nil
}

func (r *memoryAccountsRepo) GetCostObject(ctx context.Context, number string) (CostObject, error) {
	return CostObject{}, ErrNotFound
}

func (r *memoryAccountsRepo) CreateCostObject(ctx context.Context, in DimensionInput) (CostObject, error) {
	return CostObject{Number: in.Number, Name: in.Name, Description: in.Description}, nil
}

func (r *memoryAccountsRepo) UpdateCostObject(ctx context.Context, number string, in DimensionInput) (CostObject, error) {
	return CostObject{}, ErrNotFound
}

func (r *memoryAccountsRepo) DeleteCostObject(ctx context.Context, number string) error {
	return ErrNotFound
}

func TestCreateAccountValidatesType(t *testing.T) {
	svc := NewService(newMemoryAccountsRepo())
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, AccountInput{Number: "10000", Name: "Members", Type: "weird"})
	require.ErrorIs(t, err, ErrValidation)

	account, err := svc.CreateAccount(ctx, AccountInput{Number: "10000", Name: "Members", Type: AccountTypeDebitor})
	require.NoError(t, err)
	require.Equal(t, AccountTypeDebitor, account.Type)

	_, err = svc.CreateAccount(ctx, AccountInput{Number: "10000", Name: "Again", Type: AccountTypeDebitor})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateAccountKeepsType(t *testing.T) {
	svc := NewService(newMemoryAccountsRepo())
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, AccountInput{Number: "4000", Name: "Income", Type: AccountTypeIncome})
	require.NoError(t, err)

	_, err = svc.UpdateAccount(ctx, "4000", AccountInput{Number: "4000", Name: "Income", Type: AccountTypeCost})
	require.ErrorIs(t, err, ErrTypeImmutable)

	updated, err := svc.UpdateAccount(ctx, "4000", AccountInput{Number: "4000", Name: "Subscription income", Type: AccountTypeIncome})
	require.NoError(t, err)
	require.Equal(t, "Subscription income", updated.Name)
	require.Equal(t, AccountTypeIncome, updated.Type)
}

func TestDeleteUnknownAccount(t *testing.T) {
	svc := NewService(newMemoryAccountsRepo())
	require.ErrorIs(t, svc.DeleteAccount(context.Background(), "nope"), ErrNotFound)
}
