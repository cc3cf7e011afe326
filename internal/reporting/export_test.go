package reporting

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/clubledger/clubledger/internal/finance/accounts"
	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/finance/ledger"
	"github.com/clubledger/clubledger/internal/members"
)

type fakeAccountsPort struct{}

func (fakeAccountsPort) ListAccounts(ctx context.Context, query string) ([]accounts.Account, error) {
	return []accounts.Account{
		{Number: "10000", Name: "Members receivable", Type: accounts.AccountTypeDebitor},
		{Number: "4000", Name: "Subscription income", Type: accounts.AccountTypeIncome},
	}, nil
}

func (fakeAccountsPort) ListCostCenters(ctx context.Context, query string) ([]accounts.CostCenter, error) {
	return []accounts.CostCenter{{Number: "101", Name: "Youth"}}, nil
}

func (fakeAccountsPort) ListCostObjects(ctx context.Context, query string) ([]accounts.CostObject, error) {
	return nil, nil
}

type fakeLedgerPort struct {
	lines []ledger.Transaction
}

func (f fakeLedgerPort) List(ctx context.Context) ([]ledger.Transaction, error) {
	return f.lines, nil
}

type fakeClosurePort struct{}

func (fakeClosurePort) Balances(ctx context.Context) ([]closure.ClosureBalance, error) {
	claims, _ := decimal.NewFromString("70")
	liabilities, _ := decimal.NewFromString("75")
	return []closure.ClosureBalance{{Year: 2024, Claims: claims, Liabilities: liabilities}}, nil
}

func (fakeClosurePort) Transactions(ctx context.Context, year int) ([]closure.ClosureTransaction, error) {
	return nil, nil
}

type fakeMembersPort struct{}

func (fakeMembersPort) ListMembers(ctx context.Context, query string) ([]members.Member, error) {
	return nil, nil
}

func (fakeMembersPort) ListSubscriptions(ctx context.Context) ([]members.Subscription, error) {
	return nil, nil
}

func exportLines(t *testing.T) []ledger.Transaction {
	t.Helper()
	debit, err := decimal.NewFromString("1234.56")
	require.NoError(t, err)
	cc := "101"
	return []ledger.Transaction{
		{
			AccountNumber:           "10000",
			Date:                    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			DocumentNumber:          "2500001",
			Text:                    "Spring fair",
			Debit:                   debit,
			CostCenter:              &cc,
			DocumentNumberGenerated: true,
			InternalNumber:          1,
			AccountingYear:          2025,
		},
		{
			AccountNumber:  "4000",
			Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			DocumentNumber: "2500001",
			Text:           "Spring fair",
			Credit:         debit,
			InternalNumber: 1,
			AccountingYear: 2025,
		},
	}
}

func TestTransactionExportShapes(t *testing.T) {
	exporter := NewExporter(fakeAccountsPort{}, fakeLedgerPort{lines: exportLines(t)}, fakeClosurePort{}, fakeMembersPort{})

	data, err := exporter.Transactions(context.Background())
	require.NoError(t, err)

	payload, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded struct {
		Transactions []struct {
			Account struct {
				Number      string `json:"number"`
				Name        string `json:"name"`
				AccountType string `json:"account_type"`
			} `json:"account"`
			Date       string  `json:"date"`
			Debit      *string `json:"debit"`
			Credit     *string `json:"credit"`
			CostCenter *struct {
				Number string `json:"number"`
				Name   string `json:"name"`
			} `json:"cost_center"`
			CostObject *struct{} `json:"cost_object"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded.Transactions, 2)

	first := decoded.Transactions[0]
	require.Equal(t, "10000", first.Account.Number)
	require.Equal(t, "Members receivable", first.Account.Name)
	require.Equal(t, "debitor", first.Account.AccountType)
	require.Equal(t, "2025-03-10", first.Date)
	require.NotNil(t, first.Debit)
	require.Equal(t, "1234.56", *first.Debit)
	require.Nil(t, first.Credit, "empty side must export as null")
	require.NotNil(t, first.CostCenter)
	require.Equal(t, "Youth", first.CostCenter.Name)
	require.Nil(t, first.CostObject)

	second := decoded.Transactions[1]
	require.Nil(t, second.Debit)
	require.NotNil(t, second.Credit)
	require.Nil(t, second.CostCenter)
}

func TestClosureBalancesExport(t *testing.T) {
	exporter := NewExporter(fakeAccountsPort{}, fakeLedgerPort{}, fakeClosurePort{}, fakeMembersPort{})

	data, err := exporter.ClosureBalances(context.Background())
	require.NoError(t, err)
	balances := data["closure_balances"].([]ClosureBalanceExport)
	require.Len(t, balances, 1)
	require.Equal(t, 2024, balances[0].Year)
	require.Equal(t, "70", balances[0].Claims)
	require.Equal(t, "75", balances[0].Liabilities)
}

func TestLedgerReportHTML(t *testing.T) {
	exporter := NewExporter(fakeAccountsPort{}, fakeLedgerPort{lines: exportLines(t)}, fakeClosurePort{}, fakeMembersPort{})
	export, err := exporter.Transactions(context.Background())
	require.NoError(t, err)

	html, err := LedgerReportHTML(export, 2025, language.German)
	require.NoError(t, err)
	require.True(t, strings.Contains(html, "Ledger journal 2025"))
	require.True(t, strings.Contains(html, "2500001"))
	// German locale groups with a dot and uses a decimal comma.
	require.True(t, strings.Contains(html, "1.234,56"))
}
