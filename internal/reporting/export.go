package reporting

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/finance/accounts"
	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/finance/ledger"
	"github.com/clubledger/clubledger/internal/members"
)

const exportDateLayout = "2006-01-02"

// AccountsPort supplies master data for exports.
type AccountsPort interface {
	ListAccounts(ctx context.Context, query string) ([]accounts.Account, error)
	ListCostCenters(ctx context.Context, query string) ([]accounts.CostCenter, error)
	ListCostObjects(ctx context.Context, query string) ([]accounts.CostObject, error)
}

// LedgerPort supplies the active year's ledger lines.
type LedgerPort interface {
	List(ctx context.Context) ([]ledger.Transaction, error)
}

// ClosurePort supplies closure snapshots and balances.
type ClosurePort interface {
	Balances(ctx context.Context) ([]closure.ClosureBalance, error)
	Transactions(ctx context.Context, year int) ([]closure.ClosureTransaction, error)
}

// MembersPort supplies membership data.
type MembersPort interface {
	ListMembers(ctx context.Context, query string) ([]members.Member, error)
	ListSubscriptions(ctx context.Context) ([]members.Subscription, error)
}

// Exporter assembles the JSON documents the report renderer consumes. The
// renderer validates nothing beyond schema, so the shapes here are the
// contract: amounts as strings, dates as yyyy-mm-dd, optional dimensions as
// nested number/name objects or null.
type Exporter struct {
	accounts AccountsPort
	ledger   LedgerPort
	closure  ClosurePort
	members  MembersPort
}

func NewExporter(accounts AccountsPort, ledger LedgerPort, closure ClosurePort, members MembersPort) *Exporter {
	return &Exporter{accounts: accounts, ledger: ledger, closure: closure, members: members}
}

// AccountExport mirrors the account list shape.
type AccountExport struct {
	Number      string `json:"number"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
}

// DimensionExport covers cost centers and cost objects.
type DimensionExport struct {
	Number      string `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DimensionRef is the nested number/name pair on a transaction.
type DimensionRef struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// TransactionExport is one ledger line with its account denormalized.
type TransactionExport struct {
	Account                 AccountExport `json:"account"`
	Date                    string        `json:"date"`
	DocumentNumber          string        `json:"document_number"`
	Text                    string        `json:"text"`
	Debit                   *string       `json:"debit"`
	Credit                  *string       `json:"credit"`
	CostCenter              *DimensionRef `json:"cost_center"`
	CostObject              *DimensionRef `json:"cost_object"`
	DocumentNumberGenerated bool          `json:"document_number_generated"`
	InternalNumber          int64         `json:"internal_number"`
	Reset                   bool          `json:"reset"`
	ClearingNumber          *int64        `json:"clearing_number"`
	AccountingYear          int           `json:"accounting_year"`
}

// ClosureTransactionExport is one snapshot line; everything is already
// copied by value.
type ClosureTransactionExport struct {
	AccountNumber  string  `json:"account_number"`
	AccountName    string  `json:"account_name"`
	Date           string  `json:"date"`
	DocumentNumber string  `json:"document_number"`
	Text           string  `json:"text"`
	Debit          *string `json:"debit"`
	Credit         *string `json:"credit"`
	CostCenter     *string `json:"cost_center"`
	CostCenterName *string `json:"cost_center_name"`
	CostObject     *string `json:"cost_object"`
	CostObjectName *string `json:"cost_object_name"`
	InternalNumber int64   `json:"internal_number"`
	Reset          bool    `json:"reset"`
	ClearingNumber *int64  `json:"clearing_number"`
	AccountingYear int     `json:"accounting_year"`
}

// ClosureBalanceExport is one closed year's aggregate.
type ClosureBalanceExport struct {
	Year        int    `json:"year"`
	Claims      string `json:"claims"`
	Liabilities string `json:"liabilities"`
}

// MemberExport is the membership list shape.
type MemberExport struct {
	Salutation       string  `json:"salutation"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Street           string  `json:"street"`
	Zipcode          string  `json:"zipcode"`
	City             string  `json:"city"`
	MembershipNumber string  `json:"membership_number"`
	JoinedAt         *string `json:"joined_at"`
	TerminatedAt     *string `json:"terminated_at"`
	PaymentMethod    string  `json:"payment_method"`
}

// SubscriptionExport is the dues plan shape.
type SubscriptionExport struct {
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	PaymentFrequency string `json:"payment_frequency"`
}

func (e *Exporter) Accounts(ctx context.Context) (map[string]any, error) {
	list, err := e.accounts.ListAccounts(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]AccountExport, 0, len(list))
	for _, a := range list {
		out = append(out, AccountExport{Number: a.Number, Name: a.Name, AccountType: string(a.Type)})
	}
	return map[string]any{"accounts": out}, nil
}

func (e *Exporter) CostCenters(ctx context.Context) (map[string]any, error) {
	list, err := e.accounts.ListCostCenters(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]DimensionExport, 0, len(list))
	for _, c := range list {
		out = append(out, DimensionExport{Number: c.Number, Name: c.Name, Description: c.Description})
	}
	return map[string]any{"cost_centers": out}, nil
}

func (e *Exporter) CostObjects(ctx context.Context) (map[string]any, error) {
	list, err := e.accounts.ListCostObjects(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]DimensionExport, 0, len(list))
	for _, c := range list {
		out = append(out, DimensionExport{Number: c.Number, Name: c.Name, Description: c.Description})
	}
	return map[string]any{"cost_objects": out}, nil
}

// Transactions exports the active year's ledger with denormalized account
// and dimension names.
func (e *Exporter) Transactions(ctx context.Context) (map[string]any, error) {
	lines, err := e.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	accountIndex, centerIndex, objectIndex, err := e.indexes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionExport, 0, len(lines))
	for _, line := range lines {
		entry := TransactionExport{
			Account:                 accountIndex[line.AccountNumber],
			Date:                    line.Date.Format(exportDateLayout),
			DocumentNumber:          line.DocumentNumber,
			Text:                    line.Text,
			DocumentNumberGenerated: line.DocumentNumberGenerated,
			InternalNumber:          line.InternalNumber,
			Reset:                   line.Reset,
			ClearingNumber:          line.ClearingNumber,
			AccountingYear:          line.AccountingYear,
		}
		if !line.Debit.IsZero() {
			v := line.Debit.String()
			entry.Debit = &v
		}
		if !line.Credit.IsZero() {
			v := line.Credit.String()
			entry.Credit = &v
		}
		if line.CostCenter != nil {
			ref := DimensionRef{Number: *line.CostCenter, Name: centerIndex[*line.CostCenter]}
			entry.CostCenter = &ref
		}
		if line.CostObject != nil {
			ref := DimensionRef{Number: *line.CostObject, Name: objectIndex[*line.CostObject]}
			entry.CostObject = &ref
		}
		out = append(out, entry)
	}
	return map[string]any{"transactions": out}, nil
}

func (e *Exporter) indexes(ctx context.Context) (map[string]AccountExport, map[string]string, map[string]string, error) {
	accountList, err := e.accounts.ListAccounts(ctx, "")
	if err != nil {
		return nil, nil, nil, err
	}
	accountIndex := make(map[string]AccountExport, len(accountList))
	for _, a := range accountList {
		accountIndex[a.Number] = AccountExport{Number: a.Number, Name: a.Name, AccountType: string(a.Type)}
	}
	centers, err := e.accounts.ListCostCenters(ctx, "")
	if err != nil {
		return nil, nil, nil, err
	}
	centerIndex := make(map[string]string, len(centers))
	for _, c := range centers {
		centerIndex[c.Number] = c.Name
	}
	objects, err := e.accounts.ListCostObjects(ctx, "")
	if err != nil {
		return nil, nil, nil, err
	}
	objectIndex := make(map[string]string, len(objects))
	for _, c := range objects {
		objectIndex[c.Number] = c.Name
	}
	return accountIndex, centerIndex, objectIndex, nil
}

func (e *Exporter) ClosureTransactions(ctx context.Context, year int) (map[string]any, error) {
	lines, err := e.closure.Transactions(ctx, year)
	if err != nil {
		return nil, err
	}
	out := make([]ClosureTransactionExport, 0, len(lines))
	for _, line := range lines {
		entry := ClosureTransactionExport{
			AccountNumber:  line.AccountNumber,
			AccountName:    line.AccountName,
			Date:           line.Date.Format(exportDateLayout),
			DocumentNumber: line.DocumentNumber,
			Text:           line.Text,
			CostCenter:     line.CostCenter,
			CostCenterName: line.CostCenterName,
			CostObject:     line.CostObject,
			CostObjectName: line.CostObjectName,
			InternalNumber: line.InternalNumber,
			Reset:          line.Reset,
			ClearingNumber: line.ClearingNumber,
			AccountingYear: line.AccountingYear,
		}
		if !line.Debit.IsZero() {
			v := line.Debit.String()
			entry.Debit = &v
		}
		if !line.Credit.IsZero() {
			v := line.Credit.String()
			entry.Credit = &v
		}
		out = append(out, entry)
	}
	return map[string]any{"closure_transactions": out}, nil
}

func (e *Exporter) ClosureBalances(ctx context.Context) (map[string]any, error) {
	balances, err := e.closure.Balances(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ClosureBalanceExport, 0, len(balances))
	for _, b := range balances {
		out = append(out, ClosureBalanceExport{
			Year:        b.Year,
			Claims:      b.Claims.String(),
			Liabilities: b.Liabilities.String(),
		})
	}
	return map[string]any{"closure_balances": out}, nil
}

func (e *Exporter) Members(ctx context.Context) (map[string]any, error) {
	list, err := e.members.ListMembers(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]MemberExport, 0, len(list))
	for _, m := range list {
		out = append(out, MemberExport{
			Salutation:       string(m.Salutation),
			FirstName:        m.FirstName,
			LastName:         m.LastName,
			Street:           m.Street,
			Zipcode:          m.Zipcode,
			City:             m.City,
			MembershipNumber: m.MembershipNumber,
			JoinedAt:         formatOptionalDate(m.JoinedAt),
			TerminatedAt:     formatOptionalDate(m.TerminatedAt),
			PaymentMethod:    string(m.PaymentMethod),
		})
	}
	return map[string]any{"members": out}, nil
}

func (e *Exporter) Subscriptions(ctx context.Context) (map[string]any, error) {
	list, err := e.members.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SubscriptionExport, 0, len(list))
	for _, s := range list {
		out = append(out, SubscriptionExport{
			Name:             s.Name,
			Amount:           s.Amount.String(),
			PaymentFrequency: string(s.PaymentFrequency),
		})
	}
	return map[string]any{"subscriptions": out}, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(exportDateLayout)
	return &v
}
