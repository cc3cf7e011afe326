package members

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clubledger/clubledger/internal/finance/ledger"
)

type memoryMembersRepo struct {
	active    []MemberWithSubscription
	duesLines map[string]int
}

func (r *memoryMembersRepo) ListMembers(ctx context.Context, query string) ([]Member, error) {
	return nil, nil
}
func (r *memoryMembersRepo) GetMember(ctx context.Context, id int64) (Member, error) {
	return Member{}, ErrNotFound
}
func (r *memoryMembersRepo) CreateMember(ctx context.Context, in MemberInput) (Member, error) {
	return Member{ID: 1, FirstName: in.FirstName, LastName: in.LastName}, nil
}
func (r *memoryMembersRepo) UpdateMember(ctx context.Context, id int64, in MemberInput) (Member, error) {
	return Member{}, ErrNotFound
}
func (r *memoryMembersRepo) DeleteMember(ctx context.Context, id int64) error { return ErrNotFound }
func (r *memoryMembersRepo) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	return nil, nil
}
func (r *memoryMembersRepo) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	return Subscription{}, ErrNotFound
}
func (r *memoryMembersRepo) CreateSubscription(ctx context.Context, in SubscriptionInput) (Subscription, error) {
	return Subscription{ID: 1, Name: in.Name, Amount: in.Amount, PaymentFrequency: in.PaymentFrequency}, nil
}
func (r *memoryMembersRepo) UpdateSubscription(ctx context.Context, id int64, in SubscriptionInput) (Subscription, error) {
	return Subscription{}, ErrNotFound
}
func (r *memoryMembersRepo) DeleteSubscription(ctx context.Context, id int64) error {
	return ErrNotFound
}
func (r *memoryMembersRepo) ActiveMembers(ctx context.Context) ([]MemberWithSubscription, error) {
	return r.active, nil
}
func (r *memoryMembersRepo) CountDuesLines(ctx context.Context, incomeAccount, text string) (int, error) {
	return r.duesLines[text], nil
}

type recordingLedger struct {
	posted []ledger.PostingInput
}

func (l *recordingLedger) Post(ctx context.Context, in ledger.PostingInput) (ledger.Receipt, error) {
	l.posted = append(l.posted, in)
	return ledger.Receipt{DocumentNumber: "2500001", InternalNumber: int64(len(l.posted))}, nil
}

func amount(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func activeMember(membershipNumber string, sub *Subscription) MemberWithSubscription {
	return MemberWithSubscription{
		Member: Member{
			FirstName:        "Ines",
			LastName:         "Vogel",
			MembershipNumber: membershipNumber,
		},
		Subscription: sub,
	}
}

func duesService(repo *memoryMembersRepo, port LedgerPort, month time.Month) *Service {
	svc := NewService(repo, port, nil, DuesConfig{
		IncomeAccount:  "4000",
		DebitorAccount: "10000",
		CostCenter:     "101",
		CostObject:     "201",
	})
	svc.WithNow(func() time.Time {
		return time.Date(2025, month, 15, 9, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestOutstandingPerFrequency(t *testing.T) {
	cases := []struct {
		frequency PaymentFrequency
		month     time.Month
		existing  int
		want      int
	}{
		{FrequencyYearly, time.March, 0, 1},
		{FrequencyYearly, time.March, 1, 0},
		{FrequencyHalfYearly, time.March, 0, 2},
		{FrequencyHalfYearly, time.August, 1, 0},
		{FrequencyQuarterly, time.July, 1, 1},
		{FrequencyMonthly, time.January, 0, 12},
		{FrequencyMonthly, time.December, 0, 1},
		{FrequencyMonthly, time.December, 12, 0},
	}
	for _, tc := range cases {
		got := outstanding(tc.frequency, tc.month, tc.existing)
		require.Equal(t, tc.want, got, "%s month=%d existing=%d", tc.frequency, tc.month, tc.existing)
	}
}

func TestAssessDuesPostsBalancedReceipts(t *testing.T) {
	sub := &Subscription{ID: 1, Name: "Standard", Amount: amount(t, "25.50"), PaymentFrequency: FrequencyQuarterly}
	repo := &memoryMembersRepo{
		active:    []MemberWithSubscription{activeMember("M-7", sub)},
		duesLines: map[string]int{},
	}
	port := &recordingLedger{}
	svc := duesService(repo, port, time.May)

	result, err := svc.AssessDues(context.Background(), 1)
	require.NoError(t, err)
	// May sits in the second quarter: three quarterly assessments left.
	require.Equal(t, 3, result.Posted)
	require.Empty(t, result.Missed)
	require.Len(t, port.posted, 3)

	posting := port.posted[0]
	require.Equal(t, "Subscription - M-7 - Vogel, Ines", posting.Text)
	require.Len(t, posting.Lines, 2)
	require.Equal(t, "10000", posting.Lines[0].AccountNumber)
	require.Equal(t, "25.5", posting.Lines[0].Debit.String())
	require.Equal(t, "4000", posting.Lines[1].AccountNumber)
	require.Equal(t, "25.5", posting.Lines[1].Credit.String())
	require.Equal(t, "101", posting.Lines[1].CostCenter)
	require.Equal(t, "201", posting.Lines[1].CostObject)
	require.Empty(t, posting.Lines[0].CostCenter)
}

func TestAssessDuesCountsExistingLines(t *testing.T) {
	sub := &Subscription{ID: 1, Name: "Standard", Amount: amount(t, "10"), PaymentFrequency: FrequencyYearly}
	repo := &memoryMembersRepo{
		active: []MemberWithSubscription{activeMember("M-7", sub)},
		duesLines: map[string]int{
			"Subscription - M-7 - Vogel, Ines": 1,
		},
	}
	port := &recordingLedger{}
	svc := duesService(repo, port, time.March)

	result, err := svc.AssessDues(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, result.Posted)
	require.Empty(t, port.posted)
}

func TestAssessDuesSkipsTerminatedMembers(t *testing.T) {
	sub := &Subscription{ID: 1, Name: "Standard", Amount: amount(t, "10"), PaymentFrequency: FrequencyYearly}
	terminated := activeMember("M-9", sub)
	past := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	terminated.Member.TerminatedAt = &past
	repo := &memoryMembersRepo{
		active:    []MemberWithSubscription{terminated},
		duesLines: map[string]int{},
	}
	port := &recordingLedger{}
	svc := duesService(repo, port, time.March)

	result, err := svc.AssessDues(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, result.Posted)
	require.Empty(t, result.Missed)
	require.Empty(t, port.posted)
}

type failingLedger struct {
	recordingLedger
	failText string
}

func (l *failingLedger) Post(ctx context.Context, in ledger.PostingInput) (ledger.Receipt, error) {
	if in.Text == l.failText {
		return ledger.Receipt{}, ledger.ErrUnbalanced
	}
	return l.recordingLedger.Post(ctx, in)
}

func TestAssessDuesContinuesPastPostingFailure(t *testing.T) {
	sub := &Subscription{ID: 1, Name: "Standard", Amount: amount(t, "10"), PaymentFrequency: FrequencyYearly}
	repo := &memoryMembersRepo{
		active: []MemberWithSubscription{
			activeMember("M-1", sub),
			activeMember("M-2", sub),
		},
		duesLines: map[string]int{},
	}
	port := &failingLedger{failText: "Subscription - M-1 - Vogel, Ines"}
	svc := duesService(repo, port, time.March)

	result, err := svc.AssessDues(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.Posted)
	require.Len(t, result.Missed, 1)
	require.Contains(t, result.Missed[0], "M-1")
}

func TestAssessDuesReportsMissedMembers(t *testing.T) {
	sub := &Subscription{ID: 1, Name: "Standard", Amount: amount(t, "10"), PaymentFrequency: FrequencyYearly}
	repo := &memoryMembersRepo{
		active: []MemberWithSubscription{
			activeMember("", sub),     // no membership number
			activeMember("M-9", nil),  // no subscription
			activeMember("M-10", sub), // assessable
		},
		duesLines: map[string]int{},
	}
	port := &recordingLedger{}
	svc := duesService(repo, port, time.March)

	result, err := svc.AssessDues(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.Posted)
	require.Len(t, result.Missed, 2)
	require.Contains(t, result.Missed[1], "M-9")
}
