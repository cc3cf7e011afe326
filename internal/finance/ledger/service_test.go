package ledger

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryLedgerRepo struct {
	lines       []*Transaction
	accounts    map[string]AccountRef
	costCenters map[string]bool
	costObjects map[string]bool
	nextID      int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		accounts:    make(map[string]AccountRef),
		costCenters: make(map[string]bool),
		costObjects: make(map[string]bool),
	}
}

func (r *memoryLedgerRepo) addAccount(number, name, accountType string) {
	r.accounts[number] = AccountRef{Number: number, Name: name, Type: accountType}
}

func (r *memoryLedgerRepo) List(ctx context.Context, year int) ([]Transaction, error) {
	var out []Transaction
	for _, line := range r.lines {
		if line.AccountingYear == year {
			out = append(out, *line)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) LinesByInternalNumber(ctx context.Context, internalNumber int64) ([]Transaction, error) {
	var out []Transaction
	for _, line := range r.lines {
		if line.InternalNumber == internalNumber {
			out = append(out, *line)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) LookupAccount(ctx context.Context, number string) (AccountRef, error) {
	ref, ok := r.accounts[number]
	if !ok {
		return AccountRef{}, ErrAccountNotFound
	}
	return ref, nil
}

func (r *memoryLedgerRepo) CostCenterExists(ctx context.Context, number string) (bool, error) {
	return r.costCenters[number], nil
}

func (r *memoryLedgerRepo) CostObjectExists(ctx context.Context, number string) (bool, error) {
	return r.costObjects[number], nil
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryLedgerRepo) LockLedger(ctx context.Context) error { return nil }

func (r *memoryLedgerRepo) MaxDocumentSeq(ctx context.Context, year int, resetPrefix string) (int64, error) {
	yearPrefix := documentYearPrefix(year)
	var max int64
	for _, line := range r.lines {
		if !line.DocumentNumberGenerated || line.AccountingYear != year {
			continue
		}
		if strings.HasPrefix(line.DocumentNumber, resetPrefix) {
			continue
		}
		if !strings.HasPrefix(line.DocumentNumber, yearPrefix) {
			continue
		}
		seq, err := strconv.ParseInt(line.DocumentNumber[len(yearPrefix):], 10, 64)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

func (r *memoryLedgerRepo) MaxInternalNumber(ctx context.Context) (int64, error) {
	var max int64
	for _, line := range r.lines {
		if line.InternalNumber > max {
			max = line.InternalNumber
		}
	}
	return max, nil
}

func (r *memoryLedgerRepo) MaxClearingNumber(ctx context.Context) (int64, error) {
	var max int64
	for _, line := range r.lines {
		if line.ClearingNumber != nil && *line.ClearingNumber > max {
			max = *line.ClearingNumber
		}
	}
	return max, nil
}

func (r *memoryLedgerRepo) InsertLines(ctx context.Context, lines []Transaction) ([]Transaction, error) {
	inserted := make([]Transaction, 0, len(lines))
	for _, line := range lines {
		r.nextID++
		line.ID = r.nextID
		line.CreatedAt = time.Now()
		stored := line
		r.lines = append(r.lines, &stored)
		inserted = append(inserted, line)
	}
	return inserted, nil
}

func (r *memoryLedgerRepo) MarkReset(ctx context.Context, internalNumber int64) error {
	found := false
	for _, line := range r.lines {
		if line.InternalNumber == internalNumber {
			line.Reset = true
			found = true
		}
	}
	if !found {
		return ErrReceiptNotFound
	}
	return nil
}

func (r *memoryLedgerRepo) SetClearingNumber(ctx context.Context, ids []int64, clearingNumber int64) (int64, error) {
	var rows int64
	for _, id := range ids {
		for _, line := range r.lines {
			if line.ID == id {
				n := clearingNumber
				line.ClearingNumber = &n
				rows++
			}
		}
	}
	return rows, nil
}

func (r *memoryLedgerRepo) ClearClearingNumber(ctx context.Context, clearingNumber int64) (int64, error) {
	var rows int64
	for _, line := range r.lines {
		if line.ClearingNumber != nil && *line.ClearingNumber == clearingNumber {
			line.ClearingNumber = nil
			rows++
		}
	}
	return rows, nil
}

func newTestService(t *testing.T) (*Service, *memoryLedgerRepo, *DraftStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	drafts := NewDraftStore(client, time.Hour)

	repo := newMemoryLedgerRepo()
	repo.addAccount("10000", "Members receivable", "debitor")
	repo.addAccount("70000", "Suppliers payable", "creditor")
	repo.addAccount("4000", "Subscription income", "income")
	repo.costCenters["101"] = true
	repo.costObjects["201"] = true

	svc := NewService(repo, drafts, nil, Settings{AccountingYear: 2025, ResetPrefix: "R"})
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) })
	return svc, repo, drafts
}

func mustDecimal(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func entryDate() time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
}

func TestAccumulatorEndToEnd(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddLeg(ctx, "", -1, LegInput{
		AccountNumber: "10000",
		Date:          entryDate(),
		Text:          "Spring fair deposit",
		Debit:         mustDecimal(t, "123.45"),
	})
	require.NoError(t, err)
	require.Equal(t, DraftStateAccumulating, first.State)
	require.NotEmpty(t, first.Token)
	require.Empty(t, repo.lines, "no partial receipt may reach storage")
	require.NotNil(t, first.Suggestion)
	require.Equal(t, "2500001", first.Suggestion.DocumentNumber)
	require.Equal(t, "123.45", first.Suggestion.Credit.String())
	require.True(t, first.Suggestion.Debit.IsZero())

	second, err := svc.AddLeg(ctx, first.Token, -1, LegInput{
		AccountNumber: "70000",
		Date:          entryDate(),
		Text:          "Spring fair deposit",
		Credit:        mustDecimal(t, "123.45"),
	})
	require.NoError(t, err)
	require.Equal(t, DraftStateCommitted, second.State)
	require.NotNil(t, second.Receipt)
	require.Equal(t, "2500001", second.Receipt.DocumentNumber)
	require.Equal(t, int64(1), second.Receipt.InternalNumber)
	require.Len(t, second.Receipt.Lines, 2)
	require.True(t, second.Receipt.DebitTotal().Equal(second.Receipt.CreditTotal()))

	// The draft is gone: the token can no longer be driven.
	_, err = svc.AddLeg(ctx, second.Token, -1, LegInput{
		AccountNumber: "10000",
		Date:          entryDate(),
		Text:          "late leg",
		Debit:         mustDecimal(t, "1"),
	})
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestAccumulatorRandomLegsNeverCommitImbalanced(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	token := ""
	total := decimal.Zero
	for i := 0; i < 5; i++ {
		amount := decimal.NewFromInt(int64(rng.Intn(9000) + 1)).Div(decimal.NewFromInt(100))
		total = total.Add(amount)
		result, err := svc.AddLeg(ctx, token, -1, LegInput{
			AccountNumber: "4000",
			Date:          entryDate(),
			Text:          "random legs",
			Debit:         amount,
		})
		require.NoError(t, err)
		require.Equal(t, DraftStateAccumulating, result.State)
		require.Empty(t, repo.lines)
		token = result.Token
		require.Equal(t, total.Sub(result.CreditTotal).String(), result.Suggestion.Credit.String())
	}

	final, err := svc.AddLeg(ctx, token, -1, LegInput{
		AccountNumber: "70000",
		Date:          entryDate(),
		Text:          "random legs",
		Credit:        total,
	})
	require.NoError(t, err)
	require.Equal(t, DraftStateCommitted, final.State)
	require.True(t, final.Receipt.DebitTotal().Equal(final.Receipt.CreditTotal()))
	require.Len(t, repo.lines, 6)
}

func TestDocumentNumbersStrictlyIncrease(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var previous int64
	for i := 0; i < 5; i++ {
		receipt, err := svc.Post(ctx, PostingInput{
			Date: entryDate(),
			Text: "sequence check",
			Lines: []PostingLineInput{
				{AccountNumber: "10000", Debit: mustDecimal(t, "10")},
				{AccountNumber: "4000", Credit: mustDecimal(t, "10")},
			},
		})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(receipt.DocumentNumber, "25"))
		seq, err := strconv.ParseInt(receipt.DocumentNumber[2:], 10, 64)
		require.NoError(t, err)
		require.Greater(t, seq, previous)
		previous = seq
	}
}

func TestManualDocumentNumberExcludedFromSequence(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostingInput{
		Date:           entryDate(),
		DocumentNumber: "2599999",
		Text:           "manual number",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "5")},
			{AccountNumber: "4000", Credit: mustDecimal(t, "5")},
		},
	})
	require.NoError(t, err)

	receipt, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "generated number",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "5")},
			{AccountNumber: "4000", Credit: mustDecimal(t, "5")},
		},
	})
	require.NoError(t, err)
	// Manually entered numbers do not feed the counter.
	require.Equal(t, "2500001", receipt.DocumentNumber)
}

func TestResetMirrorsExactly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	original, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "to be reset",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "10")},
			{AccountNumber: "70000", Credit: mustDecimal(t, "10")},
		},
	})
	require.NoError(t, err)

	mirror, err := svc.Reset(ctx, original.InternalNumber, 1)
	require.NoError(t, err)
	require.NotEqual(t, original.InternalNumber, mirror.InternalNumber)
	require.Equal(t, "R"+original.DocumentNumber, mirror.DocumentNumber)
	require.Len(t, mirror.Lines, 2)

	require.Equal(t, "10000", mirror.Lines[0].AccountNumber)
	require.True(t, mirror.Lines[0].Debit.IsZero())
	require.Equal(t, "10", mirror.Lines[0].Credit.String())
	require.Equal(t, "70000", mirror.Lines[1].AccountNumber)
	require.Equal(t, "10", mirror.Lines[1].Debit.String())
	require.True(t, mirror.Lines[1].Credit.IsZero())
	for _, line := range mirror.Lines {
		require.True(t, line.Reset)
		require.Equal(t, mirror.InternalNumber, line.InternalNumber)
	}

	originals, err := repo.LinesByInternalNumber(ctx, original.InternalNumber)
	require.NoError(t, err)
	for i, line := range originals {
		require.True(t, line.Reset)
		require.Equal(t, original.Lines[i].Debit.String(), line.Debit.String())
		require.Equal(t, original.Lines[i].Credit.String(), line.Credit.String())
		require.Equal(t, original.DocumentNumber, line.DocumentNumber)
	}
}

func TestResetRejectsWhenAlreadyReset(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "reset twice",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "7")},
			{AccountNumber: "70000", Credit: mustDecimal(t, "7")},
		},
	})
	require.NoError(t, err)

	_, err = svc.Reset(ctx, receipt.InternalNumber, 1)
	require.NoError(t, err)
	before := len(repo.lines)

	_, err = svc.Reset(ctx, receipt.InternalNumber, 1)
	require.ErrorIs(t, err, ErrAlreadyReset)
	require.Len(t, repo.lines, before, "second reset must not create rows")
}

func TestResetRejectsClearedLines(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "cleared receipt",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "9")},
			{AccountNumber: "70000", Credit: mustDecimal(t, "9")},
		},
	})
	require.NoError(t, err)

	five := int64(5)
	repo.lines[0].ClearingNumber = &five
	before := len(repo.lines)

	_, err = svc.Reset(ctx, receipt.InternalNumber, 1)
	require.ErrorIs(t, err, ErrAlreadyCleared)
	require.Len(t, repo.lines, before)
	for _, line := range repo.lines {
		require.False(t, line.Reset)
	}
}

func TestResetOfResetAndClearedReceiptReportsAlreadyReset(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "reset then cleared",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "11")},
			{AccountNumber: "70000", Credit: mustDecimal(t, "11")},
		},
	})
	require.NoError(t, err)

	_, err = svc.Reset(ctx, receipt.InternalNumber, 1)
	require.NoError(t, err)

	nine := int64(9)
	for _, line := range repo.lines {
		if line.InternalNumber == receipt.InternalNumber {
			line.ClearingNumber = &nine
		}
	}
	before := len(repo.lines)

	_, err = svc.Reset(ctx, receipt.InternalNumber, 1)
	require.ErrorIs(t, err, ErrAlreadyReset, "already-reset wins over cleared")
	require.Len(t, repo.lines, before)
}

func TestClearingRoundTrip(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "settle",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "30")},
			{AccountNumber: "70000", Credit: mustDecimal(t, "30")},
		},
	})
	require.NoError(t, err)

	ids := []int64{receipt.Lines[0].ID, receipt.Lines[1].ID}
	first, err := svc.Clear(ctx, ids, 1)
	require.NoError(t, err)
	for _, line := range repo.lines {
		require.NotNil(t, line.ClearingNumber)
		require.Equal(t, first, *line.ClearingNumber)
	}

	require.NoError(t, svc.ResetClearing(ctx, first, 1))
	for _, line := range repo.lines {
		require.Nil(t, line.ClearingNumber)
	}

	// Re-clearing is not a no-op: a fresh number is allocated.
	second, err := svc.Clear(ctx, ids, 1)
	require.NoError(t, err)
	require.NotZero(t, second)

	require.ErrorIs(t, svc.ResetClearing(ctx, 9999, 1), ErrClearingNotFound)
}

func TestClearRejectsUnknownLine(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Clear(context.Background(), []int64{12345}, 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestLaterLegDocumentNumberIsForced(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddLeg(ctx, "", -1, LegInput{
		AccountNumber:  "10000",
		Date:           entryDate(),
		DocumentNumber: "CUSTOM-1",
		Text:           "forced number",
		Debit:          mustDecimal(t, "20"),
	})
	require.NoError(t, err)

	second, err := svc.AddLeg(ctx, first.Token, -1, LegInput{
		AccountNumber:  "70000",
		Date:           entryDate(),
		DocumentNumber: "CUSTOM-2",
		Text:           "forced number",
		Credit:         mustDecimal(t, "20"),
	})
	require.NoError(t, err)
	require.Equal(t, DraftStateCommitted, second.State)
	for _, line := range second.Receipt.Lines {
		require.Equal(t, "CUSTOM-1", line.DocumentNumber)
		require.False(t, line.DocumentNumberGenerated)
	}
}

func TestAddLegUnknownReferences(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddLeg(ctx, "", -1, LegInput{
		AccountNumber: "99999",
		Date:          entryDate(),
		Text:          "missing account",
		Debit:         mustDecimal(t, "1"),
	})
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.AddLeg(ctx, "", -1, LegInput{
		AccountNumber: "10000",
		Date:          entryDate(),
		Text:          "missing cost center",
		Debit:         mustDecimal(t, "1"),
		CostCenter:    "404",
	})
	require.ErrorIs(t, err, ErrCostCenterNotFound)
}

func TestResetAndReenterSeedsDraft(t *testing.T) {
	svc, _, drafts := newTestService(t)
	ctx := context.Background()

	cc := "101"
	receipt, err := svc.Post(ctx, PostingInput{
		Date: entryDate(),
		Text: "wrong amounts",
		Lines: []PostingLineInput{
			{AccountNumber: "10000", Debit: mustDecimal(t, "50"), CostCenter: cc},
			{AccountNumber: "70000", Credit: mustDecimal(t, "50")},
		},
	})
	require.NoError(t, err)

	mirror, token, err := svc.ResetAndReenter(ctx, receipt.InternalNumber, 1)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "R"+receipt.DocumentNumber, mirror.DocumentNumber)

	draft, err := drafts.Get(ctx, token)
	require.NoError(t, err)
	require.Len(t, draft.Legs, 2)
	require.Equal(t, "10000", draft.Legs[0].Account)
	require.Equal(t, "101", draft.Legs[0].CostCenter)
	require.Empty(t, draft.Legs[0].Debit)
	require.Empty(t, draft.Legs[0].Credit)
	require.True(t, draft.Generated)

	// Walk the seeded legs with corrected amounts through the normal flow.
	step0 := 0
	result, err := svc.AddLeg(ctx, token, step0, LegInput{
		AccountNumber: "10000",
		Date:          entryDate(),
		Text:          "wrong amounts",
		Debit:         mustDecimal(t, "55"),
		CostCenter:    cc,
	})
	require.NoError(t, err)
	require.Equal(t, DraftStateAccumulating, result.State)

	final, err := svc.AddLeg(ctx, token, 1, LegInput{
		AccountNumber: "70000",
		Date:          entryDate(),
		Text:          "wrong amounts",
		Credit:        mustDecimal(t, "55"),
	})
	require.NoError(t, err)
	require.Equal(t, DraftStateCommitted, final.State)
	require.True(t, final.Receipt.DebitTotal().Equal(final.Receipt.CreditTotal()))
}

func TestAbandonDiscardsDraft(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.AddLeg(ctx, "", -1, LegInput{
		AccountNumber: "10000",
		Date:          entryDate(),
		Text:          "abandoned",
		Debit:         mustDecimal(t, "12"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Abandon(ctx, result.Token))
	require.ErrorIs(t, svc.Abandon(ctx, result.Token), ErrDraftNotFound)
	require.Empty(t, repo.lines)
}

type failingDeleteDrafts struct {
	Drafts
}

func (failingDeleteDrafts) Delete(ctx context.Context, token string) error {
	return errors.New("connection lost")
}

func TestCommitSurvivesDraftCleanupFailure(t *testing.T) {
	svc, repo, drafts := newTestService(t)
	svc.drafts = failingDeleteDrafts{Drafts: drafts}
	ctx := context.Background()

	first, err := svc.AddLeg(ctx, "", -1, LegInput{
		AccountNumber: "10000",
		Date:          entryDate(),
		Text:          "cleanup failure",
		Debit:         mustDecimal(t, "42"),
	})
	require.NoError(t, err)

	second, err := svc.AddLeg(ctx, first.Token, -1, LegInput{
		AccountNumber: "70000",
		Date:          entryDate(),
		Text:          "cleanup failure",
		Credit:        mustDecimal(t, "42"),
	})
	require.NoError(t, err, "the receipt is committed; losing the cleanup must not fail the call")
	require.Equal(t, DraftStateCommitted, second.State)
	require.NotNil(t, second.Receipt)
	require.Len(t, repo.lines, 2)
}
