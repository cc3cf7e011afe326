package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// draftDateLayout is the wire format for dates inside a stored draft.
const draftDateLayout = "02.01.2006"

// DraftLeg is one leg of an in-progress receipt. Amounts are serialized as
// decimal strings so the scratch record never loses precision.
type DraftLeg struct {
	Account    string `json:"account"`
	Date       string `json:"date"`
	Text       string `json:"text"`
	Debit      string `json:"debit,omitempty"`
	Credit     string `json:"credit,omitempty"`
	CostCenter string `json:"cost_center,omitempty"`
	CostObject string `json:"cost_object,omitempty"`
}

// ReceiptDraft is the scratch state of one editing session. It lives in the
// draft store until the legs balance and the receipt commits, or until the
// session is abandoned or expires.
type ReceiptDraft struct {
	DocumentNumber string     `json:"document_number"`
	Generated      bool       `json:"document_number_generated"`
	Legs           []DraftLeg `json:"legs"`
}

func (d ReceiptDraft) totals() (debit, credit decimal.Decimal, err error) {
	debit, credit = decimal.Zero, decimal.Zero
	for idx, leg := range d.Legs {
		if leg.Debit != "" {
			v, perr := decimal.NewFromString(leg.Debit)
			if perr != nil {
				return decimal.Zero, decimal.Zero, fmt.Errorf("ledger: draft leg %d debit: %w", idx, perr)
			}
			debit = debit.Add(v)
		}
		if leg.Credit != "" {
			v, perr := decimal.NewFromString(leg.Credit)
			if perr != nil {
				return decimal.Zero, decimal.Zero, fmt.Errorf("ledger: draft leg %d credit: %w", idx, perr)
			}
			credit = credit.Add(v)
		}
	}
	return debit, credit, nil
}

// complete reports whether every leg carries an amount. A seeded draft keeps
// its legs amount-less until the user walks through them, so balance alone
// must not trigger a commit.
func (d ReceiptDraft) complete() bool {
	if len(d.Legs) == 0 {
		return false
	}
	for _, leg := range d.Legs {
		if leg.Debit == "" && leg.Credit == "" {
			return false
		}
	}
	return true
}

func draftLegFromInput(in LegInput) DraftLeg {
	leg := DraftLeg{
		Account:    in.AccountNumber,
		Date:       in.Date.Format(draftDateLayout),
		Text:       in.Text,
		CostCenter: in.CostCenter,
		CostObject: in.CostObject,
	}
	if !in.Debit.IsZero() {
		leg.Debit = in.Debit.String()
	}
	if !in.Credit.IsZero() {
		leg.Credit = in.Credit.String()
	}
	return leg
}

// DraftStore keeps receipt drafts in Redis, keyed by an opaque session
// token, each entry expiring after the configured TTL.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftStore constructs a DraftStore.
func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

func draftKey(token string) string {
	return "ledger:draft:" + token
}

// Get loads the draft for a token.
func (s *DraftStore) Get(ctx context.Context, token string) (ReceiptDraft, error) {
	payload, err := s.client.Get(ctx, draftKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ReceiptDraft{}, ErrDraftNotFound
		}
		return ReceiptDraft{}, err
	}
	var draft ReceiptDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return ReceiptDraft{}, fmt.Errorf("ledger: decode draft: %w", err)
	}
	return draft, nil
}

// Put stores the draft, refreshing its TTL.
func (s *DraftStore) Put(ctx context.Context, token string, draft ReceiptDraft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("ledger: encode draft: %w", err)
	}
	return s.client.Set(ctx, draftKey(token), payload, s.ttl).Err()
}

// Delete discards the draft.
func (s *DraftStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, draftKey(token)).Err()
}
