package members

import (
	"context"
	"fmt"
	"time"

	"github.com/clubledger/clubledger/internal/finance/ledger"
	"github.com/clubledger/clubledger/internal/shared"
)

// LedgerPort is the slice of the ledger service dues assessment posts
// through.
type LedgerPort interface {
	Post(ctx context.Context, in ledger.PostingInput) (ledger.Receipt, error)
}

// AuditPort records membership mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DuesConfig names the accounts and cost dimensions dues receipts post to.
type DuesConfig struct {
	IncomeAccount  string
	DebitorAccount string
	CostCenter     string
	CostObject     string
}

// Service implements member and subscription management plus dues
// assessment.
type Service struct {
	repo   Repository
	ledger LedgerPort
	audit  AuditPort
	dues   DuesConfig
	now    func() time.Time
}

func NewService(repo Repository, ledgerPort LedgerPort, audit AuditPort, dues DuesConfig) *Service {
	return &Service{repo: repo, ledger: ledgerPort, audit: audit, dues: dues, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) ListMembers(ctx context.Context, query string) ([]Member, error) {
	return s.repo.ListMembers(ctx, query)
}

func (s *Service) GetMember(ctx context.Context, id int64) (Member, error) {
	return s.repo.GetMember(ctx, id)
}

func (s *Service) CreateMember(ctx context.Context, in MemberInput) (Member, error) {
	if err := in.Validate(); err != nil {
		return Member{}, err
	}
	if err := s.checkSubscription(ctx, in.SubscriptionID); err != nil {
		return Member{}, err
	}
	return s.repo.CreateMember(ctx, in)
}

func (s *Service) UpdateMember(ctx context.Context, id int64, in MemberInput) (Member, error) {
	if err := in.Validate(); err != nil {
		return Member{}, err
	}
	if err := s.checkSubscription(ctx, in.SubscriptionID); err != nil {
		return Member{}, err
	}
	return s.repo.UpdateMember(ctx, id, in)
}

func (s *Service) DeleteMember(ctx context.Context, id int64) error {
	return s.repo.DeleteMember(ctx, id)
}

func (s *Service) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	return s.repo.ListSubscriptions(ctx)
}

func (s *Service) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

func (s *Service) CreateSubscription(ctx context.Context, in SubscriptionInput) (Subscription, error) {
	if err := in.Validate(); err != nil {
		return Subscription{}, err
	}
	return s.repo.CreateSubscription(ctx, in)
}

func (s *Service) UpdateSubscription(ctx context.Context, id int64, in SubscriptionInput) (Subscription, error) {
	if err := in.Validate(); err != nil {
		return Subscription{}, err
	}
	return s.repo.UpdateSubscription(ctx, id, in)
}

func (s *Service) DeleteSubscription(ctx context.Context, id int64) error {
	return s.repo.DeleteSubscription(ctx, id)
}

func (s *Service) checkSubscription(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.repo.GetSubscription(ctx, *id)
	return err
}

// duesText is the assessment marker. Existing lines carrying it on the
// income account count against the member's outstanding assessments, so the
// format must stay stable.
func duesText(m Member) string {
	return fmt.Sprintf("Subscription - %s - %s, %s", m.MembershipNumber, m.LastName, m.FirstName)
}

// outstanding computes how many assessments a member still owes this year,
// given the payment frequency, the current month and the number of dues
// lines already posted.
func outstanding(frequency PaymentFrequency, month time.Month, existing int) int {
	var due int
	switch frequency {
	case FrequencyYearly:
		if existing == 0 {
			return 1
		}
		return 0
	case FrequencyHalfYearly:
		due = 2 - (int(month)-1)/6
	case FrequencyQuarterly:
		due = 4 - (int(month)-1)/3
	case FrequencyMonthly:
		due = 12 - (int(month) - 1)
	}
	if due -= existing; due < 0 {
		return 0
	}
	return due
}

// AssessDues posts one balanced receipt per outstanding assessment for
// every active member with a subscription and a membership number: the
// subscription amount as income credit (carrying the configured cost
// dimensions) against a debitor debit. Members that cannot be assessed are
// reported, not failed.
func (s *Service) AssessDues(ctx context.Context, actorID int64) (AssessmentResult, error) {
	active, err := s.repo.ActiveMembers(ctx)
	if err != nil {
		return AssessmentResult{}, err
	}
	var result AssessmentResult
	for _, entry := range active {
		m := entry.Member
		if m.Terminated() {
			continue
		}
		if entry.Subscription == nil || m.MembershipNumber == "" {
			result.Missed = append(result.Missed,
				fmt.Sprintf("%s - %s, %s", m.MembershipNumber, m.LastName, m.FirstName))
			continue
		}
		text := duesText(m)
		existing, err := s.repo.CountDuesLines(ctx, s.dues.IncomeAccount, text)
		if err != nil {
			return AssessmentResult{}, err
		}
		count := outstanding(entry.Subscription.PaymentFrequency, s.now().Month(), existing)
		for i := 0; i < count; i++ {
			_, perr := s.ledger.Post(ctx, ledger.PostingInput{
				Date:    s.now(),
				Text:    text,
				ActorID: actorID,
				Lines: []ledger.PostingLineInput{
					{
						AccountNumber: s.dues.DebitorAccount,
						Debit:         entry.Subscription.Amount,
					},
					{
						AccountNumber: s.dues.IncomeAccount,
						Credit:        entry.Subscription.Amount,
						CostCenter:    s.dues.CostCenter,
						CostObject:    s.dues.CostObject,
					},
				},
			})
			if perr != nil {
				// One failing member must not abort the whole run.
				result.Missed = append(result.Missed,
					fmt.Sprintf("%s - %s, %s", m.MembershipNumber, m.LastName, m.FirstName))
				break
			}
			result.Posted++
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "members.assess_dues",
			Entity:   shared.EntityAssessment,
			EntityID: s.now().Format("2006-01"),
			Meta: map[string]any{
				"posted": result.Posted,
				"missed": len(result.Missed),
			},
			At: s.now(),
		})
	}
	return result, nil
}
