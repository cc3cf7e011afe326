package members

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MemberInput carries the writable fields of a member.
type MemberInput struct {
	Salutation       Salutation
	FirstName        string
	LastName         string
	Street           string
	Zipcode          string
	City             string
	Birthday         *time.Time
	Phone            string
	Mobile           string
	Email            string
	MembershipNumber string
	JoinedAt         *time.Time
	TerminatedAt     *time.Time
	PaymentMethod    PaymentMethod
	IBAN             string
	BIC              string
	DebitMandateAt   *time.Time
	DebitReference   string
	SubscriptionID   *int64
}

func (in MemberInput) Validate() error {
	if in.FirstName == "" || in.LastName == "" {
		return fmt.Errorf("%w: first and last name required", ErrValidation)
	}
	switch in.Salutation {
	case SalutationMr, SalutationMrs:
	default:
		return fmt.Errorf("%w: unknown salutation %q", ErrValidation, in.Salutation)
	}
	switch in.PaymentMethod {
	case PaymentCash, PaymentRemittance, PaymentDebit:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	return nil
}

// SubscriptionInput carries the writable fields of a subscription.
type SubscriptionInput struct {
	Name             string
	Amount           decimal.Decimal
	PaymentFrequency PaymentFrequency
}

func (in SubscriptionInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	switch in.PaymentFrequency {
	case FrequencyYearly, FrequencyHalfYearly, FrequencyQuarterly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: unknown payment frequency %q", ErrValidation, in.PaymentFrequency)
	}
	return nil
}

// AssessmentResult reports a dues assessment run: how many receipts were
// posted and which members could not be assessed.
type AssessmentResult struct {
	Posted int
	Missed []string
}
