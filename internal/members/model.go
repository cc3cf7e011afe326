package members

import (
	"time"

	"github.com/shopspring/decimal"
)

// Salutation values.
type Salutation string

const (
	SalutationMr  Salutation = "MR"
	SalutationMrs Salutation = "MRS"
)

// PaymentMethod values.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentRemittance PaymentMethod = "remittance"
	PaymentDebit      PaymentMethod = "debit"
)

// PaymentFrequency values of a subscription.
type PaymentFrequency string

const (
	FrequencyYearly     PaymentFrequency = "yearly"
	FrequencyHalfYearly PaymentFrequency = "half-yearly"
	FrequencyQuarterly  PaymentFrequency = "quarterly"
	FrequencyMonthly    PaymentFrequency = "monthly"
)

// Member is one club member. Contact and banking fields are optional; the
// membership number is what dues postings reference.
type Member struct {
	ID               int64
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
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Terminated reports whether the membership has ended.
func (m Member) Terminated() bool {
	return m.TerminatedAt != nil
}

// FullName is "first last".
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Subscription is a dues plan members can be assigned to.
type Subscription struct {
	ID               int64
	Name             string
	Amount           decimal.Decimal
	PaymentFrequency PaymentFrequency
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
