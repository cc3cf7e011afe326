package members

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists members and subscriptions.
type Repository interface {
	ListMembers(ctx context.Context, query string) ([]Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	CreateMember(ctx context.Context, in MemberInput) (Member, error)
	UpdateMember(ctx context.Context, id int64, in MemberInput) (Member, error)
	DeleteMember(ctx context.Context, id int64) error

	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscription(ctx context.Context, id int64) (Subscription, error)
	CreateSubscription(ctx context.Context, in SubscriptionInput) (Subscription, error)
	UpdateSubscription(ctx context.Context, id int64, in SubscriptionInput) (Subscription, error)
	DeleteSubscription(ctx context.Context, id int64) error

	// ActiveMembers returns every non-terminated member joined with its
	// subscription, for dues assessment.
	ActiveMembers(ctx context.Context) ([]MemberWithSubscription, error)
	// CountDuesLines counts existing ledger lines on the dues income account
	// carrying the member's assessment text.
	CountDuesLines(ctx context.Context, incomeAccount, text string) (int, error)
}

// MemberWithSubscription pairs a member with its resolved subscription, if
// any.
type MemberWithSubscription struct {
	Member       Member
	Subscription *Subscription
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const memberColumns = `id, salutation, first_name, last_name, street, zipcode, city,
birthday, phone, mobile, email, membership_number, joined_at, terminated_at,
payment_method, iban, bic, debit_mandate_at, debit_reference, subscription_id,
created_at, updated_at`

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.Salutation, &m.FirstName, &m.LastName, &m.Street, &m.Zipcode,
		&m.City, &m.Birthday, &m.Phone, &m.Mobile, &m.Email, &m.MembershipNumber,
		&m.JoinedAt, &m.TerminatedAt, &m.PaymentMethod, &m.IBAN, &m.BIC,
		&m.DebitMandateAt, &m.DebitReference, &m.SubscriptionID, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrInUse
	}
	return err
}

func (r *repository) ListMembers(ctx context.Context, query string) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members
WHERE $1 = '' OR last_name ILIKE '%'||$1||'%' OR first_name ILIKE '%'||$1||'%'
	OR membership_number ILIKE '%'||$1||'%'
ORDER BY last_name, first_name`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) GetMember(ctx context.Context, id int64) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		return Member{}, mapErr(err)
	}
	return m, nil
}

func (r *repository) CreateMember(ctx context.Context, in MemberInput) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `
INSERT INTO members (salutation, first_name, last_name, street, zipcode, city, birthday,
	phone, mobile, email, membership_number, joined_at, terminated_at, payment_method,
	iban, bic, debit_mandate_at, debit_reference, subscription_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now(),now())
RETURNING `+memberColumns,
		in.Salutation, in.FirstName, in.LastName, in.Street, in.Zipcode, in.City, in.Birthday,
		in.Phone, in.Mobile, in.Email, in.MembershipNumber, in.JoinedAt, in.TerminatedAt,
		in.PaymentMethod, in.IBAN, in.BIC, in.DebitMandateAt, in.DebitReference, in.SubscriptionID))
	if err != nil {
		return Member{}, mapErr(err)
	}
	return m, nil
}

func (r *repository) UpdateMember(ctx context.Context, id int64, in MemberInput) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `
UPDATE members SET salutation=$2, first_name=$3, last_name=$4, street=$5, zipcode=$6,
	city=$7, birthday=$8, phone=$9, mobile=$10, email=$11, membership_number=$12,
	joined_at=$13, terminated_at=$14, payment_method=$15, iban=$16, bic=$17,
	debit_mandate_at=$18, debit_reference=$19, subscription_id=$20, updated_at=now()
WHERE id = $1
RETURNING `+memberColumns,
		id, in.Salutation, in.FirstName, in.LastName, in.Street, in.Zipcode, in.City,
		in.Birthday, in.Phone, in.Mobile, in.Email, in.MembershipNumber, in.JoinedAt,
		in.TerminatedAt, in.PaymentMethod, in.IBAN, in.BIC, in.DebitMandateAt,
		in.DebitReference, in.SubscriptionID))
	if err != nil {
		return Member{}, mapErr(err)
	}
	return m, nil
}

func (r *repository) DeleteMember(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, amount, payment_frequency, created_at, updated_at
FROM subscriptions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.Name, &s.Amount, &s.PaymentFrequency, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	var s Subscription
	err := r.pool.QueryRow(ctx, `SELECT id, name, amount, payment_frequency, created_at, updated_at
FROM subscriptions WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Amount, &s.PaymentFrequency, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	return s, nil
}

func (r *repository) CreateSubscription(ctx context.Context, in SubscriptionInput) (Subscription, error) {
	var s Subscription
	err := r.pool.QueryRow(ctx, `
INSERT INTO subscriptions (name, amount, payment_frequency, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
RETURNING id, name, amount, payment_frequency, created_at, updated_at`,
		in.Name, in.Amount, in.PaymentFrequency).
		Scan(&s.ID, &s.Name, &s.Amount, &s.PaymentFrequency, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	return s, nil
}

func (r *repository) UpdateSubscription(ctx context.Context, id int64, in SubscriptionInput) (Subscription, error) {
	var s Subscription
	err := r.pool.QueryRow(ctx, `
UPDATE subscriptions SET name=$2, amount=$3, payment_frequency=$4, updated_at=now()
WHERE id = $1
RETURNING id, name, amount, payment_frequency, created_at, updated_at`,
		id, in.Name, in.Amount, in.PaymentFrequency).
		Scan(&s.ID, &s.Name, &s.Amount, &s.PaymentFrequency, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	return s, nil
}

func (r *repository) DeleteSubscription(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ActiveMembers(ctx context.Context) ([]MemberWithSubscription, error) {
	rows, err := r.pool.Query(ctx, `
SELECT m.id, m.salutation, m.first_name, m.last_name, m.street, m.zipcode, m.city,
	m.birthday, m.phone, m.mobile, m.email, m.membership_number, m.joined_at,
	m.terminated_at, m.payment_method, m.iban, m.bic, m.debit_mandate_at,
	m.debit_reference, m.subscription_id, m.created_at, m.updated_at,
	s.id, s.name, s.amount::text, s.payment_frequency, s.created_at, s.updated_at
FROM members m
LEFT JOIN subscriptions s ON s.id = m.subscription_id
WHERE m.terminated_at IS NULL
ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemberWithSubscription
	for rows.Next() {
		var m Member
		var subID *int64
		var subName *string
		var subAmount *string
		var subFrequency *PaymentFrequency
		var subCreated, subUpdated *time.Time
		err := rows.Scan(&m.ID, &m.Salutation, &m.FirstName, &m.LastName, &m.Street, &m.Zipcode,
			&m.City, &m.Birthday, &m.Phone, &m.Mobile, &m.Email, &m.MembershipNumber,
			&m.JoinedAt, &m.TerminatedAt, &m.PaymentMethod, &m.IBAN, &m.BIC,
			&m.DebitMandateAt, &m.DebitReference, &m.SubscriptionID, &m.CreatedAt, &m.UpdatedAt,
			&subID, &subName, &subAmount, &subFrequency, &subCreated, &subUpdated)
		if err != nil {
			return nil, err
		}
		entry := MemberWithSubscription{Member: m}
		if subID != nil {
			amount, err := decimal.NewFromString(*subAmount)
			if err != nil {
				return nil, err
			}
			entry.Subscription = &Subscription{
				ID:               *subID,
				Name:             *subName,
				Amount:           amount,
				PaymentFrequency: *subFrequency,
				CreatedAt:        *subCreated,
				UpdatedAt:        *subUpdated,
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *repository) CountDuesLines(ctx context.Context, incomeAccount, text string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions
WHERE account_number = $1 AND text = $2`, incomeAccount, text).Scan(&count)
	return count, err
}
