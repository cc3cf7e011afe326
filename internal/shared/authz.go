package shared

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Capabilities gate every mutating operation. Handlers receive an
// Authorizer and check the capability before calling into a service.
const (
	CapFinanceView  = "finance.view"
	CapFinancePost  = "finance.post"
	CapFinanceReset = "finance.reset"
	CapFinanceClear = "finance.clear"
	CapFinanceClose = "finance.close"

	CapMembersView = "members.view"
	CapMembersEdit = "members.edit"

	CapTasksRun    = "tasks.run"
	CapReportsView = "reports.view"
)

// FinanceScopes lists all finance capabilities.
func FinanceScopes() []string {
	return []string{
		CapFinanceView,
		CapFinancePost,
		CapFinanceReset,
		CapFinanceClear,
		CapFinanceClose,
	}
}

// Authorizer answers whether an actor may exercise a capability.
type Authorizer interface {
	Allow(ctx context.Context, actorID int64, capability string) error
}

// Actor identifies an authenticated API user.
type Actor struct {
	ID   int64
	Name string
}

// AuthStore resolves API tokens and capability grants from Postgres.
type AuthStore struct {
	pool *pgxpool.Pool
}

// NewAuthStore returns a new AuthStore.
func NewAuthStore(pool *pgxpool.Pool) *AuthStore {
	return &AuthStore{pool: pool}
}

// Authenticate resolves a bearer token to an actor. Tokens are stored as
// bcrypt hashes keyed by a SHA-256 lookup digest so authentication stays a
// single indexed read.
func (s *AuthStore) Authenticate(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrInvalidToken
	}
	digest := sha256.Sum256([]byte(token))
	lookup := hex.EncodeToString(digest[:])

	var actor Actor
	var hash []byte
	err := s.pool.QueryRow(ctx, `SELECT u.id, u.name, t.token_hash
FROM api_tokens t JOIN users u ON u.id = t.user_id
WHERE t.lookup = $1 AND t.revoked_at IS NULL`, lookup).
		Scan(&actor.ID, &actor.Name, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Actor{}, ErrInvalidToken
		}
		return Actor{}, err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
		return Actor{}, ErrInvalidToken
	}
	return actor, nil
}

// Allow implements Authorizer against the user_capabilities table.
func (s *AuthStore) Allow(ctx context.Context, actorID int64, capability string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM user_capabilities WHERE user_id = $1 AND capability = $2)`, actorID, capability).
		Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrForbidden
	}
	return nil
}
