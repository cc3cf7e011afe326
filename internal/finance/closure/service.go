package closure

import (
	"context"
	"fmt"
	"time"

	"github.com/clubledger/clubledger/internal/shared"
)

// AuditPort records closure runs.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs and reads annual closures.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Run closes the given year: the year's ledger lines are copied into
// immutable denormalized closure rows and the open debitor/creditor items
// across all years are aggregated into one balance row. A year with
// existing closure rows is rejected before anything is written; the whole
// run commits atomically.
func (s *Service) Run(ctx context.Context, year int, actorID int64) (Result, error) {
	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		closed, err := tx.HasClosure(ctx, year)
		if err != nil {
			return err
		}
		if closed {
			return ErrAlreadyClosed
		}
		copied, err := tx.CopyYear(ctx, year)
		if err != nil {
			return err
		}
		claims, liabilities, err := tx.OpenItems(ctx)
		if err != nil {
			return err
		}
		balance, err := tx.InsertBalance(ctx, year, claims, liabilities)
		if err != nil {
			return err
		}
		result = Result{Year: year, Copied: copied, Balance: balance}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "closure.run",
			Entity:   shared.EntityClosure,
			EntityID: fmt.Sprintf("%d", year),
			Meta: map[string]any{
				"copied":      result.Copied,
				"claims":      result.Balance.Claims.String(),
				"liabilities": result.Balance.Liabilities.String(),
			},
			At: s.now(),
		})
	}
	return result, nil
}

// Balances lists all closed years, newest first.
func (s *Service) Balances(ctx context.Context) ([]ClosureBalance, error) {
	return s.repo.ListBalances(ctx)
}

// Transactions lists the snapshot of one closed year.
func (s *Service) Transactions(ctx context.Context, year int) ([]ClosureTransaction, error) {
	closed, err := s.repo.HasClosure(ctx, year)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, ErrNotFound
	}
	return s.repo.ListTransactions(ctx, year)
}
