package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntity names the kind of record an audit entry refers to.
type AuditEntity string

// The book-keeping mutations that leave an audit trail. Postings, resets
// and clearings reference the receipt's internal number, closures the
// year, dues runs the assessment month.
const (
	EntityReceipt    AuditEntity = "receipt"
	EntityClosure    AuditEntity = "closure"
	EntityAssessment AuditEntity = "assessment"
)

// AuditLog is one row of the audit trail.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   AuditEntity
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to the audit_logs table. Writes are best-effort from
// the caller's point of view; the services discard the error once the
// ledger mutation has committed.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry. A zero At stamps the row with NOW().
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, string(log.Entity), log.EntityID, metaJSON, log.At)
	return err
}
