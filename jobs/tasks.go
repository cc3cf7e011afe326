package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/members"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAssessDues posts outstanding member subscription dues.
	TaskTypeAssessDues = "finance:assess_dues"
	// TaskTypeAnnualClosure runs the annual closure for one year.
	TaskTypeAnnualClosure = "finance:annual_closure"
)

// AssessDuesPayload carries the triggering actor.
type AssessDuesPayload struct {
	ActorID      int64     `json:"actor_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewAssessDuesTask constructs an Asynq task.
func NewAssessDuesTask(payload AssessDuesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAssessDues, data, asynq.Queue(QueueDefault)), nil
}

// AnnualClosurePayload names the year to close.
type AnnualClosurePayload struct {
	Year    int   `json:"year"`
	ActorID int64 `json:"actor_id"`
}

// NewAnnualClosureTask constructs an Asynq task.
func NewAnnualClosureTask(payload AnnualClosurePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAnnualClosure, data, asynq.Queue(QueueDefault)), nil
}

// Handlers bundles the services the task handlers call into.
type Handlers struct {
	Members *members.Service
	Closure *closure.Service
	Logger  *slog.Logger
}

// HandleAssessDues processes TaskTypeAssessDues tasks.
func (h *Handlers) HandleAssessDues(ctx context.Context, t *asynq.Task) error {
	var payload AssessDuesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	result, err := h.Members.AssessDues(ctx, payload.ActorID)
	if err != nil {
		h.Logger.Error("assess dues", slog.Any("error", err))
		return err
	}
	h.Logger.Info("assess dues",
		slog.Int("posted", result.Posted),
		slog.Int("missed", len(result.Missed)),
	)
	return nil
}

// HandleAnnualClosure processes TaskTypeAnnualClosure tasks. An already
// closed year is logged and dropped, not retried.
func (h *Handlers) HandleAnnualClosure(ctx context.Context, t *asynq.Task) error {
	var payload AnnualClosurePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	result, err := h.Closure.Run(ctx, payload.Year, payload.ActorID)
	if err != nil {
		if errors.Is(err, closure.ErrAlreadyClosed) {
			h.Logger.Warn("annual closure", slog.Int("year", payload.Year), slog.String("state", "already closed"))
			return asynq.SkipRetry
		}
		h.Logger.Error("annual closure", slog.Any("error", err))
		return err
	}
	h.Logger.Info("annual closure",
		slog.Int("year", result.Year),
		slog.Int64("copied", result.Copied),
		slog.String("claims", result.Balance.Claims.String()),
		slog.String("liabilities", result.Balance.Liabilities.String()),
	)
	return nil
}
