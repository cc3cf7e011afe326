package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/shared"
)

// AuditPort records ledger mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Drafts is the draft persistence behind the accumulator.
type Drafts interface {
	Get(ctx context.Context, token string) (ReceiptDraft, error)
	Put(ctx context.Context, token string, draft ReceiptDraft) error
	Delete(ctx context.Context, token string) error
}

// Service implements receipt entry, reset and clearing on top of the
// transaction repository and the draft store.
type Service struct {
	repo     Repository
	drafts   Drafts
	audit    AuditPort
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, drafts Drafts, audit AuditPort, settings Settings) *Service {
	return &Service{repo: repo, drafts: drafts, audit: audit, settings: settings, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithLogger attaches a logger for non-fatal storage warnings.
func (s *Service) WithLogger(logger *slog.Logger) {
	s.logger = logger
}

// List returns the ledger lines of the active accounting year.
func (s *Service) List(ctx context.Context) ([]Transaction, error) {
	return s.repo.List(ctx, s.settings.Year(s.now()))
}

// GetReceipt loads all lines sharing an internal number.
func (s *Service) GetReceipt(ctx context.Context, internalNumber int64) (Receipt, error) {
	lines, err := s.repo.LinesByInternalNumber(ctx, internalNumber)
	if err != nil {
		return Receipt{}, err
	}
	if len(lines) == 0 {
		return Receipt{}, ErrReceiptNotFound
	}
	return Receipt{
		DocumentNumber: lines[0].DocumentNumber,
		InternalNumber: internalNumber,
		Lines:          lines,
	}, nil
}

// AddLeg feeds one leg into the accumulator. An empty token opens a new
// editing session; a non-negative step overwrites the addressed leg instead
// of appending. When the legs balance the whole receipt commits atomically
// and the draft is discarded.
func (s *Service) AddLeg(ctx context.Context, token string, step int, in LegInput) (AddLegResult, error) {
	if err := in.Validate(); err != nil {
		return AddLegResult{}, err
	}
	if err := s.checkReferences(ctx, in.AccountNumber, in.CostCenter, in.CostObject); err != nil {
		return AddLegResult{}, err
	}

	var draft ReceiptDraft
	if token == "" {
		token = uuid.NewString()
		draft = ReceiptDraft{DocumentNumber: in.DocumentNumber}
		if draft.DocumentNumber == "" {
			draft.Generated = true
			err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				if err := tx.LockLedger(ctx); err != nil {
					return err
				}
				number, err := nextDocumentNumber(ctx, tx, s.settings.Year(s.now()), s.settings.ResetPrefix)
				if err != nil {
					return err
				}
				draft.DocumentNumber = number
				return nil
			})
			if err != nil {
				return AddLegResult{}, err
			}
		}
	} else {
		var err error
		draft, err = s.drafts.Get(ctx, token)
		if err != nil {
			return AddLegResult{}, err
		}
	}

	// A later leg may carry a different user-supplied document number; it
	// is silently forced onto the receipt's original number.
	in.DocumentNumber = draft.DocumentNumber

	leg := draftLegFromInput(in)
	switch {
	case step < 0 || step == len(draft.Legs):
		draft.Legs = append(draft.Legs, leg)
	case step < len(draft.Legs):
		draft.Legs[step] = leg
	default:
		return AddLegResult{}, fmt.Errorf("%w: draft has no step %d", ErrValidation, step)
	}

	debit, credit, err := draft.totals()
	if err != nil {
		return AddLegResult{}, err
	}

	if draft.complete() && debit.Equal(credit) {
		receipt, err := s.commitDraft(ctx, draft)
		if err != nil {
			return AddLegResult{}, err
		}
		if err := s.drafts.Delete(ctx, token); err != nil {
			// The receipt is durable at this point. A failed cleanup must
			// not surface as a failed commit; the stale draft expires with
			// its TTL.
			if s.logger != nil {
				s.logger.Warn("discard committed draft",
					slog.String("token", token), slog.Any("error", err))
			}
		}
		return AddLegResult{
			Token:       token,
			State:       DraftStateCommitted,
			DebitTotal:  debit,
			CreditTotal: credit,
			Receipt:     &receipt,
		}, nil
	}

	if err := s.drafts.Put(ctx, token, draft); err != nil {
		return AddLegResult{}, err
	}
	return AddLegResult{
		Token:       token,
		State:       DraftStateAccumulating,
		DebitTotal:  debit,
		CreditTotal: credit,
		Suggestion:  suggestNext(draft, debit, credit),
	}, nil
}

// Abandon discards a draft without committing anything.
func (s *Service) Abandon(ctx context.Context, token string) error {
	if _, err := s.drafts.Get(ctx, token); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, token)
}

// suggestNext pre-fills the next leg form: shared receipt fields from leg 0
// and the amount that would balance the draft, placed on the lighter side.
func suggestNext(draft ReceiptDraft, debit, credit decimal.Decimal) *Suggestion {
	if len(draft.Legs) == 0 {
		return nil
	}
	first := draft.Legs[0]
	date, err := time.Parse(draftDateLayout, first.Date)
	if err != nil {
		return nil
	}
	suggestion := &Suggestion{
		Date:           date,
		Text:           first.Text,
		DocumentNumber: draft.DocumentNumber,
	}
	diff := debit.Sub(credit)
	switch {
	case diff.IsPositive():
		suggestion.Credit = diff
	case diff.IsNegative():
		suggestion.Debit = diff.Abs()
	}
	return suggestion
}

// commitDraft persists every leg of a balanced draft in one transaction,
// stamped with one fresh internal number. No partially committed receipt is
// ever visible.
func (s *Service) commitDraft(ctx context.Context, draft ReceiptDraft) (Receipt, error) {
	year := s.settings.Year(s.now())
	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockLedger(ctx); err != nil {
			return err
		}
		number := draft.DocumentNumber
		if draft.Generated {
			// Reallocate under the lock: a concurrent commit may have
			// consumed the number handed out when the draft was opened.
			fresh, err := nextDocumentNumber(ctx, tx, year, s.settings.ResetPrefix)
			if err != nil {
				return err
			}
			number = fresh
		}
		internal, err := nextInternalNumber(ctx, tx)
		if err != nil {
			return err
		}
		lines := make([]Transaction, 0, len(draft.Legs))
		for idx, leg := range draft.Legs {
			line, err := legToLine(leg, number, draft.Generated, internal, year)
			if err != nil {
				return fmt.Errorf("ledger: draft leg %d: %w", idx, err)
			}
			lines = append(lines, line)
		}
		inserted, err := tx.InsertLines(ctx, lines)
		if err != nil {
			return err
		}
		receipt = Receipt{DocumentNumber: number, InternalNumber: internal, Lines: inserted}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record(ctx, 0, "ledger.commit", receipt.InternalNumber, map[string]any{
		"document_number": receipt.DocumentNumber,
		"lines":           len(receipt.Lines),
	})
	return receipt, nil
}

// Post commits a complete balanced receipt in one call. The dues assessment
// task posts through here.
func (s *Service) Post(ctx context.Context, in PostingInput) (Receipt, error) {
	if err := in.Validate(); err != nil {
		return Receipt{}, err
	}
	for _, line := range in.Lines {
		if err := s.checkReferences(ctx, line.AccountNumber, line.CostCenter, line.CostObject); err != nil {
			return Receipt{}, err
		}
	}
	year := s.settings.Year(s.now())
	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockLedger(ctx); err != nil {
			return err
		}
		number := in.DocumentNumber
		generated := number == ""
		if generated {
			fresh, err := nextDocumentNumber(ctx, tx, year, s.settings.ResetPrefix)
			if err != nil {
				return err
			}
			number = fresh
		}
		internal, err := nextInternalNumber(ctx, tx)
		if err != nil {
			return err
		}
		lines := make([]Transaction, 0, len(in.Lines))
		for _, l := range in.Lines {
			lines = append(lines, Transaction{
				AccountNumber:           l.AccountNumber,
				Date:                    in.Date,
				DocumentNumber:          number,
				Text:                    in.Text,
				Debit:                   l.Debit,
				Credit:                  l.Credit,
				CostCenter:              optional(l.CostCenter),
				CostObject:              optional(l.CostObject),
				DocumentNumberGenerated: generated,
				InternalNumber:          internal,
				AccountingYear:          year,
			})
		}
		inserted, err := tx.InsertLines(ctx, lines)
		if err != nil {
			return err
		}
		receipt = Receipt{DocumentNumber: number, InternalNumber: internal, Lines: inserted}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record(ctx, in.ActorID, "ledger.post", receipt.InternalNumber, map[string]any{
		"document_number": receipt.DocumentNumber,
		"lines":           len(receipt.Lines),
	})
	return receipt, nil
}

// Reset supersedes a committed receipt with an exact mirror image. The
// original lines stay in place as the audit record, flagged reset; the
// mirror lines share one fresh internal number.
func (s *Service) Reset(ctx context.Context, internalNumber, actorID int64) (Receipt, error) {
	var mirror Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		_, mirror, err = s.resetLocked(ctx, tx, internalNumber)
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record(ctx, actorID, "ledger.reset", internalNumber, map[string]any{
		"mirror_internal_number": mirror.InternalNumber,
	})
	return mirror, nil
}

// ResetAndReenter resets the receipt and seeds a fresh draft from the
// original lines, amounts left blank, so a corrected receipt can be built
// through the normal accumulator flow.
func (s *Service) ResetAndReenter(ctx context.Context, internalNumber, actorID int64) (Receipt, string, error) {
	var mirror Receipt
	var draft ReceiptDraft
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, m, err := s.resetLocked(ctx, tx, internalNumber)
		if err != nil {
			return err
		}
		mirror = m
		number, err := nextDocumentNumber(ctx, tx, s.settings.Year(s.now()), s.settings.ResetPrefix)
		if err != nil {
			return err
		}
		draft = ReceiptDraft{DocumentNumber: number, Generated: true}
		for _, line := range original {
			draft.Legs = append(draft.Legs, DraftLeg{
				Account:    line.AccountNumber,
				Date:       line.Date.Format(draftDateLayout),
				Text:       line.Text,
				CostCenter: deref(line.CostCenter),
				CostObject: deref(line.CostObject),
			})
		}
		return nil
	})
	if err != nil {
		return Receipt{}, "", err
	}
	token := uuid.NewString()
	if err := s.drafts.Put(ctx, token, draft); err != nil {
		return Receipt{}, "", err
	}
	s.record(ctx, actorID, "ledger.reset_reenter", internalNumber, map[string]any{
		"mirror_internal_number": mirror.InternalNumber,
	})
	return mirror, token, nil
}

func (s *Service) resetLocked(ctx context.Context, tx TxRepository, internalNumber int64) ([]Transaction, Receipt, error) {
	lines, err := tx.LinesByInternalNumber(ctx, internalNumber)
	if err != nil {
		return nil, Receipt{}, err
	}
	if len(lines) == 0 {
		return nil, Receipt{}, ErrReceiptNotFound
	}
	// The already-reset rejection takes precedence over the cleared one,
	// so a fully reset receipt reports AlreadyReset even when its lines
	// were cleared afterwards.
	allReset := true
	for _, line := range lines {
		if !line.Reset {
			allReset = false
		}
	}
	if allReset {
		return nil, Receipt{}, ErrAlreadyReset
	}
	for _, line := range lines {
		if line.ClearingNumber != nil {
			return nil, Receipt{}, ErrAlreadyCleared
		}
	}
	if err := tx.MarkReset(ctx, internalNumber); err != nil {
		return nil, Receipt{}, err
	}
	if err := tx.LockLedger(ctx); err != nil {
		return nil, Receipt{}, err
	}
	internal, err := nextInternalNumber(ctx, tx)
	if err != nil {
		return nil, Receipt{}, err
	}
	mirrors := make([]Transaction, 0, len(lines))
	for _, line := range lines {
		mirrors = append(mirrors, Transaction{
			AccountNumber:           line.AccountNumber,
			Date:                    line.Date,
			DocumentNumber:          s.settings.ResetPrefix + line.DocumentNumber,
			Text:                    line.Text,
			Debit:                   line.Credit,
			Credit:                  line.Debit,
			CostCenter:              line.CostCenter,
			CostObject:              line.CostObject,
			DocumentNumberGenerated: line.DocumentNumberGenerated,
			InternalNumber:          internal,
			Reset:                   true,
			AccountingYear:          line.AccountingYear,
		})
	}
	inserted, err := tx.InsertLines(ctx, mirrors)
	if err != nil {
		return nil, Receipt{}, err
	}
	mirror := Receipt{
		DocumentNumber: s.settings.ResetPrefix + lines[0].DocumentNumber,
		InternalNumber: internal,
		Lines:          inserted,
	}
	return lines, mirror, nil
}

// Clear settles the given lines against each other under one freshly
// allocated clearing number and returns it.
func (s *Service) Clear(ctx context.Context, ids []int64, actorID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrLineNotFound
	}
	var number int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockLedger(ctx); err != nil {
			return err
		}
		n, err := nextClearingNumber(ctx, tx)
		if err != nil {
			return err
		}
		rows, err := tx.SetClearingNumber(ctx, ids, n)
		if err != nil {
			return err
		}
		if rows != int64(len(ids)) {
			return ErrLineNotFound
		}
		number = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, actorID, "ledger.clear", number, map[string]any{"lines": len(ids)})
	return number, nil
}

// ResetClearing removes the clearing number from every line carrying it.
func (s *Service) ResetClearing(ctx context.Context, clearingNumber, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.ClearClearingNumber(ctx, clearingNumber)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrClearingNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "ledger.unclear", clearingNumber, nil)
	return nil
}

func (s *Service) checkReferences(ctx context.Context, account, costCenter, costObject string) error {
	if _, err := s.repo.LookupAccount(ctx, account); err != nil {
		return err
	}
	if costCenter != "" {
		ok, err := s.repo.CostCenterExists(ctx, costCenter)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCostCenterNotFound
		}
	}
	if costObject != "" {
		ok, err := s.repo.CostObjectExists(ctx, costObject)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCostObjectNotFound
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   shared.EntityReceipt,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}

func legToLine(leg DraftLeg, number string, generated bool, internal int64, year int) (Transaction, error) {
	date, err := time.Parse(draftDateLayout, leg.Date)
	if err != nil {
		return Transaction{}, err
	}
	line := Transaction{
		AccountNumber:           leg.Account,
		Date:                    date,
		DocumentNumber:          number,
		Text:                    leg.Text,
		CostCenter:              optional(leg.CostCenter),
		CostObject:              optional(leg.CostObject),
		DocumentNumberGenerated: generated,
		InternalNumber:          internal,
		AccountingYear:          year,
	}
	if leg.Debit != "" {
		if line.Debit, err = decimal.NewFromString(leg.Debit); err != nil {
			return Transaction{}, err
		}
	}
	if leg.Credit != "" {
		if line.Credit, err = decimal.NewFromString(leg.Credit); err != nil {
			return Transaction{}, err
		}
	}
	return line, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
