// Package engine drives a mail-in buyback request through its lifecycle:
// intake, kit dispatch, final assessment, the customer's decision, and the
// terminal payout or return. Every transition is an optimistic
// compare-and-set on the request status, so concurrent staff actions fail
// safely for the loser.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
	"github.com/donaldgifford/mailin-buyback/internal/notify"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

const (
	tracerName = "github.com/donaldgifford/mailin-buyback/internal/engine"

	defaultReturnedRetention = 30 * 24 * time.Hour
	defaultSweepBatch        = 100
)

// Action names used in guard violations, logs, and metrics.
const (
	ActionMarkKitSent      = "mark_kit_sent"
	ActionSubmitAssessment = "submit_assessment"
	ActionApprove          = "approve"
	ActionReject           = "reject"
	ActionCompletePayout   = "complete_payout"
	ActionCompleteReturn   = "complete_return"
	ActionRetireRequest    = "retire_request"
)

// Engine orchestrates request transitions, pricing, and completion.
type Engine struct {
	store    store.Store
	notifier notify.Notifier
	log      *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	resaleRule pricing.ResaleRule
	retention  time.Duration
	sweepBatch int
}

// NewEngine creates a new Engine with injected dependencies. A nil notifier
// discards notifications.
func NewEngine(s store.Store, n notify.Notifier, opts ...EngineOption) *Engine {
	eng := &Engine{
		store:      s,
		notifier:   n,
		log:        slog.Default(),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		resaleRule: pricing.DefaultResaleRule(),
		retention:  defaultReturnedRetention,
		sweepBatch: defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.notifier == nil {
		eng.notifier = notify.NewNoOpNotifier(eng.log)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithClock overrides the time source for stage timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithTracer sets the tracer used for transition spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithResaleRule sets the resale battery penalty rule.
func WithResaleRule(r pricing.ResaleRule) EngineOption {
	return func(e *Engine) {
		e.resaleRule = r
	}
}

// WithReturnedRetention sets how long returned requests are kept before the
// retention sweep deletes them.
func WithReturnedRetention(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.retention = d
		}
	}
}

// WithSweepBatch sets how many returned requests one sweep query fetches.
func WithSweepBatch(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.sweepBatch = n
		}
	}
}

// GetRequest loads a request by ID.
func (eng *Engine) GetRequest(ctx context.Context, id string) (*domain.MailBuybackRequest, error) {
	return eng.store.GetRequest(ctx, id)
}

// ListRequests returns a page of requests and the total match count.
func (eng *Engine) ListRequests(
	ctx context.Context,
	q *store.RequestQuery,
) ([]domain.MailBuybackRequest, int, error) {
	return eng.store.ListRequests(ctx, q)
}

// startSpan opens a span for an engine operation on a request.
func (eng *Engine) startSpan(ctx context.Context, op, requestID string) (context.Context, trace.Span) {
	return eng.tracer.Start(ctx, "engine."+op, trace.WithAttributes(
		attribute.String("request.id", requestID),
	))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// load fetches a request and checks it is in the expected status.
func (eng *Engine) load(
	ctx context.Context,
	id, action string,
	expected domain.Status,
) (*domain.MailBuybackRequest, error) {
	r, err := eng.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != expected {
		return nil, eng.guardViolation(id, action, expected, r.Status)
	}
	return r, nil
}

// transition applies patch guarded by the request's current status and, on
// success, applies the same patch to r.
func (eng *Engine) transition(
	ctx context.Context,
	r *domain.MailBuybackRequest,
	action string,
	patch *store.RequestPatch,
) error {
	from := r.Status

	err := eng.store.UpdateRequest(ctx, r.ID, from, patch)
	if err != nil {
		var conflict *store.StatusConflictError
		switch {
		case errors.As(err, &conflict):
			return eng.guardViolation(r.ID, action, from, conflict.Actual)
		case errors.Is(err, store.ErrNotFound):
			return eng.guardViolation(r.ID, action, from, "")
		default:
			return fmt.Errorf("updating request: %w", err)
		}
	}

	patch.Apply(r)
	metrics.TransitionsTotal.WithLabelValues(string(from), string(r.Status)).Inc()
	eng.log.Info("request transitioned",
		"request_id", r.ID,
		"request_number", r.RequestNumber,
		"action", action,
		"from", from,
		"to", r.Status,
	)
	return nil
}

func (eng *Engine) guardViolation(id, action string, expected, actual domain.Status) error {
	return eng.guardViolationReason(id, action, expected, actual, "")
}

func (eng *Engine) guardViolationReason(
	id, action string,
	expected, actual domain.Status,
	reason string,
) error {
	metrics.GuardViolationsTotal.WithLabelValues(action).Inc()
	eng.log.Warn("guard violation",
		"request_id", id,
		"action", action,
		"expected", expected,
		"actual", actual,
		"reason", reason,
	)
	return &GuardViolation{RequestID: id, Action: action, Expected: expected, Actual: actual, Reason: reason}
}

// notify sends a best-effort notification. Failures are logged and counted
// but never undo the transition.
func (eng *Engine) notify(ctx context.Context, action notify.Action, r *domain.MailBuybackRequest) {
	if err := eng.notifier.Notify(ctx, notify.NewEvent(action, r, eng.now())); err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues(string(action)).Inc()
		eng.log.Warn("notification failed",
			"request_id", r.ID,
			"action", action,
			"error", err,
		)
		return
	}
	metrics.NotificationsSentTotal.WithLabelValues(string(action)).Inc()
}

// priceTables loads the current pricing snapshot.
func (eng *Engine) priceTables(ctx context.Context) (*pricing.Tables, error) {
	t, err := eng.store.LoadPriceTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading price tables: %w", err)
	}
	return t, nil
}

// logGaps reports deduction lookups with no table row. Gaps price as zero.
func (eng *Engine) logGaps(lines []pricing.Line, model, storage string) {
	for _, l := range lines {
		if !l.Gap {
			continue
		}
		metrics.LookupGapsTotal.Inc()
		eng.log.Debug("deduction lookup gap",
			"model", model,
			"storage", storage,
			"deduction_type", l.Type,
		)
	}
}
