package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

const storeScopeName = "github.com/hyperengineering/pulse/store"

// InstrumentedStore wraps store.Store with OTel tracing and metrics.
// Every method gets a span and is counted in pulse.store.* metrics.
// ErrNotFound is an answer, not a failure, and is not counted as an error.
type InstrumentedStore struct {
	inner    store.Store
	tracer   trace.Tracer
	ops      metric.Int64Counter
	dur      metric.Float64Histogram
	errs     metric.Int64Counter
	rowGauge metric.Int64Gauge
}

var _ store.Store = (*InstrumentedStore)(nil)

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is.
func WrapStore(s store.Store) store.Store {
	if !Enabled() {
		return s
	}
	return NewInstrumentedStore(s, Tracer(storeScopeName), Meter(storeScopeName))
}

// NewInstrumentedStore decorates s using the given tracer and meter.
func NewInstrumentedStore(s store.Store, tracer trace.Tracer, m metric.Meter) *InstrumentedStore {
	ops, _ := m.Int64Counter("pulse.store.operations",
		metric.WithDescription("Total store operations executed"),
	)
	dur, _ := m.Float64Histogram("pulse.store.operation.duration",
		metric.WithDescription("Store operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("pulse.store.errors",
		metric.WithDescription("Total store operation errors"),
	)
	rowGauge, _ := m.Int64Gauge("pulse.store.rows",
		metric.WithDescription("Row counts by table (snapshot from GetStats)"),
	)
	return &InstrumentedStore{
		inner:    s,
		tracer:   tracer,
		ops:      ops,
		dur:      dur,
		errs:     errs,
		rowGauge: rowGauge,
	}
}

func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{
		attribute.String("db.operation", name),
		attribute.String("db.system", s.inner.Dialect()),
	}, attrs...)
	ctx, span := s.tracer.Start(ctx, "store."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func workspace(id string) attribute.KeyValue {
	return attribute.String("pulse.workspace_id", id)
}

// ── Hierarchy ───────────────────────────────────────────────────────────────

func (s *InstrumentedStore) ListObjectives(ctx context.Context, workspaceID string, filter types.ObjectiveFilter) ([]types.Objective, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "ListObjectives", attrs...)
	v, err := s.inner.ListObjectives(ctx, workspaceID, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("pulse.result.count", len(v)))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetObjective(ctx context.Context, workspaceID, id string) (*types.Objective, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "GetObjective", attrs...)
	v, err := s.inner.GetObjective(ctx, workspaceID, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) ListKeyResults(ctx context.Context, workspaceID, objectiveID string) ([]types.KeyResult, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "ListKeyResults", attrs...)
	v, err := s.inner.ListKeyResults(ctx, workspaceID, objectiveID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetKeyResult(ctx context.Context, workspaceID, id string) (*types.KeyResult, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "GetKeyResult", attrs...)
	v, err := s.inner.GetKeyResult(ctx, workspaceID, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) ListActionMaps(ctx context.Context, workspaceID string, filter types.ActionMapFilter) ([]types.ActionMap, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "ListActionMaps", attrs...)
	v, err := s.inner.ListActionMaps(ctx, workspaceID, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("pulse.result.count", len(v)))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetActionMap(ctx context.Context, workspaceID, id string) (*types.ActionMap, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "GetActionMap", attrs...)
	v, err := s.inner.GetActionMap(ctx, workspaceID, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) ListActionItems(ctx context.Context, workspaceID, actionMapID string) ([]types.ActionItem, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "ListActionItems", attrs...)
	v, err := s.inner.ListActionItems(ctx, workspaceID, actionMapID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetActionItem(ctx context.Context, workspaceID, id string) (*types.ActionItem, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "GetActionItem", attrs...)
	v, err := s.inner.GetActionItem(ctx, workspaceID, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) ListTasksByActionItem(ctx context.Context, workspaceID, actionItemID string) ([]types.Task, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "ListTasksByActionItem", attrs...)
	v, err := s.inner.ListTasksByActionItem(ctx, workspaceID, actionItemID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Audit ───────────────────────────────────────────────────────────────────

func (s *InstrumentedStore) FetchAuditPage(ctx context.Context, q types.AuditPageQuery) ([]types.AuditLogEntry, error) {
	attrs := []attribute.KeyValue{
		workspace(q.WorkspaceID),
		attribute.Int("pulse.page.limit", q.Limit),
		attribute.Bool("pulse.page.cursor", q.Before != nil),
	}
	ctx, span, t := s.op(ctx, "FetchAuditPage", attrs...)
	v, err := s.inner.FetchAuditPage(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("pulse.result.count", len(v)))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) LookupUsers(ctx context.Context, ids []string) (map[string]types.User, error) {
	attrs := []attribute.KeyValue{attribute.Int("pulse.user.count", len(ids))}
	ctx, span, t := s.op(ctx, "LookupUsers", attrs...)
	v, err := s.inner.LookupUsers(ctx, ids)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) AppendAuditLog(ctx context.Context, entry types.AuditLogEntry) (*types.AuditLogEntry, error) {
	attrs := []attribute.KeyValue{
		workspace(entry.WorkspaceID),
		attribute.String("pulse.audit.action", entry.Action),
		attribute.String("pulse.audit.resource_type", entry.ResourceType),
	}
	ctx, span, t := s.op(ctx, "AppendAuditLog", attrs...)
	v, err := s.inner.AppendAuditLog(ctx, entry)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Approaches ──────────────────────────────────────────────────────────────

func (s *InstrumentedStore) ListApproachRecords(ctx context.Context, workspaceID, userID string) ([]types.ApproachRecord, error) {
	attrs := []attribute.KeyValue{workspace(workspaceID)}
	ctx, span, t := s.op(ctx, "ListApproachRecords", attrs...)
	v, err := s.inner.ListApproachRecords(ctx, workspaceID, userID)
	if err == nil {
		span.SetAttributes(attribute.Int("pulse.result.count", len(v)))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) ListApproachGoals(ctx context.Context, userID string) ([]types.ApproachGoal, error) {
	ctx, span, t := s.op(ctx, "ListApproachGoals")
	v, err := s.inner.ListApproachGoals(ctx, userID)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) UpsertApproachGoal(ctx context.Context, goal types.ApproachGoal) (*types.ApproachGoal, bool, error) {
	attrs := []attribute.KeyValue{
		workspace(goal.WorkspaceID),
		attribute.String("pulse.goal.period", string(goal.Period)),
	}
	ctx, span, t := s.op(ctx, "UpsertApproachGoal", attrs...)
	v, created, err := s.inner.UpsertApproachGoal(ctx, goal)
	if err == nil {
		span.SetAttributes(attribute.Bool("pulse.goal.created", created))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, created, err
}

// ── Bookkeeping ─────────────────────────────────────────────────────────────

func (s *InstrumentedStore) ImportFixture(ctx context.Context, f types.Fixture) (*types.ImportResult, error) {
	ctx, span, t := s.op(ctx, "ImportFixture")
	v, err := s.inner.ImportFixture(ctx, f)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	ctx, span, t := s.op(ctx, "GetStats")
	v, err := s.inner.GetStats(ctx)
	s.done(ctx, span, t, err)
	if err == nil && v != nil {
		table := func(name string) metric.RecordOption {
			return metric.WithAttributes(attribute.String("table", name))
		}
		s.rowGauge.Record(ctx, v.Objectives, table("objectives"))
		s.rowGauge.Record(ctx, v.ActionMaps, table("action_maps"))
		s.rowGauge.Record(ctx, v.AuditEntries, table("audit_logs"))
	}
	return v, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	ctx, span, t := s.op(ctx, "Ping")
	err := s.inner.Ping(ctx)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) Dialect() string { return s.inner.Dialect() }

func (s *InstrumentedStore) Close() error { return s.inner.Close() }
