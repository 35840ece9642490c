package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

const storageScopeName = "github.com/apqllyqn/lead-disposition/storage"

// InstrumentedStore wraps storage.Store with OTel tracing and metrics.
// Every method gets a span and is counted in ld.storage.* metrics.
// Use WrapStore to create one; it returns the original store unchanged
// when telemetry is disabled.
type InstrumentedStore struct {
	inner  storage.Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStore(s storage.Store) storage.Store {
	if !Enabled() {
		return s
	}
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("ld.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("ld.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("ld.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named storage operation.
func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// ── Contacts ────────────────────────────────────────────────────────────────

func (s *InstrumentedStore) GetContact(ctx context.Context, email, clientID string) (*types.Contact, error) {
	attrs := []attribute.KeyValue{attribute.String("ld.client.id", clientID)}
	ctx, span, t := s.op(ctx, "GetContact", attrs...)
	v, err := s.inner.GetContact(ctx, email, clientID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetContactsByDomain(ctx context.Context, domain string) ([]*types.Contact, error) {
	attrs := []attribute.KeyValue{attribute.String("ld.company.domain", domain)}
	ctx, span, t := s.op(ctx, "GetContactsByDomain", attrs...)
	v, err := s.inner.GetContactsByDomain(ctx, domain)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) InsertContact(ctx context.Context, contact *types.Contact) error {
	ctx, span, t := s.op(ctx, "InsertContact")
	err := s.inner.InsertContact(ctx, contact)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) UpdateContact(ctx context.Context, email, clientID string, upd types.ContactUpdate) error {
	attrs := []attribute.KeyValue{attribute.String("ld.client.id", clientID)}
	ctx, span, t := s.op(ctx, "UpdateContact", attrs...)
	err := s.inner.UpdateContact(ctx, email, clientID, upd)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) BulkInsertContacts(ctx context.Context, contacts []*types.Contact) (int, error) {
	attrs := []attribute.KeyValue{attribute.Int("ld.contact.count", len(contacts))}
	ctx, span, t := s.op(ctx, "BulkInsertContacts", attrs...)
	n, err := s.inner.BulkInsertContacts(ctx, contacts)
	s.done(ctx, span, t, err, attrs...)
	return n, err
}

// ── Companies ───────────────────────────────────────────────────────────────

func (s *InstrumentedStore) GetCompany(ctx context.Context, domain string) (*types.Company, error) {
	attrs := []attribute.KeyValue{attribute.String("ld.company.domain", domain)}
	ctx, span, t := s.op(ctx, "GetCompany", attrs...)
	v, err := s.inner.GetCompany(ctx, domain)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetCompanyForUpdate(ctx context.Context, domain string) (*types.Company, error) {
	attrs := []attribute.KeyValue{attribute.String("ld.company.domain", domain)}
	ctx, span, t := s.op(ctx, "GetCompanyForUpdate", attrs...)
	v, err := s.inner.GetCompanyForUpdate(ctx, domain)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) EnsureCompany(ctx context.Context, domain string) error {
	ctx, span, t := s.op(ctx, "EnsureCompany")
	err := s.inner.EnsureCompany(ctx, domain)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) UpdateCompany(ctx context.Context, domain string, upd types.CompanyUpdate) error {
	attrs := []attribute.KeyValue{attribute.String("ld.company.domain", domain)}
	ctx, span, t := s.op(ctx, "UpdateCompany", attrs...)
	err := s.inner.UpdateCompany(ctx, domain, upd)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) SetOwnership(ctx context.Context, domain, ownerID string, ownedAt, expiresAt time.Time) error {
	attrs := []attribute.KeyValue{attribute.String("ld.company.domain", domain)}
	ctx, span, t := s.op(ctx, "SetOwnership", attrs...)
	err := s.inner.SetOwnership(ctx, domain, ownerID, ownedAt, expiresAt)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) ClearOwnership(ctx context.Context, domain string) error {
	attrs := []attribute.KeyValue{attribute.String("ld.company.domain", domain)}
	ctx, span, t := s.op(ctx, "ClearOwnership", attrs...)
	err := s.inner.ClearOwnership(ctx, domain)
	s.done(ctx, span, t, err, attrs...)
	return err
}

// ── Append-only logs ────────────────────────────────────────────────────────

func (s *InstrumentedStore) AppendHistory(ctx context.Context, h *types.DispositionHistory) error {
	ctx, span, t := s.op(ctx, "AppendHistory")
	err := s.inner.AppendHistory(ctx, h)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) AppendOwnershipChange(ctx context.Context, oc *types.OwnershipChange) error {
	ctx, span, t := s.op(ctx, "AppendOwnershipChange")
	err := s.inner.AppendOwnershipChange(ctx, oc)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) AppendAssignment(ctx context.Context, a *types.CampaignAssignment) error {
	ctx, span, t := s.op(ctx, "AppendAssignment")
	err := s.inner.AppendAssignment(ctx, a)
	s.done(ctx, span, t, err)
	return err
}

// ── Eligibility and maintenance ─────────────────────────────────────────────

func (s *InstrumentedStore) QueryEligibleContacts(ctx context.Context, q types.EligibilityQuery) ([]*types.Contact, error) {
	attrs := []attribute.KeyValue{
		attribute.String("ld.client.id", q.ClientID),
		attribute.Int("ld.query.limit", q.Limit),
	}
	ctx, span, t := s.op(ctx, "QueryEligibleContacts", attrs...)
	v, err := s.inner.QueryEligibleContacts(ctx, q)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) ExpiredCooldownContacts(ctx context.Context) ([]*types.Contact, error) {
	ctx, span, t := s.op(ctx, "ExpiredCooldownContacts")
	v, err := s.inner.ExpiredCooldownContacts(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) StaleContacts(ctx context.Context, months int) ([]*types.Contact, error) {
	ctx, span, t := s.op(ctx, "StaleContacts")
	v, err := s.inner.StaleContacts(ctx, months)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) ExpiredOwnerships(ctx context.Context) ([]*types.Company, error) {
	ctx, span, t := s.op(ctx, "ExpiredOwnerships")
	v, err := s.inner.ExpiredOwnerships(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

// ── TAM aggregates ──────────────────────────────────────────────────────────

func (s *InstrumentedStore) TAMPools(ctx context.Context, clientID *string) (types.PoolCounts, error) {
	ctx, span, t := s.op(ctx, "TAMPools")
	v, err := s.inner.TAMPools(ctx, clientID)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) BurnRateWeekly(ctx context.Context, clientID *string) (float64, error) {
	ctx, span, t := s.op(ctx, "BurnRateWeekly")
	v, err := s.inner.BurnRateWeekly(ctx, clientID)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) UpsertTAMSnapshot(ctx context.Context, snap *types.TAMSnapshot) error {
	ctx, span, t := s.op(ctx, "UpsertTAMSnapshot")
	err := s.inner.UpsertTAMSnapshot(ctx, snap)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) GetSnapshots(ctx context.Context, clientID *string, days int) ([]*types.TAMSnapshot, error) {
	ctx, span, t := s.op(ctx, "GetSnapshots")
	v, err := s.inner.GetSnapshots(ctx, clientID, days)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) DistinctClients(ctx context.Context) ([]string, error) {
	ctx, span, t := s.op(ctx, "DistinctClients")
	v, err := s.inner.DistinctClients(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

// ── Operator views ──────────────────────────────────────────────────────────

func (s *InstrumentedStore) ListContacts(ctx context.Context, f types.ContactListFilter) ([]*types.Contact, int, error) {
	ctx, span, t := s.op(ctx, "ListContacts")
	v, total, err := s.inner.ListContacts(ctx, f)
	s.done(ctx, span, t, err)
	return v, total, err
}

func (s *InstrumentedStore) ListOwnedCompanies(ctx context.Context, clientID string) ([]*types.Company, error) {
	attrs := []attribute.KeyValue{attribute.String("ld.client.id", clientID)}
	ctx, span, t := s.op(ctx, "ListOwnedCompanies", attrs...)
	v, err := s.inner.ListOwnedCompanies(ctx, clientID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) GetContactHistory(ctx context.Context, email, clientID string, limit int) ([]*types.DispositionHistory, error) {
	attrs := []attribute.KeyValue{attribute.String("ld.client.id", clientID)}
	ctx, span, t := s.op(ctx, "GetContactHistory", attrs...)
	v, err := s.inner.GetContactHistory(ctx, email, clientID, limit)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Intake queue ────────────────────────────────────────────────────────────

func (s *InstrumentedStore) ClaimPendingJob(ctx context.Context) (*types.PullJob, error) {
	ctx, span, t := s.op(ctx, "ClaimPendingJob")
	v, err := s.inner.ClaimPendingJob(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) CompleteJob(ctx context.Context, jobID string, resultJSON []byte) error {
	attrs := []attribute.KeyValue{attribute.String("ld.job.id", jobID)}
	ctx, span, t := s.op(ctx, "CompleteJob", attrs...)
	err := s.inner.CompleteJob(ctx, jobID, resultJSON)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) FailJob(ctx context.Context, jobID string, message string) error {
	attrs := []attribute.KeyValue{attribute.String("ld.job.id", jobID)}
	ctx, span, t := s.op(ctx, "FailJob", attrs...)
	err := s.inner.FailJob(ctx, jobID, message)
	s.done(ctx, span, t, err, attrs...)
	return err
}

// ── Transactions and lifecycle ──────────────────────────────────────────────

// RunInTransaction traces the whole transaction as one span. Row-level
// operations inside fn run on the raw driver and are not individually
// traced.
func (s *InstrumentedStore) RunInTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	ctx, span, t := s.op(ctx, "RunInTransaction")
	err := s.inner.RunInTransaction(ctx, fn)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	ctx, span, t := s.op(ctx, "Ping")
	err := s.inner.Ping(ctx)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
