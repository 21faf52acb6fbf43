// Package service contains the discovery engine workflows
package service

import (
	"context"

	"nextreel/internal/modkit/repokit"
	perr "nextreel/internal/platform/errors"
	"nextreel/internal/platform/logger"
	"nextreel/internal/platform/resilience"
	"nextreel/internal/platform/store"
	"nextreel/internal/services/discover/domain"
	"nextreel/internal/services/discover/queue"
	"nextreel/internal/services/discover/repo"
	"nextreel/internal/services/discover/tier"
)

// Service defines the service contract for discovery
type Service interface{ domain.EnginePort }

// Svc implements the Service interface. Candidate flow goes through per
// session queues; enrichment happens lazily on the candidate being handed
// out, never on the whole buffer
type Svc struct {
	Sessions *queue.Sessions

	binder   repokit.Binder[repo.SessionRepo]
	db       repokit.TxRunner
	sampler  domain.SamplerPort
	enricher domain.EnricherPort
	tiers    *tier.Registry
	log      *logger.Logger
}

// New creates a new discovery engine service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.SessionRepo],
	smp domain.SamplerPort,
	enr domain.EnricherPort,
	tiers *tier.Registry,
	qcfg queue.Config,
) *Svc {
	if db == nil {
		panic("discover.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("discover.Service requires a non nil SessionRepo binder")
	}
	if smp == nil {
		panic("discover.Service requires a non nil SamplerPort")
	}
	if enr == nil {
		panic("discover.Service requires a non nil EnricherPort")
	}
	if tiers == nil {
		panic("discover.Service requires a non nil tier registry")
	}
	return &Svc{
		Sessions: queue.NewSessions(smp, qcfg),
		binder:   binder,
		db:       db,
		sampler:  smp,
		enricher: enr,
		tiers:    tiers,
		log:      logger.Named("discover"),
	}
}

// Next delivers the session's next candidate. A refill that fails on the
// backend, whether the circuit is open or the retry budget is spent, surfaces
// as ErrServiceDegraded; buffered candidates keep flowing regardless
func (s *Svc) Next(ctx context.Context, sessionID string) (domain.Candidate, error) {
	q := s.Sessions.Get(sessionID)
	c, err := q.Next(ctx)
	if err != nil {
		if backendFailure(err) {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("refill failed, serving degraded")
			return domain.Candidate{}, domain.ErrServiceDegraded
		}
		return domain.Candidate{}, err
	}
	s.enrichInPlace(ctx, q, &c)
	return c, nil
}

// backendFailure reports whether err is a data source failure rather than a
// queue control signal
func backendFailure(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeCircuitOpen, perr.ErrorCodeUnavailable,
		perr.ErrorCodeDB, perr.ErrorCodeTooManyRequests:
		return true
	}
	return false
}

// Previous rewinds the session's history. It never queries the backend so
// it works unchanged while the data circuit is open
func (s *Svc) Previous(ctx context.Context, sessionID string) (domain.Candidate, error) {
	q := s.Sessions.Get(sessionID)
	c, err := q.Previous()
	if err != nil {
		return domain.Candidate{}, err
	}
	s.enrichInPlace(ctx, q, &c)
	return c, nil
}

// SetFilter swaps the session's active filter, resetting its browsable
// window
func (s *Svc) SetFilter(_ context.Context, sessionID string, spec domain.FilterSpec) error {
	return s.Sessions.Get(sessionID).ApplyFilter(spec)
}

// MarkSeen excludes tconst from the session's future refills and records
// the event
func (s *Svc) MarkSeen(ctx context.Context, sessionID, tconst string) error {
	if tconst == "" {
		return perr.InvalidArgf("tconst is required")
	}
	s.Sessions.Get(sessionID).MarkSeen(tconst)
	return s.recordActivity(ctx, sessionID, func(ctx context.Context, r repo.SessionRepo) error {
		return r.RecordSeen(ctx, sessionID, tconst)
	})
}

// AddToWatchlist records tconst on the session's watchlist
func (s *Svc) AddToWatchlist(ctx context.Context, sessionID, tconst string) error {
	if tconst == "" {
		return perr.InvalidArgf("tconst is required")
	}
	return s.recordActivity(ctx, sessionID, func(ctx context.Context, r repo.SessionRepo) error {
		return r.RecordWatchlist(ctx, sessionID, tconst)
	})
}

// recordActivity runs a session write inside a transaction with the session
// id stamped on the store context
func (s *Svc) recordActivity(ctx context.Context, sessionID string, fn func(ctx context.Context, r repo.SessionRepo) error) error {
	return store.RunInSession(ctx, s.db, sessionID, func(ctx context.Context, q store.RowQuerier) error {
		return fn(ctx, s.binder.Bind(q))
	})
}

// Health is the operational snapshot served by the health endpoint
type Health struct {
	DataCircuit    string `json:"data_circuit"`
	EnrichCircuit  string `json:"enrich_circuit"`
	TierGeneration int64  `json:"tier_generation"`
	Tiers          int    `json:"tiers"`
	Sessions       int    `json:"sessions"`
}

// Health reports circuit states and the active tier snapshot
func (s *Svc) Health() Health {
	h := Health{
		DataCircuit:    circuitOf(s.sampler),
		EnrichCircuit:  circuitOf(s.enricher),
		TierGeneration: s.tiers.Generation(),
		Tiers:          len(s.tiers.Tiers()),
		Sessions:       s.Sessions.Len(),
	}
	return h
}

func circuitOf(v any) string {
	if cs, ok := v.(interface{ CircuitState() resilience.State }); ok {
		return cs.CircuitState().String()
	}
	return "unknown"
}

func (s *Svc) enrichInPlace(ctx context.Context, q *queue.SessionQueue, c *domain.Candidate) {
	if c.Enriched {
		return
	}
	s.enricher.Enrich(ctx, c)
	if c.Enriched {
		q.Update(*c)
	}
}
