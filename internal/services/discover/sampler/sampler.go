// Package sampler is the resilient read path for candidate batches: plan
// compilation, tier selection, and execution behind the database circuit
// breaker and retry policy
package sampler

import (
	"context"
	stderrs "errors"
	"time"

	"nextreel/internal/modkit/repokit"
	"nextreel/internal/modkit/scope"
	perr "nextreel/internal/platform/errors"
	"nextreel/internal/platform/logger"
	"nextreel/internal/platform/resilience"
	"nextreel/internal/services/discover/domain"
	"nextreel/internal/services/discover/repo"
	"nextreel/internal/services/discover/tier"
)

// DefaultTimeout is the per query budget when none is configured
const DefaultTimeout = 3 * time.Second

// Config tunes a Sampler
type Config struct {
	Timeout    time.Duration
	Overscan   int
	ExcludeCap int
	Breaker    resilience.BreakerConfig
	Retry      resilience.Policy
}

// Sampler implements domain.SamplerPort over the tier registry and the
// Postgres repo
type Sampler struct {
	repo    repo.Repo
	planner *repo.Planner
	tiers   *tier.Registry
	breaker *resilience.Breaker[[]domain.Candidate]
	retry   resilience.Policy
	timeout time.Duration
	log     *logger.Logger
}

// New builds a Sampler bound to db. The tier registry may start empty; plans
// fall back to the base tables until a snapshot is published
func New(db repokit.Queryer, binder repokit.Binder[repo.Repo], tiers *tier.Registry, cfg Config) *Sampler {
	if db == nil {
		panic("sampler.New requires a non nil Queryer")
	}
	if binder == nil {
		panic("sampler.New requires a non nil Repo binder")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "discover-db"
	}

	return &Sampler{
		repo:    binder.Bind(db),
		planner: repo.NewPlanner(repo.PlannerConfig{Overscan: cfg.Overscan, ExcludeCap: cfg.ExcludeCap}),
		tiers:   tiers,
		breaker: resilience.NewBreaker[[]domain.Candidate](cfg.Breaker),
		retry:   cfg.Retry,
		timeout: cfg.Timeout,
		log:     logger.Named("sampler"),
	}
}

// Sample fetches up to limit candidates for spec. Each retry attempt compiles
// a fresh plan, so a new random bucket is drawn when a query times out.
// Breaker-open rejections return immediately without touching the pool
func (s *Sampler) Sample(ctx context.Context, spec domain.FilterSpec, exclude []string, limit int) ([]domain.Candidate, error) {
	var out []domain.Candidate

	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		tr, ok := s.tiers.Narrowest(spec)
		plan := s.planner.Plan(spec, tr, ok, exclude, limit)

		qctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		got, err := s.breaker.Do(func() ([]domain.Candidate, error) {
			return s.repo.Fetch(qctx, plan)
		})
		if err != nil {
			// an expired per query budget is transient while the caller is
			// still live; the next attempt compiles a fresh random bucket
			if stderrs.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = perr.Wrap(err, perr.ErrorCodeUnavailable, "sample query timed out")
			}
			evt := s.log.Warn().Err(err).Str("source", plan.Source)
			if sid, ok := scope.Get(ctx, "session"); ok {
				evt = evt.Str("session", sid)
			}
			evt.Msg("sample attempt failed")
			return err
		}

		s.log.Debug().
			Str("source", plan.Source).
			Int("requested", limit).
			Int("returned", len(got)).
			Int("excluded", len(exclude)).
			Msg("sampled candidates")
		out = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExcludeCap reports how many exclusion ids a plan will push into SQL
func (s *Sampler) ExcludeCap() int { return s.planner.ExcludeCap() }

// CircuitState reports the database breaker state for health reporting
func (s *Sampler) CircuitState() resilience.State { return s.breaker.State() }

// CircuitOpen reports whether the database breaker currently rejects calls
func (s *Sampler) CircuitOpen() bool { return s.breaker.Open() }
