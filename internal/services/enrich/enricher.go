package enrich

import (
	"context"

	"golang.org/x/time/rate"

	perr "nextreel/internal/platform/errors"
	"nextreel/internal/platform/logger"
	"nextreel/internal/platform/resilience"
	"nextreel/internal/services/discover/domain"
)

// Config tunes the enricher throttle and breaker
type Config struct {
	// RatePerSec caps provider calls; the provider's public tier allows
	// around 40 requests per second
	RatePerSec float64
	Burst      int
	Breaker    resilience.BreakerConfig
}

// Enricher implements domain.EnricherPort behind its own circuit breaker and
// rate limiter. Its breaker state never blocks candidate delivery
type Enricher struct {
	provider Provider
	breaker  *resilience.Breaker[Metadata]
	limiter  *rate.Limiter
	log      *logger.Logger
}

// New builds an Enricher over a provider
func New(p Provider, cfg Config) *Enricher {
	if p == nil {
		panic("enrich.New requires a non nil Provider")
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "enrich-provider"
	}
	// a missing title is an answer, not a provider failure
	if cfg.Breaker.Ignore == nil {
		cfg.Breaker.Ignore = func(err error) bool {
			return perr.IsCode(err, perr.ErrorCodeNotFound)
		}
	}

	return &Enricher{
		provider: p,
		breaker:  resilience.NewBreaker[Metadata](cfg.Breaker),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		log:      logger.Named("enrich"),
	}
}

// Enrich fills poster and plot on the candidate. Best effort only: rate
// limit waits are bounded by ctx, and breaker rejections, timeouts, missing
// titles, and malformed payloads all leave the candidate unchanged
func (e *Enricher) Enrich(ctx context.Context, c *domain.Candidate) {
	if c == nil || c.Enriched {
		return
	}

	if err := e.limiter.Wait(ctx); err != nil {
		e.log.Debug().Err(err).Str("tconst", c.Tconst).Msg("rate limit wait cut short")
		return
	}

	md, err := e.breaker.Do(func() (Metadata, error) {
		return e.provider.Lookup(ctx, c.Tconst)
	})
	if err != nil {
		e.log.Debug().Err(err).Str("tconst", c.Tconst).Msg("enrichment skipped")
		return
	}

	if md.PosterURL != "" {
		c.PosterURL = &md.PosterURL
	}
	if md.Plot != "" {
		c.Plot = &md.Plot
	}
	c.Enriched = true
}

// CircuitState reports the provider breaker state for health reporting
func (e *Enricher) CircuitState() resilience.State { return e.breaker.State() }
