// Package module wires the discovery engine into the API using modkit
package module

import (
	"context"
	"net/http"
	"time"

	modkit "nextreel/internal/modkit"
	"nextreel/internal/modkit/httpkit"
	"nextreel/internal/platform/resilience"
	str "nextreel/internal/platform/strings"
	"nextreel/internal/services/discover/domain"
	discoverhttp "nextreel/internal/services/discover/http"
	"nextreel/internal/services/discover/queue"
	discoverrepo "nextreel/internal/services/discover/repo"
	"nextreel/internal/services/discover/sampler"
	discoversvc "nextreel/internal/services/discover/service"
	"nextreel/internal/services/discover/tier"
	"nextreel/internal/services/enrich"
)

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports any

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *discoversvc.Svc
}

// New constructs a discovery module with the provided dependencies and options
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("discover"),
		modkit.WithPrefix("/discover"),
	}, opts...)...)

	o := FromConfig(deps.Cfg)
	applyOverrides(&o, overrides)

	tiers := overrides.Tiers
	if tiers == nil {
		tiers = tier.NewRegistry()
	}

	enricher := overrides.Enricher
	if enricher == nil {
		enricher = enricherFromConfig(deps)
	}

	smp := sampler.New(deps.PG, discoverrepo.NewPG(), tiers, sampler.Config{
		Timeout:    o.SampleTimeout,
		Overscan:   o.Overscan,
		ExcludeCap: o.ExcludeCap,
		Breaker: resilience.BreakerConfig{
			Name:      "discover-db",
			Threshold: uint32(o.BreakerThreshold),
			Cooldown:  o.BreakerCooldown,
		},
		Retry: resilience.Policy{Attempts: o.RetryAttempts, Base: o.RetryBase},
	})

	svc := discoversvc.New(deps.PG, discoverrepo.NewSessionPG(), smp, enricher, tiers, queue.Config{
		BufferTarget:          o.BufferTarget,
		LowWater:              o.LowWater,
		KeepSeenAcrossFilters: o.KeepSeenAcrossFilters,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptEnginePort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		discoverhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

func applyOverrides(o *Options, ov Options) {
	if ov.BufferTarget != 0 {
		o.BufferTarget = ov.BufferTarget
	}
	if ov.LowWater != 0 {
		o.LowWater = ov.LowWater
	}
	if ov.Overscan != 0 {
		o.Overscan = ov.Overscan
	}
	if ov.ExcludeCap != 0 {
		o.ExcludeCap = ov.ExcludeCap
	}
	if ov.SampleTimeout != 0 {
		o.SampleTimeout = ov.SampleTimeout
	}
	if ov.BreakerThreshold != 0 {
		o.BreakerThreshold = ov.BreakerThreshold
	}
	if ov.BreakerCooldown != 0 {
		o.BreakerCooldown = ov.BreakerCooldown
	}
	if ov.RetryAttempts != 0 {
		o.RetryAttempts = ov.RetryAttempts
	}
	if ov.RetryBase != 0 {
		o.RetryBase = ov.RetryBase
	}
}

// enricherFromConfig builds the TMDB backed enricher, or a noop when no API
// key is configured so local runs work without credentials
func enricherFromConfig(deps modkit.Deps) domain.EnricherPort {
	c := deps.Cfg.Prefix("ENRICH_")
	key := c.MayString("TMDB_API_KEY", "")
	if key == "" {
		return noopEnricher{}
	}
	client := enrich.NewClient(enrich.ClientConfig{
		BaseURL:   c.MayString("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		APIKey:    key,
		ImageBase: c.MayString("TMDB_IMAGE_BASE", ""),
		Timeout:   c.MayDuration("TMDB_TIMEOUT", 5*time.Second),
	})
	return enrich.New(client, enrich.Config{
		RatePerSec: c.MayFloat64("RATE_PER_SEC", 20),
		Burst:      c.MayInt("BURST", 5),
		Breaker: resilience.BreakerConfig{
			Name: "enrich-tmdb",
		},
	})
}

type noopEnricher struct{}

func (noopEnricher) Enrich(context.Context, *domain.Candidate) {}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
