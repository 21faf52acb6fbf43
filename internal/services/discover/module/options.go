package module

import (
	"time"

	"nextreel/internal/platform/config"
	"nextreel/internal/services/discover/domain"
	"nextreel/internal/services/discover/tier"
)

// Options controls the discovery engine module
type Options struct {
	BufferTarget          int
	LowWater              int
	KeepSeenAcrossFilters bool
	Overscan              int
	ExcludeCap            int
	SampleTimeout         time.Duration
	BreakerThreshold      int
	BreakerCooldown       time.Duration
	RetryAttempts         int
	RetryBase             time.Duration

	// Tiers is the shared cache tier registry, usually fed by a refresher
	// started in main. Nil gets an empty registry and base table sampling
	Tiers *tier.Registry

	// Enricher overrides the TMDB backed default, mostly for tests
	Enricher domain.EnricherPort
}

// FromConfig reads with DISCOVER_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("DISCOVER_")
	return Options{
		BufferTarget:          c.MayInt("BUFFER_TARGET", 15),
		LowWater:              c.MayInt("LOW_WATER", 5),
		KeepSeenAcrossFilters: c.MayBool("KEEP_SEEN_ACROSS_FILTERS", true),
		Overscan:              c.MayInt("OVERSCAN", 8),
		ExcludeCap:            c.MayInt("EXCLUDE_CAP", 400),
		SampleTimeout:         c.MayDuration("SAMPLE_TIMEOUT", 3*time.Second),
		BreakerThreshold:      c.MayInt("BREAKER_THRESHOLD", 5),
		BreakerCooldown:       c.MayDuration("BREAKER_COOLDOWN", 30*time.Second),
		RetryAttempts:         c.MayInt("RETRY_ATTEMPTS", 3),
		RetryBase:             c.MayDuration("RETRY_BASE", 100*time.Millisecond),
	}
}
