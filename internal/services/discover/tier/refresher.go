package tier

import (
	"context"
	"time"

	perr "nextreel/internal/platform/errors"
	"nextreel/internal/platform/logger"
	"nextreel/internal/platform/store"
)

// Loader reads the published tier metadata rows. The tier rebuild job itself
// is external; this side only observes what it publishes
type Loader interface {
	Load(ctx context.Context) ([]Tier, error)
}

// PGLoader reads discovery_tiers through the store seam
type PGLoader struct {
	q store.RowQuerier
}

// NewPGLoader builds a loader over a row querier
func NewPGLoader(q store.RowQuerier) *PGLoader { return &PGLoader{q: q} }

// Load returns the currently published tiers, narrowest first
func (l *PGLoader) Load(ctx context.Context) ([]Tier, error) {
	const sql = `
select name, table_name, generation, row_count, title_type,
       rating_min, rating_max, votes_min, votes_max, year_min, year_max
from discovery_tiers
where published
order by row_count asc
`
	out, err := store.StructsByName[Tier](ctx, l.q, sql)
	if err != nil {
		return nil, perr.FromPostgres(err, "load discovery tiers")
	}
	return out, nil
}

// Refresher polls the loader and republishes the registry when a new tier
// generation appears
type Refresher struct {
	reg      *Registry
	loader   Loader
	interval time.Duration
	log      *logger.Logger
}

// NewRefresher builds a refresher; interval must be positive
func NewRefresher(reg *Registry, loader Loader, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		reg:      reg,
		loader:   loader,
		interval: interval,
		log:      logger.Named("tier.refresher"),
	}
}

// Run loads once immediately, then polls until ctx is done. Load failures
// keep the previous snapshot; readers are never left without tiers they had
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	tick := time.NewTicker(r.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	tiers, err := r.loader.Load(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("tier refresh failed, keeping current snapshot")
		return
	}

	if gen := maxGeneration(tiers); gen != r.reg.Generation() || len(tiers) != len(r.reg.Tiers()) {
		r.reg.Publish(tiers)
		r.log.Info().
			Int("tiers", len(tiers)).
			Int64("generation", gen).
			Msg("published tier snapshot")
	}
}

func maxGeneration(tiers []Tier) int64 {
	var g int64
	for _, t := range tiers {
		if t.Generation > g {
			g = t.Generation
		}
	}
	return g
}
