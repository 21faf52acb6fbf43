package tier

import (
	"sync/atomic"

	"nextreel/internal/services/discover/domain"
)

// snapshot is an immutable published tier set. Readers grab the whole
// snapshot in one atomic load so a publish can never be observed half done
type snapshot struct {
	tiers []Tier
}

// Registry holds the current tier snapshot. Publish swaps whole generations;
// concurrent readers keep whatever snapshot they loaded
type Registry struct {
	cur atomic.Pointer[snapshot]
}

// NewRegistry returns a registry with an empty snapshot published
func NewRegistry() *Registry {
	r := &Registry{}
	r.cur.Store(&snapshot{})
	return r
}

// Publish replaces the visible tier set. The slice is copied, so the caller
// may reuse its backing array
func (r *Registry) Publish(tiers []Tier) {
	cp := make([]Tier, len(tiers))
	copy(cp, tiers)
	r.cur.Store(&snapshot{tiers: cp})
}

// Tiers returns the current snapshot's tiers. The returned slice must be
// treated as read only
func (r *Registry) Tiers() []Tier {
	return r.cur.Load().tiers
}

// Generation returns the highest generation in the snapshot, zero when empty.
// Surfaced by the health endpoint so operators can tell how fresh the
// published tiers are
func (r *Registry) Generation() int64 {
	var g int64
	for _, t := range r.cur.Load().tiers {
		if t.Generation > g {
			g = t.Generation
		}
	}
	return g
}

// Narrowest picks the covering tier with the fewest rows. The second return
// is false when no tier covers the spec and the caller must fall back to the
// base tables; that fallback is never an error
func (r *Registry) Narrowest(spec domain.FilterSpec) (Tier, bool) {
	var best Tier
	found := false
	for _, t := range r.cur.Load().tiers {
		if !t.Covers(spec) {
			continue
		}
		if !found || t.RowCount < best.RowCount {
			best = t
			found = true
		}
	}
	return best, found
}
