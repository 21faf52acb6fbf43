// Package queue holds the per session candidate buffers: cursor navigation,
// seen set dedup, and refill against the sampler
package queue

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"nextreel/internal/platform/logger"
	"nextreel/internal/services/discover/domain"
)

// redrawAttempts bounds consecutive refills within one Next call when a
// batch yields no deliverable candidates
const redrawAttempts = 3

// Config tunes session queues
type Config struct {
	// BufferTarget is the fill level a refill aims for
	BufferTarget int
	// LowWater is the remaining count that triggers an async top up
	LowWater int
	// KeepSeenAcrossFilters preserves cross filter dedup when the session
	// changes its filter
	KeepSeenAcrossFilters bool
}

func (c *Config) withDefaults() {
	if c.BufferTarget <= 0 {
		c.BufferTarget = 15
	}
	if c.LowWater < 0 || c.LowWater >= c.BufferTarget {
		c.LowWater = c.BufferTarget / 3
	}
}

// SessionQueue is one session's browsable candidate window. The buffer keeps
// delivered history so Previous can rewind without ever re-querying; the
// cursor indexes the last delivered candidate, -1 before the first Next
type SessionQueue struct {
	mu        sync.Mutex
	id        string
	spec      domain.FilterSpec
	buffer    []domain.Candidate
	cursor    int
	seen      map[string]struct{}
	exhausted bool
	epoch     uint64 // bumped by ApplyFilter so stale refills merge into nothing

	cfg     Config
	sampler domain.SamplerPort
	flight  *singleflight.Group
	log     *logger.Logger
}

func newSessionQueue(id string, sampler domain.SamplerPort, flight *singleflight.Group, cfg Config) *SessionQueue {
	var spec domain.FilterSpec
	spec.Normalize()
	return &SessionQueue{
		id:      id,
		spec:    spec,
		cursor:  -1,
		seen:    make(map[string]struct{}),
		cfg:     cfg,
		sampler: sampler,
		flight:  flight,
		log:     logger.Named("queue"),
	}
}

// Filter returns the session's active filter
func (q *SessionQueue) Filter() domain.FilterSpec {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.spec
}

// SeenCount returns the size of the session's seen set
func (q *SessionQueue) SeenCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}

// MarkSeen records a tconst in the dedup set without delivering it
func (q *SessionQueue) MarkSeen(tconst string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seen[tconst] = struct{}{}
}

// ApplyFilter validates and installs a new filter, dropping the buffer and
// cursor. The seen set survives when KeepSeenAcrossFilters is set, so a
// session never re-sees a title across filter changes
func (q *SessionQueue) ApplyFilter(spec domain.FilterSpec) error {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.spec = spec
	q.buffer = nil
	q.cursor = -1
	q.exhausted = false
	q.epoch++
	if !q.cfg.KeepSeenAcrossFilters {
		q.seen = make(map[string]struct{})
	}
	return nil
}

// Next delivers the next candidate, refilling synchronously when the buffer
// is drained and topping up in the background when it runs low. A drained
// queue over an exhausted result space returns ErrQueueEmpty
func (q *SessionQueue) Next(ctx context.Context) (domain.Candidate, error) {
	q.mu.Lock()
	if q.cursor+1 < len(q.buffer) {
		q.cursor++
		c := q.buffer[q.cursor]
		remaining := len(q.buffer) - q.cursor - 1
		topUp := remaining <= q.cfg.LowWater && !q.exhausted
		q.mu.Unlock()

		if topUp {
			go q.topUp(context.WithoutCancel(ctx))
		}
		return c, nil
	}
	if q.exhausted {
		q.mu.Unlock()
		return domain.Candidate{}, domain.ErrQueueEmpty
	}
	q.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := q.refill(ctx); err != nil {
			return domain.Candidate{}, err
		}

		q.mu.Lock()
		if q.cursor+1 < len(q.buffer) {
			q.cursor++
			c := q.buffer[q.cursor]
			q.mu.Unlock()
			return c, nil
		}
		exhausted := q.exhausted
		q.mu.Unlock()

		// a full batch can dedup away entirely once the seen set outgrows
		// the SQL exclusion cap; redraw a bounded number of times rather
		// than mistaking it for a consumed result space
		if exhausted || attempt+1 >= redrawAttempts {
			return domain.Candidate{}, domain.ErrQueueEmpty
		}
	}
}

// Update replaces the buffered candidate with the same tconst so later
// rewinds see enrichment applied after delivery. Unknown tconsts are a no op
func (q *SessionQueue) Update(c domain.Candidate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.buffer {
		if q.buffer[i].Tconst == c.Tconst {
			q.buffer[i] = c
			return
		}
	}
}

// Previous rewinds the cursor. It never queries the backend; at the history
// front it reports ErrBoundaryReached
func (q *SessionQueue) Previous() (domain.Candidate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor <= 0 {
		return domain.Candidate{}, domain.ErrBoundaryReached
	}
	q.cursor--
	return q.buffer[q.cursor], nil
}

// refill asks the sampler for enough candidates to restore the buffer
// target. Concurrent refills for the same session collapse to one query.
// Failure leaves all queue state untouched
func (q *SessionQueue) refill(ctx context.Context) error {
	q.mu.Lock()
	spec := q.spec
	epoch := q.epoch
	remaining := len(q.buffer) - q.cursor - 1
	limit := q.cfg.BufferTarget - remaining
	if limit <= 0 {
		q.mu.Unlock()
		return nil
	}
	exclude := make([]string, 0, len(q.seen))
	for id := range q.seen {
		exclude = append(exclude, id)
	}
	q.mu.Unlock()

	// the closure returns its own limit so joiners of a collapsed flight
	// judge exhaustion against the batch that actually ran
	type batch struct {
		got   []domain.Candidate
		limit int
	}
	v, err, _ := q.flight.Do(q.id, func() (any, error) {
		got, err := q.sampler.Sample(ctx, spec, exclude, limit)
		if err != nil {
			return nil, err
		}
		return batch{got: got, limit: limit}, nil
	})
	if err != nil {
		return err
	}
	b := v.(batch)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.epoch != epoch {
		// filter changed while the query ran; results belong to the old spec
		return nil
	}
	for _, c := range b.got {
		if _, dup := q.seen[c.Tconst]; dup {
			continue
		}
		q.seen[c.Tconst] = struct{}{}
		q.buffer = append(q.buffer, c)
	}
	if len(b.got) < b.limit {
		// short batch means the filtered space is consumed
		q.exhausted = true
	}
	return nil
}

func (q *SessionQueue) topUp(ctx context.Context) {
	if err := q.refill(ctx); err != nil {
		q.log.Debug().Err(err).Str("session", q.id).Msg("background top up failed")
	}
}
