package queue

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"nextreel/internal/services/discover/domain"
)

// Sessions keys session queues by id. Sessions are created on first use and
// fully independent of each other; only same session refills collapse
type Sessions struct {
	mu      sync.Mutex
	m       map[string]*SessionQueue
	cfg     Config
	sampler domain.SamplerPort
	flight  singleflight.Group
}

// NewSessions builds a session keeper over a sampler
func NewSessions(sampler domain.SamplerPort, cfg Config) *Sessions {
	if sampler == nil {
		panic("queue.NewSessions requires a non nil SamplerPort")
	}
	cfg.withDefaults()
	return &Sessions{
		m:       make(map[string]*SessionQueue),
		cfg:     cfg,
		sampler: sampler,
	}
}

// Get returns the queue for id, creating it with the default filter when the
// session is new
func (s *Sessions) Get(id string) *SessionQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.m[id]
	if !ok {
		q = newSessionQueue(id, s.sampler, &s.flight, s.cfg)
		s.m[id] = q
	}
	return q
}

// Len reports how many sessions exist
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Drop removes a session and its state
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}
