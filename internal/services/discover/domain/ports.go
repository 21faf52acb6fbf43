package domain

import "context"

// EnginePort is the discovery engine contract exposed to transports and
// other modules
type EnginePort interface {
	Next(ctx context.Context, sessionID string) (Candidate, error)
	Previous(ctx context.Context, sessionID string) (Candidate, error)
	SetFilter(ctx context.Context, sessionID string, spec FilterSpec) error
	MarkSeen(ctx context.Context, sessionID, tconst string) error
	AddToWatchlist(ctx context.Context, sessionID, tconst string) error
}

// SamplerPort fetches up to limit fresh candidates matching spec, skipping
// the excluded tconsts where the backend can do so cheaply
type SamplerPort interface {
	Sample(ctx context.Context, spec FilterSpec, exclude []string, limit int) ([]Candidate, error)
}

// EnricherPort decorates a candidate with poster and plot metadata.
// Enrichment is best effort: failures are absorbed and the candidate is
// left unchanged
type EnricherPort interface {
	Enrich(ctx context.Context, c *Candidate)
}
