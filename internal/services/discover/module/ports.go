package module

import (
	"context"

	discoverdom "nextreel/internal/services/discover/domain"
	discoversvc "nextreel/internal/services/discover/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptEnginePort adapts the discovery service to the domain port interface
type adaptEnginePort struct{ svc discoversvc.Service }

// Next implements the domain EnginePort interface
func (a adaptEnginePort) Next(ctx context.Context, sessionID string) (discoverdom.Candidate, error) {
	return a.svc.Next(ctx, sessionID)
}

// Previous implements the domain EnginePort interface
func (a adaptEnginePort) Previous(ctx context.Context, sessionID string) (discoverdom.Candidate, error) {
	return a.svc.Previous(ctx, sessionID)
}

// SetFilter implements the domain EnginePort interface
func (a adaptEnginePort) SetFilter(ctx context.Context, sessionID string, spec discoverdom.FilterSpec) error {
	return a.svc.SetFilter(ctx, sessionID, spec)
}

// MarkSeen implements the domain EnginePort interface
func (a adaptEnginePort) MarkSeen(ctx context.Context, sessionID, tconst string) error {
	return a.svc.MarkSeen(ctx, sessionID, tconst)
}

// AddToWatchlist implements the domain EnginePort interface
func (a adaptEnginePort) AddToWatchlist(ctx context.Context, sessionID, tconst string) error {
	return a.svc.AddToWatchlist(ctx, sessionID, tconst)
}
