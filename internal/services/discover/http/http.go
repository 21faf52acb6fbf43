// Package http provides http transport for discovery
package http

import (
	stdctx "context"
	"errors"
	stdhttp "net/http"

	"github.com/google/uuid"

	"nextreel/internal/modkit/httpkit"
	"nextreel/internal/modkit/scope"
	"nextreel/internal/services/discover/domain"
	svc "nextreel/internal/services/discover/service"
)

// SessionHeader carries the caller's session id. A fresh uuid is minted
// when the header is absent and echoed back in every payload
const SessionHeader = "X-Session-ID"

// Engine is the service surface the transport needs
type Engine interface {
	domain.EnginePort
	Health() svc.Health
}

// Register mounts discovery endpoints on the given router
func Register(r httpkit.Router, s Engine) {
	h := &handlers{svc: s}
	httpkit.Post(r, "/next", h.next)
	httpkit.Post(r, "/previous", h.previous)
	httpkit.PostJSON[domain.FilterSpec](r, "/filters", h.filters)
	httpkit.PostJSON[domain.TitleActionInput](r, "/seen", h.seen)
	httpkit.PostJSON[domain.TitleActionInput](r, "/watchlist", h.watchlist)
	httpkit.Get(r, "/healthz", h.healthz)
}

type handlers struct{ svc Engine }

// CandidateResponse is the wire shape for next and previous. State is "ok"
// when a candidate is attached, "empty" when the filtered space is
// consumed, "boundary" when the cursor cannot rewind further
type CandidateResponse struct {
	SessionID string            `json:"session_id"`
	State     string            `json:"state" example:"ok"`
	Candidate *domain.Candidate `json:"candidate,omitempty"`
}

// AckResponse is the wire shape for fire and forget actions
type AckResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state" example:"ok"`
}

// sessionOf resolves the caller's session id and stamps it into context
// scope so downstream logging can attribute queries to the session
func sessionOf(r *stdhttp.Request) (stdctx.Context, string) {
	sid := r.Header.Get(SessionHeader)
	if sid == "" {
		sid = uuid.NewString()
	}
	return scope.With(r.Context(), map[string]string{"session": sid}), sid
}

func (h *handlers) next(r *stdhttp.Request) (any, error) {
	ctx, sid := sessionOf(r)
	c, err := h.svc.Next(ctx, sid)
	switch {
	case err == nil:
		return CandidateResponse{SessionID: sid, State: "ok", Candidate: &c}, nil
	case errors.Is(err, domain.ErrQueueEmpty):
		return CandidateResponse{SessionID: sid, State: "empty"}, nil
	default:
		return nil, err
	}
}

func (h *handlers) previous(r *stdhttp.Request) (any, error) {
	ctx, sid := sessionOf(r)
	c, err := h.svc.Previous(ctx, sid)
	switch {
	case err == nil:
		return CandidateResponse{SessionID: sid, State: "ok", Candidate: &c}, nil
	case errors.Is(err, domain.ErrBoundaryReached):
		return CandidateResponse{SessionID: sid, State: "boundary"}, nil
	default:
		return nil, err
	}
}

func (h *handlers) filters(r *stdhttp.Request, in domain.FilterSpec) (any, error) {
	ctx, sid := sessionOf(r)
	if err := h.svc.SetFilter(ctx, sid, in); err != nil {
		return nil, err
	}
	return AckResponse{SessionID: sid, State: "ok"}, nil
}

func (h *handlers) seen(r *stdhttp.Request, in domain.TitleActionInput) (any, error) {
	ctx, sid := sessionOf(r)
	if err := h.svc.MarkSeen(ctx, sid, in.Tconst); err != nil {
		return nil, err
	}
	return AckResponse{SessionID: sid, State: "ok"}, nil
}

func (h *handlers) watchlist(r *stdhttp.Request, in domain.TitleActionInput) (any, error) {
	ctx, sid := sessionOf(r)
	if err := h.svc.AddToWatchlist(ctx, sid, in.Tconst); err != nil {
		return nil, err
	}
	return AckResponse{SessionID: sid, State: "ok"}, nil
}

func (h *handlers) healthz(_ *stdhttp.Request) (any, error) {
	return h.svc.Health(), nil
}
