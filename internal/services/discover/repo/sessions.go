package repo

import (
	"context"

	"nextreel/internal/modkit/repokit"
	perr "nextreel/internal/platform/errors"
)

// SessionRepo persists per session activity. Inserts are idempotent so
// repeated marks of the same title are harmless
type SessionRepo interface {
	RecordSeen(ctx context.Context, sessionID, tconst string) error
	RecordWatchlist(ctx context.Context, sessionID, tconst string) error
}

type (
	// SessionPG implements the SessionRepo interface using Postgres
	SessionPG struct{}

	sessionQueries struct{ q repokit.Queryer }
)

// NewSessionPG creates a new Postgres session repository binder
func NewSessionPG() repokit.Binder[SessionRepo] { return SessionPG{} }

// Bind binds a Postgres queryer to the SessionRepo implementation
func (SessionPG) Bind(q repokit.Queryer) SessionRepo { return &sessionQueries{q: q} }

func (r *sessionQueries) RecordSeen(ctx context.Context, sessionID, tconst string) error {
	const sql = `
		insert into session_seen (session_id, tconst)
		values ($1, $2)
		on conflict (session_id, tconst) do nothing
	`
	if _, err := r.q.Exec(ctx, sql, sessionID, tconst); err != nil {
		return perr.FromPostgres(err, "record seen")
	}
	return nil
}

func (r *sessionQueries) RecordWatchlist(ctx context.Context, sessionID, tconst string) error {
	const sql = `
		insert into session_watchlist (session_id, tconst)
		values ($1, $2)
		on conflict (session_id, tconst) do nothing
	`
	if _, err := r.q.Exec(ctx, sql, sessionID, tconst); err != nil {
		return perr.FromPostgres(err, "record watchlist")
	}
	return nil
}
