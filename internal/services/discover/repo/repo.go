package repo

import (
	"context"
	"strings"

	"nextreel/internal/modkit/repokit"
	perr "nextreel/internal/platform/errors"
	"nextreel/internal/services/discover/domain"
)

// Repo executes compiled sampling plans
type Repo interface {
	Fetch(ctx context.Context, plan QueryPlan) ([]domain.Candidate, error)
}

type (
	// PG implements the Repo interface using Postgres
	PG struct{}

	// queries holds the database query methods
	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Fetch runs the plan and scans candidates. Tier tables carry genres as
// text[], the base join as comma joined text; the plan records which shape
// to expect
func (r *queries) Fetch(ctx context.Context, plan QueryPlan) ([]domain.Candidate, error) {
	rows, err := r.q.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, perr.FromPostgresf(err, "sample query against %s", plan.Source)
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, plan.Limit)
	for rows.Next() {
		var (
			c    domain.Candidate
			year *int
			lang *string
		)
		if plan.Tier {
			var genres []string
			err = rows.Scan(&c.Tconst, &c.Title, &year, &genres, &lang, &c.Rating, &c.Votes)
			c.Genres = genres
		} else {
			var genres *string
			err = rows.Scan(&c.Tconst, &c.Title, &year, &genres, &lang, &c.Rating, &c.Votes)
			if genres != nil && *genres != "" {
				c.Genres = strings.Split(*genres, ",")
			}
		}
		if err != nil {
			return nil, perr.FromPostgres(err, "scan candidate row")
		}
		if year != nil {
			c.Year = *year
		}
		if lang != nil {
			c.Language = *lang
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "iterate candidate rows")
	}
	return out, nil
}
