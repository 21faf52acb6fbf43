// Package repo compiles and executes sampling queries for the discover
// service. Selection is a random bucket over a pre-shuffled ordering column,
// never ORDER BY random() over the full match set, so scan cost stays
// proportional to the requested batch rather than the corpus
package repo

import (
	"fmt"
	"math/rand"
	"strings"

	"nextreel/internal/services/discover/domain"
	"nextreel/internal/services/discover/tier"
)

const (
	// DefaultOverscan is the bucket width multiplier: a bucket of
	// limit*overscan rows is scanned so residual predicates still leave
	// enough matches to fill the batch
	DefaultOverscan = 8

	// DefaultExcludeCap bounds the NOT IN exclusion list pushed into SQL;
	// beyond it the queue's own dedup owns exclusion
	DefaultExcludeCap = 400

	// hashMask folds hashtext output into a non negative 31 bit sample key
	hashMask = 2147483647
)

// QueryPlan is one compiled sampling query ready for execution
type QueryPlan struct {
	SQL    string
	Args   []any
	Source string // tier name, or "base" for the two table join
	Tier   bool   // column shapes differ between tier and base reads
	Limit  int
}

// PlannerConfig tunes plan compilation
type PlannerConfig struct {
	Overscan   int
	ExcludeCap int
	// Rand returns a uniform value in [0, n); defaults to math/rand
	Rand func(n int64) int64
}

// Planner compiles FilterSpecs into QueryPlans
type Planner struct {
	overscan   int
	excludeCap int
	rand       func(n int64) int64
}

// NewPlanner builds a planner from config, filling defaults
func NewPlanner(cfg PlannerConfig) *Planner {
	if cfg.Overscan <= 0 {
		cfg.Overscan = DefaultOverscan
	}
	if cfg.ExcludeCap <= 0 {
		cfg.ExcludeCap = DefaultExcludeCap
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Int63n
	}
	return &Planner{overscan: cfg.Overscan, excludeCap: cfg.ExcludeCap, rand: cfg.Rand}
}

// ExcludeCap returns the SQL exclusion list bound
func (p *Planner) ExcludeCap() int { return p.excludeCap }

// Plan compiles a sampling query. When tierOK the query reads the tier table
// through a random shuffle_key bucket of limit*overscan rows; otherwise it
// falls back to the basics and ratings join with a random hash threshold
func (p *Planner) Plan(spec domain.FilterSpec, tr tier.Tier, tierOK bool, exclude []string, limit int) QueryPlan {
	if limit <= 0 {
		limit = 1
	}
	if tierOK {
		return p.planTier(spec, tr, exclude, limit)
	}
	return p.planBase(spec, exclude, limit)
}

func (p *Planner) planTier(spec domain.FilterSpec, tr tier.Tier, exclude []string, limit int) QueryPlan {
	var (
		b    strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString("select tconst, primary_title, start_year, genres, language, average_rating, num_votes\nfrom ")
	b.WriteString(tr.Table)
	b.WriteString("\nwhere ")

	window := int64(limit * p.overscan)
	if span := tr.RowCount - window; span > 0 {
		start := p.rand(span + 1)
		b.WriteString("shuffle_key >= " + arg(start))
		b.WriteString(" and shuffle_key < " + arg(start+window))
	} else {
		// tier smaller than one bucket: scan it whole
		b.WriteString("shuffle_key >= 0")
	}

	// residual predicates for ranges narrower than the tier's build bounds
	if spec.YearMin > tr.YearMin || tr.YearMin == 0 {
		b.WriteString(" and start_year >= " + arg(spec.YearMin))
	}
	if tr.YearMax == 0 || spec.YearMax < tr.YearMax {
		b.WriteString(" and start_year <= " + arg(spec.YearMax))
	}
	if spec.RatingMin > tr.RatingMin {
		b.WriteString(" and average_rating >= " + arg(spec.RatingMin))
	}
	if spec.RatingMax < domain.DefaultRatingMax {
		b.WriteString(" and average_rating <= " + arg(spec.RatingMax))
	}
	if int64(spec.VotesMin) > tr.VotesMin {
		b.WriteString(" and num_votes >= " + arg(spec.VotesMin))
	}
	if spec.VotesMax < domain.DefaultVotesMax {
		b.WriteString(" and num_votes <= " + arg(spec.VotesMax))
	}
	if spec.GenresActive() {
		b.WriteString(" and genres @> " + arg(spec.Genres))
	}
	if spec.LanguageActive() {
		b.WriteString(" and language = " + arg(spec.Language))
	}
	if tr.TitleType == "" {
		b.WriteString(" and title_type = " + arg(spec.TitleType))
	}
	if n := len(exclude); n > 0 && n <= p.excludeCap {
		b.WriteString(" and tconst <> all(" + arg(exclude) + ")")
	}

	b.WriteString("\norder by shuffle_key\nlimit " + arg(limit))

	return QueryPlan{SQL: b.String(), Args: args, Source: tr.Name, Tier: true, Limit: limit}
}

func (p *Planner) planBase(spec domain.FilterSpec, exclude []string, limit int) QueryPlan {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	const sampleKey = "(hashtext(b.tconst) & 2147483647)"

	var conds []string
	conds = append(conds, "b.title_type = "+arg(spec.TitleType))
	conds = append(conds, "b.start_year between "+arg(spec.YearMin)+" and "+arg(spec.YearMax))
	conds = append(conds, "r.average_rating between "+arg(spec.RatingMin)+" and "+arg(spec.RatingMax))
	conds = append(conds, "r.num_votes between "+arg(spec.VotesMin)+" and "+arg(spec.VotesMax))

	// base genres column is comma joined text, membership via LIKE
	for _, g := range spec.Genres {
		conds = append(conds, "b.genres like "+arg("%"+g+"%"))
	}
	if spec.LanguageActive() {
		conds = append(conds, "b.language = "+arg(spec.Language))
	}
	if n := len(exclude); n > 0 && n <= p.excludeCap {
		conds = append(conds, "b.tconst <> all("+arg(exclude)+")")
	}

	// a random threshold over the stable hash key plays the shuffle_key
	// role; the wrapped second branch keeps short tails from faking
	// exhaustion when the threshold lands near the top of the key space
	thr := arg(p.rand(hashMask))
	lim := arg(limit)

	sel := "select b.tconst, b.primary_title, b.start_year, b.genres, b.language, r.average_rating, r.num_votes\n" +
		"from title_basics b\njoin title_ratings r on r.tconst = b.tconst\nwhere "
	where := strings.Join(conds, " and ")

	sql := "select * from (\n" +
		"(" + sel + sampleKey + " >= " + thr + " and " + where + "\norder by " + sampleKey + " limit " + lim + ")\n" +
		"union all\n" +
		"(" + sel + sampleKey + " < " + thr + " and " + where + "\norder by " + sampleKey + " limit " + lim + ")\n" +
		") s limit " + lim

	return QueryPlan{SQL: sql, Args: args, Source: "base", Tier: false, Limit: limit}
}
