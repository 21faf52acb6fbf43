// Package tier maintains the registry of materialized sampling tiers.
// A tier is a pre-filtered, pre-shuffled projection of the title corpus;
// queries against a covering tier scan a bounded slice instead of the
// 200M row base join
package tier

import "nextreel/internal/services/discover/domain"

// Tier describes one published tier generation. Bounds record the filter
// the tier was built with; a zero ceiling means unbounded
type Tier struct {
	Name       string  `db:"name"        json:"name"`
	Table      string  `db:"table_name"  json:"table"`
	Generation int64   `db:"generation"  json:"generation"`
	RowCount   int64   `db:"row_count"   json:"row_count"`
	TitleType  string  `db:"title_type"  json:"title_type,omitempty"`
	RatingMin  float64 `db:"rating_min"  json:"rating_min"`
	RatingMax  float64 `db:"rating_max"  json:"rating_max,omitempty"`
	VotesMin   int64   `db:"votes_min"   json:"votes_min"`
	VotesMax   int64   `db:"votes_max"   json:"votes_max,omitempty"`
	YearMin    int     `db:"year_min"    json:"year_min"`
	YearMax    int     `db:"year_max"    json:"year_max,omitempty"`
}

// Covers reports whether every row matching spec is guaranteed to be in the
// tier, i.e. the spec's ranges are subsets of the tier's build bounds
func (t Tier) Covers(spec domain.FilterSpec) bool {
	if t.TitleType != "" && t.TitleType != spec.TitleType {
		return false
	}
	if spec.RatingMin < t.RatingMin {
		return false
	}
	if t.RatingMax > 0 && spec.RatingMax > t.RatingMax {
		return false
	}
	if int64(spec.VotesMin) < t.VotesMin {
		return false
	}
	if t.VotesMax > 0 && int64(spec.VotesMax) > t.VotesMax {
		return false
	}
	if t.YearMin > 0 && spec.YearMin < t.YearMin {
		return false
	}
	if t.YearMax > 0 && spec.YearMax > t.YearMax {
		return false
	}
	return true
}
