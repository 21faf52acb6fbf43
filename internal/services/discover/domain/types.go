// Package domain holds the discovery filter, candidate, and signal types
// shared by the discover http, service, queue, and repo layers
package domain

import (
	"strings"
	"time"

	perr "nextreel/internal/platform/errors"
)

const (
	// DefaultYearMin is the release year floor applied when unset
	DefaultYearMin = 1900
	// DefaultRatingMax is the rating ceiling applied when unset
	DefaultRatingMax = 10.0
	// DefaultVotesMax is the vote count ceiling applied when unset
	DefaultVotesMax = 1 << 31

	// GenreCap is the selection count at which a genre list means "any genre"
	// and the predicate is dropped entirely
	GenreCap = 15

	// LanguageAny disables the language predicate; NULL languages pass
	LanguageAny = "any"

	// DefaultTitleType is applied when no title type is given
	DefaultTitleType = "movie"
)

// titleTypes is the known corpus title_type vocabulary
var titleTypes = map[string]struct{}{
	"movie":        {},
	"short":        {},
	"tvEpisode":    {},
	"tvMiniSeries": {},
	"tvMovie":      {},
	"tvSeries":     {},
	"tvShort":      {},
	"tvSpecial":    {},
	"video":        {},
	"videoGame":    {},
}

// FilterSpec narrows the candidate corpus. Zero-valued ranges mean unset and
// are filled by Normalize; a spec must be normalized before validation
type FilterSpec struct {
	YearMin   int      `json:"year_min,omitempty"   validate:"omitempty,min=1874,max=2100" example:"1990"`
	YearMax   int      `json:"year_max,omitempty"   validate:"omitempty,min=1874,max=2100" example:"2020"`
	RatingMin float64  `json:"rating_min,omitempty" validate:"omitempty,min=0,max=10"      example:"7"`
	RatingMax float64  `json:"rating_max,omitempty" validate:"omitempty,min=0,max=10"      example:"10"`
	VotesMin  int      `json:"votes_min,omitempty"  validate:"omitempty,min=0"             example:"100000"`
	VotesMax  int      `json:"votes_max,omitempty"  validate:"omitempty,min=0"             example:"1000000"`
	Genres    []string `json:"genres,omitempty"     validate:"omitempty,max=28,dive,min=1,max=32" example:"Action"`
	Language  string   `json:"language,omitempty"   validate:"omitempty,min=2,max=16"      example:"en"`
	TitleType string   `json:"title_type,omitempty" validate:"omitempty,min=1,max=24"      example:"movie"`
}

// Normalize fills defaults and canonicalizes the spec in place:
// years default to 1900..current year, rating to 0..10, votes to 0..cap,
// language lowercases (empty means any), genres are trimmed and title-cased,
// and a selection of GenreCap or more genres drops the genre predicate
func (f *FilterSpec) Normalize() {
	if f.YearMin == 0 {
		f.YearMin = DefaultYearMin
	}
	if f.YearMax == 0 {
		f.YearMax = time.Now().Year()
	}
	if f.RatingMax == 0 {
		f.RatingMax = DefaultRatingMax
	}
	if f.VotesMax == 0 {
		f.VotesMax = DefaultVotesMax
	}

	f.Language = strings.ToLower(strings.TrimSpace(f.Language))
	if f.Language == "" {
		f.Language = LanguageAny
	}

	f.TitleType = strings.TrimSpace(f.TitleType)
	if f.TitleType == "" {
		f.TitleType = DefaultTitleType
	}

	genres := make([]string, 0, len(f.Genres))
	for _, g := range f.Genres {
		if g = canonGenre(g); g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) >= GenreCap {
		genres = nil
	}
	f.Genres = genres
}

// Validate checks range ordering and vocabulary; failures carry
// ErrorCodeValidation with the offending field attached
func (f FilterSpec) Validate() error {
	if f.YearMin > f.YearMax {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "year_min %d exceeds year_max %d", f.YearMin, f.YearMax),
			"year_min",
		)
	}
	if f.RatingMin > f.RatingMax {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "rating_min %.1f exceeds rating_max %.1f", f.RatingMin, f.RatingMax),
			"rating_min",
		)
	}
	if f.RatingMin < 0 || f.RatingMax > 10 {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "rating bounds %.1f..%.1f outside 0..10", f.RatingMin, f.RatingMax),
			"rating_min",
		)
	}
	if f.VotesMin < 0 {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "votes_min %d is negative", f.VotesMin),
			"votes_min",
		)
	}
	if f.VotesMin > f.VotesMax {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "votes_min %d exceeds votes_max %d", f.VotesMin, f.VotesMax),
			"votes_min",
		)
	}
	if _, ok := titleTypes[f.TitleType]; !ok {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "unknown title_type %q", f.TitleType),
			"title_type",
		)
	}
	return nil
}

// GenresActive reports whether the genre predicate survived normalization
func (f FilterSpec) GenresActive() bool { return len(f.Genres) > 0 }

// LanguageActive reports whether the language predicate applies
func (f FilterSpec) LanguageActive() bool { return f.Language != LanguageAny }

// canonGenre trims and title-cases one genre, preserving hyphen segments
// so "sci-fi" becomes "Sci-Fi"
func canonGenre(g string) string {
	g = strings.TrimSpace(g)
	if g == "" {
		return ""
	}
	parts := strings.Split(strings.ToLower(g), "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}

// Candidate is one deliverable title. Poster and plot stay nil until the
// enricher has run for it
type Candidate struct {
	Tconst    string   `json:"tconst"               example:"tt0133093"`
	Title     string   `json:"title"                example:"The Matrix"`
	Year      int      `json:"year"                 example:"1999"`
	Genres    []string `json:"genres,omitempty"     example:"Action"`
	Language  string   `json:"language,omitempty"   example:"en"`
	Rating    float64  `json:"rating"               example:"8.7"`
	Votes     int      `json:"votes"                example:"2000000"`
	PosterURL *string  `json:"poster_url,omitempty"`
	Plot      *string  `json:"plot,omitempty"`
	Enriched  bool     `json:"enriched"`
}

// TitleActionInput names a title for seen and watchlist actions
type TitleActionInput struct {
	Tconst string `json:"tconst" validate:"required" example:"tt0111161"`
}

// Queue-level outcomes are control flow, not failures; handlers translate
// them into envelope states rather than error payloads
var (
	// ErrQueueEmpty means the filtered result space is fully consumed
	ErrQueueEmpty = perr.New(perr.ErrorCodeExhausted, "candidate queue exhausted")

	// ErrBoundaryReached means the cursor is at the history front and
	// previous cannot rewind further
	ErrBoundaryReached = perr.New(perr.ErrorCodeConflict, "history boundary reached")

	// ErrServiceDegraded means the buffer is drained and the database
	// circuit is open, so nothing can be served right now
	ErrServiceDegraded = perr.New(perr.ErrorCodeCircuitOpen, "discovery degraded, retry later")
)
