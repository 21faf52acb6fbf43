// Package enrich decorates candidates with poster and plot metadata from a
// TMDb style provider. Everything here is best effort: delivery never waits
// on metadata beyond its own context budget
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	perr "nextreel/internal/platform/errors"
	"nextreel/internal/platform/logger"
)

// DefaultImageBase is the provider's poster CDN prefix
const DefaultImageBase = "https://image.tmdb.org/t/p/w500"

// Metadata is what the provider yields for one title
type Metadata struct {
	PosterURL string
	Plot      string
}

// Provider resolves imdb title ids to metadata
type Provider interface {
	Lookup(ctx context.Context, tconst string) (Metadata, error)
}

// ClientConfig configures the provider client
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	ImageBase string
	Timeout   time.Duration
}

// Client talks to a TMDb shaped HTTP API: find by imdb id first, then the
// movie detail document for poster path and overview
type Client struct {
	http    *http.Client
	base    string
	key     string
	imgBase string
	log     *logger.Logger
}

// NewClient builds a Client; BaseURL and APIKey are required
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		panic("enrich.NewClient requires a base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ImageBase == "" {
		cfg.ImageBase = DefaultImageBase
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		base:    cfg.BaseURL,
		key:     cfg.APIKey,
		imgBase: cfg.ImageBase,
		log:     logger.Named("enrich.client"),
	}
}

type findResponse struct {
	MovieResults []struct {
		ID int64 `json:"id"`
	} `json:"movie_results"`
}

type movieResponse struct {
	PosterPath string `json:"poster_path"`
	Overview   string `json:"overview"`
}

// Lookup resolves a tconst to its poster URL and plot. A title unknown to
// the provider comes back as ErrorCodeNotFound
func (c *Client) Lookup(ctx context.Context, tconst string) (Metadata, error) {
	var find findResponse
	if err := c.get(ctx, fmt.Sprintf("/find/%s", url.PathEscape(tconst)), url.Values{
		"external_source": {"imdb_id"},
	}, &find); err != nil {
		return Metadata{}, err
	}
	if len(find.MovieResults) == 0 {
		return Metadata{}, perr.NotFoundf("no provider match for %s", tconst)
	}

	var movie movieResponse
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", find.MovieResults[0].ID), nil, &movie); err != nil {
		return Metadata{}, err
	}

	md := Metadata{Plot: movie.Overview}
	if movie.PosterPath != "" {
		md.PosterURL = c.imgBase + movie.PosterPath
	}
	return md, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	if c.key != "" {
		q.Set("api_key", c.key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "build provider request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "provider request %s", path)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return perr.NotFoundf("provider has no document at %s", path)
	case res.StatusCode == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "provider throttled %s", path)
	case res.StatusCode != http.StatusOK:
		return perr.Unavailablef("provider returned %d for %s", res.StatusCode, path)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "decode provider response for %s", path)
	}
	return nil
}
