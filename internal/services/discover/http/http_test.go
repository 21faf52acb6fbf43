package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	phttp "nextreel/internal/platform/net/http"
	"nextreel/internal/services/discover/domain"
	svc "nextreel/internal/services/discover/service"
)

type fakeEngine struct {
	nextErr error
	prevErr error
	setErr  error
	seenErr error
	watchErr error

	lastSession string
	lastTconst  string
	lastSpec    domain.FilterSpec
}

func (f *fakeEngine) Next(_ context.Context, sessionID string) (domain.Candidate, error) {
	f.lastSession = sessionID
	if f.nextErr != nil {
		return domain.Candidate{}, f.nextErr
	}
	return domain.Candidate{Tconst: "tt0133093", Title: "The Matrix", Year: 1999}, nil
}

func (f *fakeEngine) Previous(_ context.Context, sessionID string) (domain.Candidate, error) {
	f.lastSession = sessionID
	if f.prevErr != nil {
		return domain.Candidate{}, f.prevErr
	}
	return domain.Candidate{Tconst: "tt0111161", Title: "The Shawshank Redemption", Year: 1994}, nil
}

func (f *fakeEngine) SetFilter(_ context.Context, sessionID string, spec domain.FilterSpec) error {
	f.lastSession = sessionID
	f.lastSpec = spec
	return f.setErr
}

func (f *fakeEngine) MarkSeen(_ context.Context, sessionID, tconst string) error {
	f.lastSession = sessionID
	f.lastTconst = tconst
	return f.seenErr
}

func (f *fakeEngine) AddToWatchlist(_ context.Context, sessionID, tconst string) error {
	f.lastSession = sessionID
	f.lastTconst = tconst
	return f.watchErr
}

func (f *fakeEngine) Health() svc.Health {
	return svc.Health{DataCircuit: "closed", EnrichCircuit: "closed", TierGeneration: 3, Tiers: 2}
}

func newTestServer(f *fakeEngine) *httptest.Server {
	r := phttp.AdaptChi(chi.NewMux())
	Register(r, f)
	return httptest.NewServer(r.Mux())
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func doPost(t *testing.T, srv *httptest.Server, path, session, body string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func TestNext_DeliversCandidateAndEchoesSession(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	srv := newTestServer(f)
	defer srv.Close()

	resp, env := doPost(t, srv, "/next", "sess-42", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d want 200", resp.StatusCode)
	}
	var out CandidateResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.State != "ok" || out.SessionID != "sess-42" {
		t.Fatalf("payload = %+v", out)
	}
	if out.Candidate == nil || out.Candidate.Tconst != "tt0133093" {
		t.Fatalf("candidate = %+v", out.Candidate)
	}
	if f.lastSession != "sess-42" {
		t.Fatalf("engine saw session %q", f.lastSession)
	}
}

func TestNext_MintsSessionWhenHeaderAbsent(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	srv := newTestServer(f)
	defer srv.Close()

	_, env := doPost(t, srv, "/next", "", "")
	var out CandidateResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if _, err := uuid.Parse(out.SessionID); err != nil {
		t.Fatalf("minted session %q is not a uuid: %v", out.SessionID, err)
	}
}

func TestNext_EmptyQueueIsAStateNotAnError(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{nextErr: domain.ErrQueueEmpty}
	srv := newTestServer(f)
	defer srv.Close()

	resp, env := doPost(t, srv, "/next", "s", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d want 200", resp.StatusCode)
	}
	var out CandidateResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.State != "empty" || out.Candidate != nil {
		t.Fatalf("payload = %+v", out)
	}
}

func TestNext_DegradedMapsTo503(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{nextErr: domain.ErrServiceDegraded}
	srv := newTestServer(f)
	defer srv.Close()

	resp, env := doPost(t, srv, "/next", "s", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d want 503", resp.StatusCode)
	}
	if env.Error == "" {
		t.Fatal("expected error message in envelope")
	}
}

func TestPrevious_BoundaryIsAStateNotAnError(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{prevErr: domain.ErrBoundaryReached}
	srv := newTestServer(f)
	defer srv.Close()

	resp, env := doPost(t, srv, "/previous", "s", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d want 200", resp.StatusCode)
	}
	var out CandidateResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.State != "boundary" {
		t.Fatalf("state = %q want boundary", out.State)
	}
}

func TestFilters_PassesSpecThrough(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	srv := newTestServer(f)
	defer srv.Close()

	resp, _ := doPost(t, srv, "/filters", "s", `{"year_min":1990,"year_max":1999,"genres":["Action"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d want 200", resp.StatusCode)
	}
	if f.lastSpec.YearMin != 1990 || f.lastSpec.YearMax != 1999 || len(f.lastSpec.Genres) != 1 {
		t.Fatalf("engine saw spec %+v", f.lastSpec)
	}
}

func TestSeenAndWatchlist_AckAndForward(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	srv := newTestServer(f)
	defer srv.Close()

	resp, env := doPost(t, srv, "/seen", "s", `{"tconst":"tt0068646"}`)
	if resp.StatusCode != http.StatusOK || f.lastTconst != "tt0068646" {
		t.Fatalf("seen: status %d tconst %q", resp.StatusCode, f.lastTconst)
	}
	var ack AckResponse
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.State != "ok" {
		t.Fatalf("ack = %+v", ack)
	}

	resp, _ = doPost(t, srv, "/watchlist", "s", `{"tconst":"tt0071562"}`)
	if resp.StatusCode != http.StatusOK || f.lastTconst != "tt0071562" {
		t.Fatalf("watchlist: status %d tconst %q", resp.StatusCode, f.lastTconst)
	}
}

func TestHealthz_ReportsEngineSnapshot(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d want 200", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var h svc.Health
	if err := json.Unmarshal(env.Data, &h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if h.DataCircuit != "closed" || h.TierGeneration != 3 {
		t.Fatalf("health = %+v", h)
	}
}
