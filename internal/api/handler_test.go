package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/metroplanner/internal/cache"
	"github.com/metroplanner/internal/common/config"
	"github.com/metroplanner/internal/common/logger"
	"github.com/metroplanner/internal/planner"
	"github.com/metroplanner/internal/routing"
)

type fakePlanner struct {
	journey *planner.Journey
	err     error
	ready   bool
	calls   int
}

func (f *fakePlanner) Plan(ctx context.Context, from, to string) (*planner.Journey, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.journey, nil
}

func (f *fakePlanner) Stations(ctx context.Context) ([]planner.StationInfo, error) {
	return []planner.StationInfo{{ID: "1", Name: "rajivchowk", Lines: []string{"Blue Line", "Yellow Line"}}}, nil
}

func (f *fakePlanner) Lines(ctx context.Context) ([]planner.LineInfo, error) {
	return nil, errors.New("store down")
}

func (f *fakePlanner) Ready() bool { return f.ready }

func sampleJourney() *planner.Journey {
	return &planner.Journey{
		Shortest: &planner.FaredPath{
			PathResult: routing.PathResult{
				Path: []routing.Hop{
					{StationID: "p", Station: "P"},
					{StationID: "q", Station: "Q", LineID: "red", Line: "Red Line"},
				},
				TotalDistance: 1000,
			},
			Fare: 12,
		},
	}
}

func newTestServer(p *fakePlanner, c cache.Cache) *httptest.Server {
	log := logger.New(io.Discard)
	h := NewHandler(p, c, time.Minute, log)
	srv := NewServer(config.ServerConfig{Addr: ":0", CORSOrigins: []string{"*"}}, h, log)
	return httptest.NewServer(srv.Handler)
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

func TestGetPath(t *testing.T) {
	p := &fakePlanner{journey: sampleJourney()}
	srv := newTestServer(p, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/path?from=P&to=Q")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Shortest *struct {
			Path []struct {
				Station string `json:"station"`
				Line    string `json:"line"`
			} `json:"path"`
			TotalDistance int     `json:"totalDistance"`
			Interchanges  int     `json:"interchanges"`
			Fare          float64 `json:"fare"`
		} `json:"shortest"`
		LeastInterchange *json.RawMessage `json:"leastInterchange"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if out.Shortest == nil || out.Shortest.TotalDistance != 1000 || out.Shortest.Fare != 12 {
		t.Fatalf("unexpected shortest: %s", body)
	}
	if out.Shortest.Path[1].Line != "Red Line" || out.Shortest.Path[0].Line != "" {
		t.Errorf("unexpected hops: %+v", out.Shortest.Path)
	}
	if !strings.Contains(string(body), `"leastInterchange":null`) {
		t.Errorf("expected explicit null leastInterchange, got %s", body)
	}
	if strings.Contains(string(body), "StationID") {
		t.Errorf("ids must not be serialized: %s", body)
	}
}

func TestGetPathErrors(t *testing.T) {
	tests := []struct {
		name    string
		planner *fakePlanner
		query   string
		status  int
		message string
	}{
		{"missing to", &fakePlanner{journey: sampleJourney()}, "from=P", http.StatusBadRequest, "Missing from or to station parameter"},
		{"missing both", &fakePlanner{journey: sampleJourney()}, "", http.StatusBadRequest, "Missing from or to station parameter"},
		{"unknown station", &fakePlanner{err: fmt.Errorf("%w: X", planner.ErrStationNotFound)}, "from=X&to=Q", http.StatusNotFound, "Station not found"},
		{"no path", &fakePlanner{journey: &planner.Journey{}}, "from=P&to=Z", http.StatusNotFound, "No path found between stations"},
		{"internal", &fakePlanner{err: errors.New("boom")}, "from=P&to=Q", http.StatusInternalServerError, "Failed to find path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.planner, nil)
			defer srv.Close()

			resp, body := get(t, srv.URL+"/api/path?"+tt.query)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			var e errorResponse
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if e.Error != tt.message {
				t.Errorf("expected %q, got %q", tt.message, e.Error)
			}
		})
	}
}

func TestGetPathCached(t *testing.T) {
	p := &fakePlanner{journey: sampleJourney()}
	c := cache.NewMemoryCache(10, logger.New(io.Discard))
	srv := newTestServer(p, c)
	defer srv.Close()

	first, firstBody := get(t, srv.URL+"/api/path?from=P&to=Q")
	second, secondBody := get(t, srv.URL+"/api/path?from=P&to=Q")

	if p.calls != 1 {
		t.Errorf("expected one planner call, got %d", p.calls)
	}
	if first.Header.Get("X-Cache") != "MISS" || second.Header.Get("X-Cache") != "HIT" {
		t.Errorf("unexpected cache headers: %s, %s", first.Header.Get("X-Cache"), second.Header.Get("X-Cache"))
	}
	if string(firstBody) != string(secondBody) {
		t.Errorf("cached body differs:\n%s\n%s", firstBody, secondBody)
	}

	get(t, srv.URL+"/api/path?from=Q&to=P")
	if p.calls != 2 {
		t.Errorf("reverse query must not hit the cache, got %d calls", p.calls)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	p := &fakePlanner{journey: &planner.Journey{}}
	c := cache.NewMemoryCache(10, logger.New(io.Discard))
	srv := newTestServer(p, c)
	defer srv.Close()

	get(t, srv.URL+"/api/path?from=P&to=Z")
	get(t, srv.URL+"/api/path?from=P&to=Z")
	if p.calls != 2 {
		t.Errorf("expected not-found responses to bypass the cache, got %d calls", p.calls)
	}
}

func TestListings(t *testing.T) {
	srv := newTestServer(&fakePlanner{}, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/stations")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stations []planner.StationInfo
	if err := json.Unmarshal(body, &stations); err != nil {
		t.Fatalf("decoding stations: %v", err)
	}
	if len(stations) != 1 || len(stations[0].Lines) != 2 {
		t.Errorf("unexpected stations: %s", body)
	}

	resp, _ = get(t, srv.URL+"/api/lines")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 when the planner fails, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	p := &fakePlanner{}
	srv := newTestServer(p, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("unexpected healthz: %d %s", resp.StatusCode, body)
	}

	resp, _ = get(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the graph is built, got %d", resp.StatusCode)
	}

	p.ready = true
	resp, _ = get(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 once ready, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakePlanner{journey: sampleJourney()}, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/path?from=P&to=Q", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
