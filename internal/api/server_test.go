package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/sim"
)

type harness struct {
	srv *Server
	ts  *httptest.Server
	eng *engine.Engine
}

func newHarness(t *testing.T, api config.APIConfig) *harness {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	s, err := sim.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Seed(cfg.Scenario); err != nil {
		t.Fatal(err)
	}
	s.Sched.RunTick()

	eng := engine.NewEngine(s.Sched)
	eng.Speed = 0 // ticks only when a test asks for one
	srv := NewServer(s, eng, nil, api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.hub.Close()
		ts.Close()
		cancel()
		<-done
	})
	return &harness{srv: srv, ts: ts, eng: eng}
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.eng.Call(ctx, func(sc *engine.Scheduler) error {
		sc.RunTick()
		return nil
	})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func (h *harness) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(h.ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (h *harness) post(t *testing.T, path, token, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

var adminAPI = config.APIConfig{AdminKey: "secret", RateLimit: 1000, Burst: 1000}

func TestStatusAndListings(t *testing.T) {
	h := newHarness(t, adminAPI)

	var status map[string]any
	if code := h.get(t, "/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if status["tick"].(float64) != 1 || status["phase"] != "idle" {
		t.Errorf("Unexpected status: tick=%v phase=%v", status["tick"], status["phase"])
	}

	var producers []producerView
	h.get(t, "/api/v1/producers", &producers)
	if len(producers) == 0 {
		t.Fatal("Expected producers in listing")
	}
	var wells []producerView
	h.get(t, "/api/v1/producers?kind=well", &wells)
	for _, p := range wells {
		if p.Kind != "well" {
			t.Errorf("Filter leaked kind %q", p.Kind)
		}
	}

	var houses []houseView
	h.get(t, "/api/v1/houses", &houses)
	if len(houses) == 0 {
		t.Error("Expected houses in listing")
	}
	var resources []resourceView
	h.get(t, "/api/v1/resources", &resources)
	if len(resources) == 0 {
		t.Error("Expected resources in listing")
	}

	var one producerView
	if code := h.get(t, fmt.Sprintf("/api/v1/producer/%d", producers[0].ID), &one); code != http.StatusOK || one.ID != producers[0].ID {
		t.Errorf("Producer detail: code %d, %+v", code, one)
	}
	if code := h.get(t, "/api/v1/producer/99999", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown producer, got %d", code)
	}

	var m struct {
		Radius int       `json:"radius"`
		Hexes  []hexView `json:"hexes"`
	}
	h.get(t, "/api/v1/map", &m)
	if m.Radius == 0 || len(m.Hexes) == 0 {
		t.Errorf("Map empty: radius %d, %d hexes", m.Radius, len(m.Hexes))
	}
}

func TestAdminAuth(t *testing.T) {
	h := newHarness(t, adminAPI)
	if code := h.post(t, "/api/v1/speed", "", `{"speed":2}`); code != http.StatusUnauthorized {
		t.Errorf("No token: got %d", code)
	}
	if code := h.post(t, "/api/v1/speed", "wrong", `{"speed":2}`); code != http.StatusUnauthorized {
		t.Errorf("Wrong token: got %d", code)
	}
	if code := h.post(t, "/api/v1/speed", "secret", `{"speed":2000}`); code != http.StatusBadRequest {
		t.Errorf("Out of range speed: got %d", code)
	}

	open := newHarness(t, config.APIConfig{})
	if code := open.post(t, "/api/v1/speed", "anything", `{"speed":1}`); code != http.StatusForbidden {
		t.Errorf("Admin disabled: got %d", code)
	}
}

func TestProducerCommands(t *testing.T) {
	h := newHarness(t, adminAPI)
	var producers []producerView
	h.get(t, "/api/v1/producers", &producers)
	id := producers[0].ID

	if code := h.post(t, fmt.Sprintf("/api/v1/producer/%d/pause", id), "secret", ""); code != http.StatusOK {
		t.Fatalf("pause: got %d", code)
	}
	var p producerView
	h.get(t, fmt.Sprintf("/api/v1/producer/%d", id), &p)
	if !p.Paused {
		t.Error("Expected producer paused")
	}

	if code := h.post(t, fmt.Sprintf("/api/v1/producer/%d/resume", id), "secret", ""); code != http.StatusOK {
		t.Fatalf("resume: got %d", code)
	}
	h.get(t, fmt.Sprintf("/api/v1/producer/%d", id), &p)
	if p.Paused {
		t.Error("Expected producer resumed")
	}

	if code := h.post(t, "/api/v1/producer/99999/upgrade", "secret", ""); code != http.StatusNotFound {
		t.Errorf("upgrade unknown: got %d", code)
	}
	if code := h.post(t, fmt.Sprintf("/api/v1/producer/%d/explode", id), "secret", ""); code != http.StatusNotFound {
		t.Errorf("unknown action: got %d", code)
	}
}

func TestBuildAndDemolish(t *testing.T) {
	h := newHarness(t, adminAPI)

	req, _ := http.NewRequest(http.MethodPost, h.ts.URL+"/api/v1/build", strings.NewReader(`{"type":"house","q":0,"r":2}`))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var built struct {
		ID uint64 `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&built)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || built.ID == 0 {
		t.Fatalf("build: code %d id %d", resp.StatusCode, built.ID)
	}

	if code := h.post(t, "/api/v1/build", "secret", `{"type":"house","q":0,"r":2}`); code != http.StatusBadRequest {
		t.Errorf("Expected taken site rejected, got %d", code)
	}
	if code := h.post(t, "/api/v1/build", "secret", `{"type":"castle","q":1,"r":2}`); code != http.StatusBadRequest {
		t.Errorf("Expected unknown type rejected, got %d", code)
	}

	var events []sim.Event
	h.get(t, "/api/v1/events", &events)
	if len(events) == 0 || events[0].Category != "build" {
		t.Errorf("Expected build event first, got %+v", events)
	}

	path := fmt.Sprintf("/api/v1/demolish/%d", built.ID)
	if code := h.post(t, path, "secret", ""); code != http.StatusOK {
		t.Fatalf("demolish: got %d", code)
	}
	if code := h.post(t, path, "secret", ""); code != http.StatusNotFound {
		t.Errorf("second demolish: got %d", code)
	}
}

func TestResearchUnlock(t *testing.T) {
	h := newHarness(t, adminAPI)
	if code := h.post(t, "/api/v1/research", "secret", `{"id":"masonry"}`); code != http.StatusOK {
		t.Fatalf("research: got %d", code)
	}
	var status map[string]any
	h.get(t, "/api/v1/status", &status)
	found := false
	for _, r := range status["research"].([]any) {
		if r == "masonry" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected masonry unlocked, got %v", status["research"])
	}
	if code := h.post(t, "/api/v1/research", "secret", `{}`); code != http.StatusBadRequest {
		t.Errorf("Empty research id: got %d", code)
	}
}

func TestHistoryAfterTicks(t *testing.T) {
	h := newHarness(t, adminAPI)
	h.tick(t)
	h.tick(t)

	var reports []engine.TickReport
	h.get(t, "/api/v1/history?limit=5", &reports)
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}
	if reports[0].Tick <= reports[1].Tick {
		t.Errorf("Expected newest first, got %d then %d", reports[0].Tick, reports[1].Tick)
	}
}

func TestAdminRateLimited(t *testing.T) {
	h := newHarness(t, config.APIConfig{AdminKey: "secret", RateLimit: 0.001, Burst: 1})
	if code := h.post(t, "/api/v1/speed", "secret", `{"speed":1}`); code != http.StatusOK {
		t.Fatalf("first request: got %d", code)
	}
	if code := h.post(t, "/api/v1/speed", "secret", `{"speed":1}`); code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d", code)
	}
}

func TestStreamHelloAndTick(t *testing.T) {
	h := newHarness(t, adminAPI)
	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "hello" {
		t.Fatalf("Expected hello, got %q (%v)", msg.Type, err)
	}

	// The hub registers the client right after the hello is queued.
	deadline := time.Now().Add(2 * time.Second)
	for h.srv.hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	h.tick(t)
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "tick" {
			break
		}
	}
	var r engine.TickReport
	if err := json.Unmarshal(msg.Data, &r); err != nil || r.Tick != 2 {
		t.Errorf("Expected tick 2 report, got %d (%v)", r.Tick, err)
	}
}
