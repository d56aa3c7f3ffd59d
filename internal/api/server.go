// Package api provides the HTTP API for observing and steering the economy.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/persistence"
	"github.com/talgya/hamlet/internal/sim"
	"github.com/talgya/hamlet/internal/world"
)

const (
	defaultHistory = 120
	maxLimit       = 1000
	callTimeout    = 5 * time.Second
)

// Server serves economy state over HTTP.
type Server struct {
	Sim      *sim.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // optional; backs history and events past memory
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	store   *store
	hub     *Hub
	limiter *RateLimiter
	http    *http.Server
}

// NewServer wires a server to the simulation and registers it as a tick
// observer. Call before the engine starts.
func NewServer(s *sim.Simulation, eng *engine.Engine, db *persistence.DB, cfg config.APIConfig) *Server {
	if cfg.History <= 0 {
		cfg.History = defaultHistory
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.Burst < 1 {
		cfg.Burst = 5
	}

	srv := &Server{
		Sim:      s,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
		store:    newStore(cfg.History),
		hub:      NewHub(),
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.Burst, 30*time.Minute),
	}
	srv.store.set(capture(s, eng.Speed))
	s.Sched.AddObserver(srv)
	return srv
}

// TickCompleted refreshes the snapshot and pushes the report to streams.
// Runs on the engine goroutine.
func (s *Server) TickCompleted(r *engine.TickReport) {
	s.store.set(capture(s.Sim, s.Eng.Speed))
	s.store.push(r)
	s.hub.Broadcast(StreamMessage{Type: "tick", Data: r})
}

// PopulationChanged forwards population swings to streams.
func (s *Server) PopulationChanged(tick int64, population uint32) {
	s.hub.Broadcast(StreamMessage{Type: "population", Data: map[string]any{
		"tick":       tick,
		"population": population,
	}})
}

// Handler builds the routed handler without CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/resources", s.handleResources)
	mux.HandleFunc("GET /api/v1/producers", s.handleProducers)
	mux.HandleFunc("GET /api/v1/producer/{id}", s.handleProducerDetail)
	mux.HandleFunc("GET /api/v1/houses", s.handleHouses)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/speed", s.admin(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/producer/{id}/{action}", s.admin(s.handleProducerAction))
	mux.HandleFunc("POST /api/v1/build", s.admin(s.handleBuild))
	mux.HandleFunc("POST /api/v1/demolish/{id}", s.admin(s.handleDemolish))
	mux.HandleFunc("POST /api/v1/research", s.admin(s.handleResearch))

	return mux
}

// Start begins serving the HTTP API in a goroutine and shuts it down when
// ctx ends.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(s.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		sweep := time.NewTicker(10 * time.Minute)
		defer sweep.Stop()
		for {
			select {
			case <-ctx.Done():
				s.hub.Close()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.http.Shutdown(shutdown); err != nil {
					slog.Warn("HTTP shutdown", "error", err)
				}
				return
			case now := <-sweep.C:
				if n := s.limiter.Sweep(now); n > 0 {
					slog.Debug("rate limiter swept", "clients", n)
				}
			}
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// admin wraps a handler with bearer auth and per-client rate limiting.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	limited := RateLimitMiddleware(s.limiter, next)
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		limited(w, r)
	}
}

// exec runs fn on the engine goroutine, then refreshes the snapshot so the
// change is visible to the next read.
func (s *Server) exec(r *http.Request, fn func(sc *engine.Scheduler) error) error {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()
	return s.Eng.Call(ctx, func(sc *engine.Scheduler) error {
		err := fn(sc)
		s.store.set(capture(s.Sim, s.Eng.Speed))
		return err
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.get()
	status := map[string]any{
		"name":       "Hamlet",
		"run_id":     snap.RunID,
		"tick":       snap.Tick,
		"sim_time":   snap.SimTime,
		"phase":      snap.Phase,
		"speed":      snap.Speed,
		"running":    s.Eng.Running(),
		"population": snap.Stats.Population,
		"avg_mood":   snap.Stats.AvgMood,
		"stats":      snap.Stats,
		"research":   snap.Research,
		"streams":    s.hub.Len(),
	}
	if snap.Report != nil {
		status["last_report"] = snap.Report
	}
	writeJSON(w, status)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.get().Resources)
}

func (s *Server) handleProducers(w http.ResponseWriter, r *http.Request) {
	producers := s.store.get().Producers
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := make([]producerView, 0)
		for _, p := range producers {
			if p.Kind == kind {
				filtered = append(filtered, p)
			}
		}
		producers = filtered
	}
	writeJSON(w, producers)
}

func (s *Server) handleProducerDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid producer id", http.StatusBadRequest)
		return
	}
	for _, p := range s.store.get().Producers {
		if p.ID == id {
			writeJSON(w, p)
			return
		}
	}
	http.Error(w, "producer not found", http.StatusNotFound)
}

func (s *Server) handleHouses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.get().Houses)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"radius": s.Sim.WorldMap.Radius,
		"hexes":  s.store.get().Map,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 30)
	reports := s.store.recent(limit)
	if len(reports) < limit && s.DB != nil {
		stored, err := s.DB.RecentReports(limit)
		if err != nil {
			slog.Error("history query failed", "error", err)
		} else if len(stored) > len(reports) {
			writeJSON(w, stored)
			return
		}
	}
	writeJSON(w, reports)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	events := s.store.get().Events
	if len(events) > limit {
		events = events[:limit]
	}
	out := append([]sim.Event(nil), events...)
	if len(out) < limit && s.DB != nil {
		stored, err := s.DB.RecentEvents(limit - len(out))
		if err != nil {
			slog.Error("events query failed", "error", err)
		} else {
			out = append(out, stored...)
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, StreamMessage{Type: "hello", Data: s.store.get()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	err := s.exec(r, func(*engine.Scheduler) error {
		s.Eng.Speed = req.Speed
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": req.Speed})
}

func (s *Server) handleProducerAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid producer id", http.StatusBadRequest)
		return
	}
	eid := entity.ID(id)
	action := r.PathValue("action")

	var op func(sc *engine.Scheduler) error
	switch action {
	case "pause":
		op = func(sc *engine.Scheduler) error { return sc.SetPaused(eid, true) }
	case "resume":
		op = func(sc *engine.Scheduler) error { return sc.SetPaused(eid, false) }
	case "upgrade":
		op = func(sc *engine.Scheduler) error { return sc.UpgradeProducer(eid) }
	default:
		http.Error(w, "unknown action: "+action, http.StatusNotFound)
		return
	}

	if err := s.exec(r, op); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("producer command", "id", id, "action", action)
	writeJSON(w, map[string]any{"id": id, "action": action, "status": "accepted"})
}

type buildRequest struct {
	Type  string `json:"type"` // "producer" or "house"
	Kind  string `json:"kind"`
	Q     int    `json:"q"`
	R     int    `json:"r"`
	Stage uint8  `json:"stage"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Stage == 0 {
		req.Stage = 1
	}
	at := world.HexCoord{Q: req.Q, R: req.R}

	var id entity.ID
	err := s.exec(r, func(*engine.Scheduler) error {
		switch req.Type {
		case "producer":
			p, err := s.Sim.PlaceProducer(req.Kind, at, req.Stage)
			if err != nil {
				return err
			}
			id = p.ID
		case "house":
			h, err := s.Sim.PlaceHouse(at, req.Stage)
			if err != nil {
				return err
			}
			id = h.ID
		default:
			return fmt.Errorf("unknown building type %q", req.Type)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("building placed", "type", req.Type, "kind", req.Kind, "at", at, "id", id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{"id": uint64(id), "type": req.Type, "at": at})
}

func (s *Server) handleDemolish(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid building id", http.StatusBadRequest)
		return
	}
	if err := s.exec(r, func(*engine.Scheduler) error { return s.Sim.Demolish(entity.ID(id)) }); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("building demolished", "id", id)
	writeJSON(w, map[string]any{"id": id, "status": "demolished"})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var added bool
	err := s.exec(r, func(*engine.Scheduler) error {
		added = s.Sim.Research.Unlock(req.ID)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if added {
		slog.Info("research unlocked", "id", req.ID)
	}
	writeJSON(w, map[string]any{"id": req.ID, "unlocked": true, "new": added})
}

func parseLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// writeError maps engine errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownEntity):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrMaxStage), errors.Is(err, engine.ErrLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		http.Error(w, "engine busy", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
