package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"herobyte/internal/persistence"
	"herobyte/internal/registry"
)

// Server wraps HTTP handlers and configuration around the room registry.
type Server struct {
	cfg             Config
	logger          *slog.Logger
	mux             *http.ServeMux
	registry        *registry.Registry
	dice            *persistence.DiceLog
	allowedOrigins  []string
	allowAllOrigins bool

	wsMu    sync.Mutex
	wsRooms map[string]map[*client]struct{}
}

// New constructs a Server with routes and middleware configured.
func New(cfg Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	var dice *persistence.DiceLog
	if !cfg.DiceLogDisabled {
		var err error
		dice, err = persistence.OpenDiceLog(filepath.Join(cfg.DataDir, "dice.db"))
		if err != nil {
			return nil, fmt.Errorf("open dice log: %w", err)
		}
	}

	tuning := LoadTuning(cfg.TuningFile, logger)

	srv := &Server{
		cfg:            cfg,
		logger:         logger,
		mux:            http.NewServeMux(),
		registry:       registry.New(cfg.DataDir, logger, tuning, dice),
		dice:           dice,
		allowedOrigins: cfg.AllowedOrigins,
		wsRooms:        make(map[string]map[*client]struct{}),
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			srv.allowAllOrigins = true
		}
	}

	srv.routes()
	return srv, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + s.cfg.Port
	s.logger.Info("starting server", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the configured middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withCORS(s.loggingMiddleware(s.mux))
}

// Shutdown archives every open room and releases resources.
func (s *Server) Shutdown() {
	s.registry.ArchiveAll()
	if s.dice != nil {
		if err := s.dice.Close(); err != nil {
			s.logger.Error("close dice log", slog.String("error", err.Error()))
		}
	}
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ws/", s.handleWebsocket)
	s.mux.HandleFunc("/rooms/", s.handleRoom)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.logger.Info("request", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Int("status", rw.status), slog.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleRoom serves the REST side of a room.
// Paths: /rooms/{id}/snapshot and /rooms/{id}/rolls.
func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/rooms/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rm := s.registry.Room(parts[0])

	switch parts[1] {
	case "snapshot":
		uid := r.URL.Query().Get("uid")
		writeJSON(w, http.StatusOK, rm.CreateSnapshot(uid))
	case "rolls":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, rm.RecentRolls(limit))
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
