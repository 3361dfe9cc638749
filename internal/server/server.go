package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/chess10kp/bluepanel/internal/apps"
	"github.com/chess10kp/bluepanel/internal/config"
	"github.com/chess10kp/bluepanel/internal/history"
	"github.com/chess10kp/bluepanel/internal/panel"
	"github.com/chess10kp/bluepanel/internal/status"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server is the HTTP facade the panel front-end talks to.
type Server struct {
	cfg     *config.Config
	tracker *history.Tracker
	panel   *panel.Store
	status  *status.Collector
}

func New(cfg *config.Config, tracker *history.Tracker, panelStore *panel.Store, collector *status.Collector) *Server {
	return &Server{
		cfg:     cfg,
		tracker: tracker,
		panel:   panelStore,
		status:  collector,
	}
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /apps", s.handleApps)
	mux.HandleFunc("GET /apps/favorites", s.handleFavorites)
	mux.HandleFunc("POST /launch/{name}", s.handleLaunch)
	mux.HandleFunc("POST /toggle-favorite/{name}", s.handleToggleFavorite)

	mux.HandleFunc("GET /config", s.handleGetConfig)
	mux.HandleFunc("POST /config", s.handleSetConfig)
	mux.HandleFunc("GET /pinned-apps", s.handleGetPinned)
	mux.HandleFunc("POST /pinned-apps", s.handleSetPinned)

	mux.HandleFunc("GET /status", s.handleStatus)

	if s.cfg.Icons.Root != "" {
		prefix := strings.TrimSuffix(s.cfg.Icons.MountPrefix, "/")
		mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.Icons.Root))))
	}
	if s.cfg.Panel.FrontendDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.Panel.FrontendDir)))
	}

	return withRequestLog(withCORS(mux))
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and shuts down gracefully when ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[HTTP] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	entries := s.tracker.List()
	if q := r.URL.Query().Get("q"); q != "" {
		entries = apps.Search(entries, q)
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Favorites())
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tracker.RecordLaunch(r.Context(), r.PathValue("name")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tracker.ToggleFavorite(r.Context(), r.PathValue("name")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.Load())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := panel.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.panel.Save(cfg); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetPinned(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.PinnedApps())
}

func (s *Server) handleSetPinned(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pins, err := panel.ParsePinned(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.panel.SetPinnedApps(pins); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Snapshot(r.Context()))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apps.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, history.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, panel.ErrInvalidConfig) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log.Printf("[HTTP] Failed to persist panel config: %v", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}
