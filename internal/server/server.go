// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/colebrumley/regexlab/internal/config"
	"github.com/colebrumley/regexlab/internal/logging"
	"github.com/colebrumley/regexlab/internal/session"
	"github.com/colebrumley/regexlab/internal/state"
	"github.com/robfig/cron/v3"
)

// Server hosts one editing session over HTTP and persists it to a slot
type Server struct {
	cfg       *config.Global
	store     *state.DB
	logger    *slog.Logger
	opts      session.Options
	slotKey   string
	startTime time.Time

	mu   sync.Mutex
	sess *session.Session

	httpServer *http.Server
	cron       *cron.Cron
}

// New loads the slot from store and renders it once
func New(cfg *config.Global, store *state.DB, logger *slog.Logger) (*Server, error) {
	opts, err := cfg.SessionOptions()
	if err != nil {
		return nil, fmt.Errorf("building session options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger = logging.WithSlot(logger, cfg.Storage.SlotKey)

	st, err := store.Load(cfg.Storage.SlotKey)
	if err != nil {
		logger.Warn("persisted state unusable, starting from defaults", "error", err)
	}

	return &Server{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		opts:      opts,
		slotKey:   cfg.Storage.SlotKey,
		startTime: time.Now(),
		sess:      session.New(st, opts),
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.ListenAddress, s.cfg.Server.ListenPort)

	if err := s.startCleanup(); err != nil {
		return err
	}
	defer s.cron.Stop()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the routed, rate-limited handler tree
func (s *Server) Handler() http.Handler {
	limit := s.cfg.Server.RateLimit

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", limited(limit, s.handleHealth))
	mux.HandleFunc("GET /{$}", limited(limit, s.handlePage))

	mux.HandleFunc("GET /api/state", limited(limit, s.handleGetState))
	mux.HandleFunc("PUT /api/state", limited(limit, s.handlePutState))
	mux.HandleFunc("POST /api/preview", limited(limit, s.handlePreview))
	mux.HandleFunc("POST /api/sources", limited(limit, s.handleAddSource))
	mux.HandleFunc("PUT /api/sources/{index}", limited(limit, s.handleEditSource))
	mux.HandleFunc("DELETE /api/sources/{index}", limited(limit, s.handleDeleteSource))
	mux.HandleFunc("POST /api/control", limited(limit, s.handleControl))
	mux.HandleFunc("GET /api/history", limited(limit, s.handleHistory))
	return mux
}

// startCleanup schedules history pruning and runs it once immediately
func (s *Server) startCleanup() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Storage.CleanupSchedule, s.cleanupHistory); err != nil {
		return fmt.Errorf("scheduling history cleanup: %w", err)
	}
	s.cron.Start()
	go s.cleanupHistory()
	return nil
}

func (s *Server) cleanupHistory() {
	deleted, err := s.store.Cleanup(s.cfg.Storage.HistoryRetentionDays)
	if err != nil {
		s.logger.Warn("history cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("cleaned up old preview records", "deleted", deleted)
	}
}

// commit persists the session after an accepted mutation and records the
// outcome in the history table. Callers hold s.mu.
func (s *Server) commit(res session.Result) {
	if err := s.store.Save(s.slotKey, res.State); err != nil {
		s.logger.Error("persisting state failed", "error", err)
	}
	if _, err := s.store.RecordPreview(state.NewPreviewRecord(s.slotKey, res)); err != nil {
		s.logger.Warn("recording preview failed", "error", err)
	}
	if res.Status == session.StatusInvalid {
		logging.WithPattern(s.logger, res.State.Regex, res.State.Flags).Info("pattern rejected", "error", res.Error)
	} else {
		s.logger.Debug("preview updated", "summary", s.sess.Summary())
	}
}
