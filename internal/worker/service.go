// Package worker provides the HTTP service for pacekeeper: the boundary
// operations of the decision core plus health and SSE endpoints.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/internal/classifier"
	"github.com/pacekeeper/pacekeeper/internal/config"
	"github.com/pacekeeper/pacekeeper/internal/db/store"
	"github.com/pacekeeper/pacekeeper/internal/intervention"
	"github.com/pacekeeper/pacekeeper/internal/patterns"
	"github.com/pacekeeper/pacekeeper/internal/worker/session"
	"github.com/pacekeeper/pacekeeper/internal/worker/sse"
)

// Service is the pacekeeper HTTP worker.
type Service struct {
	version string
	config  *config.Config

	store          *store.Store
	sessionManager *session.Manager
	sseBroadcaster *sse.Broadcaster
	decider        *intervention.Engine

	router     chi.Router
	httpServer *http.Server
	validate   *validator.Validate

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	ready     atomic.Bool
}

// New wires the decision core together over an open store.
func New(version string, cfg *config.Config, st *store.Store, cls classifier.Classifier) *Service {
	users := store.NewUserStore(st)
	schedules := store.NewScheduleStore(st)
	readings := store.NewReadingStore(st)
	interventions := store.NewInterventionStore(st)

	decider := intervention.New(cfg.Intervention)
	updater := patterns.NewUpdater(users, interventions)

	manager := session.NewManager(session.Deps{
		Users:         users,
		Schedules:     schedules,
		Readings:      readings,
		Interventions: interventions,
		Classifier:    cls,
		Decider:       decider,
		Patterns:      updater,
	})

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        version,
		config:         cfg,
		store:          st,
		sessionManager: manager,
		sseBroadcaster: sse.NewBroadcaster(),
		decider:        decider,
		router:         chi.NewRouter(),
		validate:       validator.New(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	svc.setupRoutes()
	return svc
}

// Decider exposes the intervention engine for policy reloads.
func (s *Service) Decider() *intervention.Engine { return s.decider }

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/morning", s.handleMorning)
		r.Post("/state-check", s.handleStateCheck)
		r.Post("/segment/complete", s.handleCompleteSegment)
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.sseBroadcaster.HandleSSE)
	})
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.ready.Store(true)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", s.version).Msg("Worker listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	s.ready.Store(false)
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(shutdownCtx)
	}
	return nil
}
