// Package api exposes the engine over HTTP: unit listings, on-demand derived
// state projections, gap reports, and log submission.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seedtray/growlog/internal/catchup"
	"github.com/seedtray/growlog/internal/store"
)

type Server struct {
	store   *store.Store
	port    string
	catchup *catchup.Runner
	now     func() time.Time
}

func NewServer(st *store.Store, port string) *Server {
	return &Server{
		store: st,
		port:  port,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetCatchupRunner enables the on-demand sync endpoint. Without it,
// POST /api/catchup answers 503.
func (s *Server) SetCatchupRunner(r *catchup.Runner) {
	s.catchup = r
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/units", s.handleListUnits)
		api.Post("/catchup", s.handleCatchup)

		api.Route("/units/{id}", func(ur chi.Router) {
			ur.Get("/state", s.handleUnitState)
			ur.Get("/gaps", s.handleUnitGaps)
			ur.Post("/logs", s.handleCreateLog)
			ur.Post("/harvest", s.handleRecordHarvest)
		})
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
