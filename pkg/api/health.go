package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/storage"
)

const storageCheckTimeout = 2 * time.Second

// mountHealth serves the health endpoints and the Prometheus scrape
// endpoint outside /api
func (s *Server) mountHealth(r chi.Router) {
	if s.deps.Store != nil {
		store := s.deps.Store
		metrics.RegisterCheck("storage", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), storageCheckTimeout)
			defer cancel()
			_, err := store.Exists(ctx, storage.Join(storage.RootEvents))
			return err
		})
	}

	r.Get("/health", metrics.HealthHandler())
	r.Get("/ready", metrics.ReadyHandler())
	r.Get("/live", metrics.LivenessHandler())
	r.Handle("/metrics", metrics.Handler())
}
