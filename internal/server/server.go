// Package server exposes collections over HTTP for remote list screens.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/store"
)

// Backend is what the server serves. Both database stores satisfy it.
type Backend interface {
	Collections() map[string]listing.Collection
	Stats(ctx context.Context) ([]store.CollectionStats, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires routes for every collection of b.
func NewServer(addr string, b Backend, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(b, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the HTTP handler:
//
//	GET    /healthz
//	GET    /api/v1/stats
//	GET    /api/v1/{collection}?q=&page=&perPage=&<field>=&<field>Min=&<field>Max=
//	PATCH  /api/v1/{collection}/{id}/status
//	DELETE /api/v1/{collection}/{id}
func NewRouter(b Backend, logger *slog.Logger) http.Handler {
	h := &handlers{backend: b, collections: b.Collections()}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, LoggerMiddleware(logger), middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/{collection}", h.list)
		r.Patch("/{collection}/{id}/status", h.toggle)
		r.Delete("/{collection}/{id}", h.delete)
	})
	return r
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", "address", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...")
	return s.httpServer.Shutdown(ctx)
}
