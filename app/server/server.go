// Package server implements the HTTP API exposing cached streams to consumers
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leynos/hoover/app/archive"
	"github.com/leynos/hoover/app/logcache"
)

//go:generate moq -out mocks/archive.go -pkg mocks -skip-ensure -fmt goimports . Archive

// Archive is the snapshot storage used by the snapshot endpoints
type Archive interface {
	Save(snap archive.Snapshot) (int64, error)
	List(stream string, limit int) ([]archive.Snapshot, error)
	Get(id int64) (archive.Snapshot, error)
}

// Config holds server configuration
type Config struct {
	Registry     *logcache.Registry
	Archive      Archive // nil disables snapshot endpoints
	ArchivePath  string  // reported as disk usage location in status, optional
	PasswordHash string  // bcrypt hash for basic auth (empty to disable)
	IngestRate   float64 // ingest requests per second per client, 0 for no limit
	Version      string
}

// Server serves the stream API
type Server struct {
	registry       *logcache.Registry
	archive        Archive
	archivePath    string
	passwordHash   string
	version        string
	startedAt      time.Time
	ingestLimiter  *limiter.Limiter
	csrfProtection *http.CrossOriginProtection
}

// New makes a server for the given registry
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("server initialization failed: registry is required")
	}
	if cfg.IngestRate < 0 {
		return nil, fmt.Errorf("server initialization failed: negative ingest rate %v", cfg.IngestRate)
	}

	s := &Server{
		registry:       cfg.Registry,
		archive:        cfg.Archive,
		archivePath:    cfg.ArchivePath,
		passwordHash:   cfg.PasswordHash,
		version:        cfg.Version,
		startedAt:      time.Now(),
		csrfProtection: http.NewCrossOriginProtection(),
	}

	if cfg.IngestRate > 0 {
		s.ingestLimiter = tollbooth.NewLimiter(cfg.IngestRate, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
		s.ingestLimiter.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
		s.ingestLimiter.SetMessage(`{"error":"too many ingest requests"}`)
		s.ingestLimiter.SetMessageContentType("application/json")
	}
	return s, nil
}

// Run starts the http server and blocks until ctx is done
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting http server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Handler returns the api handler, for embedding or testing
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("hoover", "leynos", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(4*1024*1024), // a window of a long step can be large
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// must be set before any routes are defined
	if s.passwordHash != "" {
		log.Printf("[INFO] basic auth enabled for api")
		router.Use(s.authMiddleware)
	}

	router.Handle("GET /metrics", promhttp.Handler())

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)

		ingest := api.With(s.csrfProtection.Handler)
		if s.ingestLimiter != nil {
			ingest = ingest.With(tollbooth.HTTPMiddleware(s.ingestLimiter))
		}
		ingest.HandleFunc("POST /ingest", s.handleIngest)

		api.HandleFunc("GET /streams", s.handleListStreams)
		api.HandleFunc("GET /streams/{id}", s.handleGetStream)
		api.HandleFunc("GET /streams/{id}/text", s.handleStreamText)
		api.With(s.csrfProtection.Handler).HandleFunc("POST /streams/{id}/snapshots", s.handleCreateSnapshot)
		api.HandleFunc("GET /streams/{id}/snapshots", s.handleListSnapshots)
		api.HandleFunc("GET /snapshots/{sid}", s.handleGetSnapshot)
		api.HandleFunc("GET /status", s.handleStatus)
		api.HandleFunc("GET /schema", s.handleSchema)
	})

	return router
}
