// Package http exposes statement imports and stored lines over a JSON API.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"releve/internal/cache"
	"releve/internal/log"
	"releve/internal/middleware/ratelimit"
	"releve/internal/middleware/security"
	"releve/internal/middleware/trace"
	"releve/internal/services"
	"releve/internal/sheets"
)

// DefaultMaxUploadBytes bounds the size of an uploaded statement.
const DefaultMaxUploadBytes = 10 << 20

// Importer runs one statement import.
type Importer interface {
	Import(ctx context.Context, source string, r io.Reader) (services.Result, error)
}

// Options wires the server.
type Options struct {
	Addr     string
	Importer Importer
	Lines    sheets.LineLister
	Taxonomy sheets.TaxonomyReader
	Logger   *log.Logger

	// MaxUploadBytes defaults to DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// ImportRateLimit limits POST /api/imports per client.
	ImportRateLimit ratelimit.Config
}

type Server struct {
	http.Server

	importer  Importer
	lines     sheets.LineLister
	taxonomy  sheets.TaxonomyReader
	logger    *log.Logger
	maxUpload int64

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	linesCache    *cache.LRUCache[[]lineJSON]
	taxonomyCache *cache.LRUCache[taxonomyJSON]
	caches        *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16, // 64KB
		},
		importer:      opts.Importer,
		lines:         opts.Lines,
		taxonomy:      opts.Taxonomy,
		logger:        logger,
		maxUpload:     maxUpload,
		detector:      detector,
		limiter:       ratelimit.NewLimiter(opts.ImportRateLimit),
		tracer:        trace.NewMiddleware(detector.ExtractClientIP, logger),
		linesCache:    cache.NewLRUCache[[]lineJSON](100, 5*time.Minute),
		taxonomyCache: cache.NewLRUCache[taxonomyJSON](1, 5*time.Minute),
		caches:        cache.NewManager(logger),
	}

	s.caches.Register(s.linesCache)
	s.caches.Register(s.taxonomyCache)
	s.caches.StartCleanup(10 * time.Minute)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", s.detector.ExtractClientIP(r),
			"path", r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("POST /api/imports", limited(http.HandlerFunc(s.handleImport)))
	mux.HandleFunc("GET /api/accounts/{account}/lines", s.handleAccountLines)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.tracer.Middleware(s.detector.Middleware(s.logger)(headers.Middleware(mux)))
}

// invalidate drops cached reads after new lines were stored.
func (s *Server) invalidate() {
	s.linesCache.Clear()
	s.taxonomyCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
