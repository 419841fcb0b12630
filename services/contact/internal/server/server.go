package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.opentelemetry.io/otel/trace"

	"fiapcontacts/internal/ratelimit"
	"fiapcontacts/internal/telemetry"
	"fiapcontacts/internal/util"
	"fiapcontacts/services/contact/internal/app"
)

const (
	serviceName = "contacts"
	docsPath    = "/docs"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Version        string
	Metrics        *telemetry.Metrics
	TracerProvider trace.TracerProvider
	// WriteLimiter throttles POST/PUT/DELETE per client; nil disables it.
	WriteLimiter       *ratelimit.FixedWindowLimiter
	TrustedProxies     *util.TrustedProxies
	CORSAllowedOrigins []string
}

// Server exposes the contacts API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	api            huma.API
	metrics        *telemetry.Metrics
	tracerProvider trace.TracerProvider
	writeLimiter   *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	installErrorModel()
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		metrics:        metrics,
		tracerProvider: cfg.TracerProvider,
		writeLimiter:   cfg.WriteLimiter,
		trustedProxies: cfg.TrustedProxies,
		corsOrigins:    cfg.CORSAllowedOrigins,
	}

	humaConfig := huma.DefaultConfig("FIAP Contacts API", version)
	humaConfig.Info.Description = "Contact registry with unique e-mail and area code plus phone number."
	humaConfig.DocsPath = docsPath
	// no $schema links in bodies
	humaConfig.CreateHooks = nil
	s.api = humago.New(s.mux, humaConfig)

	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = s.withWriteLimit(h)
	h = s.metrics.WithMetrics(h)
	h = telemetry.WithTracing(s.tracerProvider, h)
	h = util.WithCORS(s.corsOrigins, h)
	h = util.WithSecurityHeaders(docsPath, h)
	h = util.WithRequestLog(serviceName, h)
	return util.WithRequestID(h)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.api.OpenAPI()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.Handle("GET /metrics", s.metrics)

	s.registerContacts(s.api)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.app.Ready(ctx); err != nil {
		util.LoggerFromContext(ctx).Warn("readiness check failed", "dependency", "database", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "SYSTEM_UNAVAILABLE", "database unavailable")
		return
	}
	if s.writeLimiter != nil {
		if err := s.writeLimiter.Ping(ctx); err != nil {
			util.LoggerFromContext(ctx).Warn("readiness check failed", "dependency", "redis", "err", err)
			writeError(w, r, http.StatusServiceUnavailable, "SYSTEM_UNAVAILABLE", "rate limiter unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// withWriteLimit applies the fixed-window quota to mutating requests.
// Limiter failures deny the request.
func (s *Server) withWriteLimit(next http.Handler) http.Handler {
	if s.writeLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isWrite(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		key := "write|" + util.ClientIP(r, s.trustedProxies)
		decision, err := s.writeLimiter.Allow(r.Context(), key)
		if err != nil {
			s.metrics.RateLimitErrors()
			util.LoggerFromContext(r.Context()).Warn("rate limiter unavailable, denying write", "err", err)
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		// label the rejection with the route it was aimed at
		_, r.Pattern = s.mux.Handler(r)
		s.metrics.RateLimited(r.Method)
		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
		writeError(w, r, http.StatusTooManyRequests, "REQUEST_RATE_LIMITED", "too many requests")
	})
}
