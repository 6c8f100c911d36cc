package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandloom/brandloom/internal/engine"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Engine      *engine.Engine // Required
	Pool        *pgxpool.Pool  // Optional: nil degrades /ready to liveness
	CORSOrigins []string       // Allowed origins for CORS
	IsDev       bool           // Disables HSTS
	TrustProxy  bool           // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int            // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	vh := &vectorHandler{engine: cfg.Engine, logger: logger}
	ch := &contextHandler{engine: cfg.Engine, logger: logger}
	cl := &cleanupHandler{engine: cfg.Engine, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/vectors", vh.storeVector)
	mux.HandleFunc("PATCH /api/v1/vectors", vh.updateVector)
	mux.HandleFunc("POST /api/v1/vectors/performance", vh.updatePerformance)
	mux.HandleFunc("POST /api/v1/context", ch.retrieveContext)
	mux.HandleFunc("POST /api/v1/cleanup", cl.runCleanup)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID sits before Logging so request_id reaches the log line.
	// CORS sits before RateLimit so preflight OPTIONS gets CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
