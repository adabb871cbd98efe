// Package gateway exposes the delegation API over HTTP: delegation
// requests come in, specialist responses come back, correlated by
// request id.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/dreamteam-ai/dispatch/pkg/config"
	"github.com/dreamteam-ai/dispatch/pkg/delegation"
	"github.com/dreamteam-ai/dispatch/pkg/logger"
	"github.com/dreamteam-ai/dispatch/pkg/team"
)

// Delegator executes a delegation request and always produces a Result.
type Delegator interface {
	Execute(ctx context.Context, snap *team.Snapshot, in delegation.Input, sess delegation.Session) delegation.Result
}

// Responder resolves a pending channel request with its response body.
type Responder interface {
	DeliverResponse(ctx context.Context, requestID, content string) error
}

// SnapshotFunc supplies the current team snapshot per request.
type SnapshotFunc func() *team.Snapshot

// Server is the delegation gateway HTTP server.
type Server struct {
	cfg       config.GatewayConfig
	delegator Delegator
	responder Responder
	snapshot  SnapshotFunc
	limiter   *rate.Limiter
	server    *http.Server
}

func NewServer(cfg config.GatewayConfig, delegator Delegator, responder Responder, snapshot SnapshotFunc) *Server {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Server{
		cfg:       cfg,
		delegator: delegator,
		responder: responder,
		snapshot:  snapshot,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/delegate", s.authMiddleware(s.rateLimitMiddleware(s.handleDelegate)))
	mux.HandleFunc("POST /api/respond", s.authMiddleware(s.rateLimitMiddleware(s.handleRespond)))
	mux.HandleFunc("GET /api/healthz", s.handleHealthz)
	return mux
}

// Start begins listening for HTTP requests on the configured host:port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		logger.InfoCF("gateway", "HTTP server starting", map[string]any{"addr": addr})
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("gateway", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
