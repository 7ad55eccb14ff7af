// Package api exposes deposit verification over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vietddude/depositverifier/internal/indexing/health"
)

// Options configures the HTTP server.
type Options struct {
	Port               int
	RequestTimeout     time.Duration
	CORSOrigins        []string
	RateLimitPerMinute int
}

// Server is the HTTP front of the verifier.
type Server struct {
	engine *gin.Engine
	server *http.Server
	log    *slog.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(opts Options, handler *DepositHandler, auth *Authenticator, monitor *health.Monitor) *gin.Engine {
	log := slog.Default().With("component", "api")

	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(log),
		Logger(log),
		CORS(opts.CORSOrigins),
		RequestSizeLimit(),
	)

	if monitor != nil {
		health.Register(r, monitor)
	}

	v1 := r.Group("/v1/deposits")
	v1.Use(Timeout(opts.RequestTimeout))
	{
		v1.GET("/config", handler.GetConfig)
		v1.GET("", handler.GetConfig)

		// Preflight is answered by the CORS middleware.
		preflight := func(c *gin.Context) { c.Status(http.StatusNoContent) }
		v1.OPTIONS("", preflight)
		v1.OPTIONS("/config", preflight)
		v1.OPTIONS("/verify", preflight)

		limited := v1.Group("", RateLimit(opts.RateLimitPerMinute))
		limited.POST("", handler.Dispatch)
		limited.POST("/verify", Authentication(auth), handler.Verify)
	}

	return r
}

// NewServer creates the HTTP server.
func NewServer(opts Options, handler *DepositHandler, auth *Authenticator, monitor *health.Monitor) *Server {
	engine := NewRouter(opts, handler, auth, monitor)
	return &Server{
		engine: engine,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.RequestTimeout + 10*time.Second,
		},
		log: slog.Default().With("component", "api"),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
