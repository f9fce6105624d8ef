package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aevon-lab/fsevents/internal/aggregation"
	"github.com/aevon-lab/fsevents/internal/metrics"
)

type Server struct {
	Engine    *gin.Engine
	Addr      string
	journal   HealthChecker
	transport TransportStatus
	queue     QueueStatus
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// TransportStatus reports the state of the provider connection.
type TransportStatus interface {
	Connected() bool
	BreakerState() string
}

// QueueStatus reports the flush delivery queue. Flushes published while the
// queue is full are dropped.
type QueueStatus interface {
	Stats() aggregation.DispatchStats
}

// New creates the admin server. journal is nil when the flush journal is
// disabled; transport may be nil in tests.
func New(addr string, mode string, journal HealthChecker, transport TransportStatus) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if mode == "debug" {
		r.Use(gin.Logger())
	}

	s := &Server{
		Engine:    r,
		Addr:      addr,
		journal:   journal,
		transport: transport,
	}

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

// ReportQueue adds the delivery queue to the health body.
func (s *Server) ReportQueue(q QueueStatus) {
	s.queue = q
}

// healthHandler reports unhealthy only when the journal database is
// unreachable. A disconnected provider is reported but does not fail the
// check: the transport reconnects on its own.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "healthy", "database": "disabled"}

	if s.journal != nil {
		if err := s.journal.Ping(ctx); err != nil {
			slog.Error("Health check failed: database unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		body["database"] = "connected"
	}

	if s.transport != nil {
		provider := "disconnected"
		if s.transport.Connected() {
			provider = "connected"
		}
		body["provider"] = provider
		body["circuit_breaker"] = s.transport.BreakerState()
	}

	if s.queue != nil {
		body["dispatcher"] = s.queue.Stats()
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
