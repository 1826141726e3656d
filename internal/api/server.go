// Package api exposes the analytics service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tg_analytics/internal/metrics"
	"tg_analytics/internal/model"
)

const (
	serviceName     = "telegram-analytics"
	shutdownTimeout = 10 * time.Second
	// Analyses may run for up to five minutes.
	writeTimeout = 310 * time.Second
)

// Analyzer is the report service used by the handlers.
type Analyzer interface {
	Analyze(ctx context.Context, caller, channel string, hoursBack int) (*model.Report, error)
	Subscribers(ctx context.Context, channel string) (model.ChannelInfo, error)
	FindChannels(ctx context.Context, query string) ([]model.ChannelRef, error)
	Narrative(ctx context.Context, rep *model.Report) (string, bool, error)
	SaveSettings(ctx context.Context, st *model.AISettings) error
	PDF(ctx context.Context, rep *model.Report, narrative string) ([]byte, error)
	Location() *time.Location
}

// Handler serves the HTTP endpoints.
type Handler struct {
	svc Analyzer
	log *slog.Logger
	now func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(svc Analyzer, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// NewRouter builds the gin engine with all routes. m and gatherer may be nil,
// in which case request metrics and /metrics are not registered.
func NewRouter(h *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))
	if m != nil {
		router.Use(m.Middleware())
	}

	router.GET("/health", h.Health)
	router.POST("/analyze", h.Analyze)
	router.POST("/ai_analyze", h.AIAnalyze)
	router.POST("/ai_settings", h.AISettings)
	router.POST("/generate_pdf", h.GeneratePDF)
	router.POST("/channel_subscribers", h.ChannelSubscribers)
	router.POST("/find_channel", h.FindChannel)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// requestLogger logs one line per request.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			log.Error("http request", append(attrs, "errors", c.Errors.String())...)
			return
		}
		log.Info("http request", attrs...)
	}
}

// Server is the HTTP server with graceful shutdown.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer creates a Server listening on port.
func NewServer(port int, handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", "address", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
