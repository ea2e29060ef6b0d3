// Package api serves the project trees over HTTP as JSON for the browser
// editor.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexanderramin/wbs/internal/importer"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Services are the use cases the API exposes.
type Services struct {
	Projects service.ProjectService
	Trees    service.TreeService
	Budget   service.AllocationService
	Exports  service.ExportService
}

// Options configures a Server. A nil Registerer disables request metrics
// and a nil Gatherer disables /metrics.
type Options struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Now        func() time.Time
}

// Server routes HTTP requests to the services.
type Server struct {
	svc      Services
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
	now      func() time.Time
}

// NewServer builds a Server. Request counters are registered on
// opts.Registerer when set.
func NewServer(svc Services, opts Options) *Server {
	s := &Server{
		svc:      svc,
		logger:   opts.Logger,
		gatherer: opts.Gatherer,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Registerer != nil {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wbs_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"})
		opts.Registerer.MustRegister(s.requests)
	}
	return s
}

// Handler returns the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/projects", s.listProjects)
		v1.POST("/projects", s.createProject)
		v1.GET("/projects/:id", s.getProject)
		v1.GET("/projects/:id/tree", s.getTree)
		v1.GET("/projects/:id/summary", s.getSummary)
		v1.GET("/projects/:id/export", s.exportProject)
		v1.POST("/projects/:id/nodes/:nodeID/children", s.addChild)
		v1.PATCH("/projects/:id/nodes/:nodeID", s.updateNode)
		v1.DELETE("/projects/:id/nodes/:nodeID", s.deleteNode)
		v1.POST("/projects/:id/validate", s.validate)
		v1.GET("/projects/:id/allocation", s.allocation)
		v1.GET("/projects/:id/progress/:nodeID", s.progress)
	}
	return r
}

// logRequests logs every request and counts it by route.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if s.requests != nil {
			s.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// conflictResponse is the 409 body: the validator result plus a message.
type conflictResponse struct {
	Error string `json:"error"`
	scheduler.ValidationResult
}

// writeError maps service errors onto status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var conflict *service.ScheduleConflictError
	var depErr *service.DependencyError
	var docErr *importer.ValidationError

	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, conflictResponse{Error: err.Error(), ValidationResult: conflict.Result})
	case errors.As(err, &depErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "errors": errorStrings(depErr.Errs)})
	case errors.As(err, &docErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "errors": errorStrings(docErr.Errs)})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
