package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tinytelemetry/honeywatch/internal/liveview"
	"github.com/tinytelemetry/honeywatch/internal/logging"
	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/report"
	"github.com/tinytelemetry/honeywatch/internal/severity"
)

// Reporter is the report trigger contract served under /api/report.
type Reporter interface {
	Generate(ctx context.Context) error
	Fetch() (*report.Artifact, error)
}

// Config configures the HTTP API.
type Config struct {
	Addr string
	// RefreshRateLimit bounds POST /api/refresh per second; <= 0 disables it.
	RefreshRateLimit float64
	Catalog          *severity.Catalog
	Reports          Reporter
	Logger           *zap.Logger
}

// Server provides the HTTP API over a live view.
type Server struct {
	addr      string
	view      model.LiveView
	query     *liveview.Querier
	catalog   *severity.Catalog
	reports   Reporter
	limiter   *rate.Limiter
	log       *zap.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(cfg Config, view model.LiveView) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	log := logging.OrNop(cfg.Logger)
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = severity.DefaultCatalog()
	}
	var limiter *rate.Limiter
	if cfg.RefreshRateLimit > 0 {
		burst := int(cfg.RefreshRateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RefreshRateLimit), burst)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		view:      view,
		query:     liveview.NewQuerier(view),
		catalog:   catalog,
		reports:   cfg.Reports,
		limiter:   limiter,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts down the HTTP server and closes live connections.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), roleMiddleware())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/session", s.handleSession)
	api.GET("/logs", s.handleLogs)
	api.GET("/stats", s.handleStats)
	api.GET("/timeseries", s.handleTimeSeries)
	api.GET("/geo", s.handleGeo)
	api.GET("/breakdowns", s.handleBreakdowns)
	api.GET("/top-ips", s.handleTopIPs)
	api.GET("/search", s.handleSearch)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/report", s.handleGenerateReport)
	api.GET("/report", s.handleDownloadReport)
	api.GET("/live", s.handleLive)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
