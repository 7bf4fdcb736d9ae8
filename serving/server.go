package serving

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/kcz17/regionstats/dataset"
	"github.com/kcz17/regionstats/logging"
	"github.com/kcz17/regionstats/querylog"
	"github.com/kcz17/regionstats/telemetry"
	"github.com/valyala/fasthttp"
)

const metricsPath = "/metrics"

type ServerOptions struct {
	Loader dataset.Loader
	// LoadTimeout bounds each dataset load made while serving a request.
	LoadTimeout   time.Duration
	CORS          *CORSPolicy
	ResponseShape ResponseShape
	Monitor       *MonitorLoop
	Logger        logging.Logger
	QueryLog      querylog.Writer
	// PrometheusPath exposes Prometheus metrics when non-empty.
	PrometheusPath     string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxRequestBodySize int
}

// Server answers region statistics queries over HTTP. It holds no per-request
// state, so requests are served concurrently.
type Server struct {
	loader        dataset.Loader
	loadTimeout   time.Duration
	cors          *CORSPolicy
	responseShape ResponseShape
	monitor       *MonitorLoop
	logger        logging.Logger
	queryLog      querylog.Writer

	router *routing.Router
	server *fasthttp.Server
	// isStarted is checked to ensure each Server is only ever started once.
	isStarted    bool
	isStartedMux *sync.Mutex
}

func NewServer(options *ServerOptions) (*Server, error) {
	if options.Loader == nil {
		return nil, errors.New("NewServer() expected a dataset loader")
	}
	if options.Monitor == nil {
		return nil, errors.New("NewServer() expected a monitor loop")
	}
	if options.PrometheusPath == metricsPath {
		return nil, fmt.Errorf("NewServer() expected a Prometheus path other than %s", metricsPath)
	}

	s := &Server{
		loader:        options.Loader,
		loadTimeout:   options.LoadTimeout,
		cors:          options.CORS,
		responseShape: options.ResponseShape,
		monitor:       options.Monitor,
		logger:        options.Logger,
		queryLog:      options.QueryLog,
		isStartedMux:  &sync.Mutex{},
	}
	if s.loadTimeout <= 0 {
		s.loadTimeout = 5 * time.Second
	}
	if s.cors == nil {
		s.cors = DefaultCORSPolicy()
	}
	if s.responseShape == "" {
		s.responseShape = ShapeMap
	}
	if s.logger == nil {
		s.logger = logging.NewNoopLogger()
	}
	if s.queryLog == nil {
		s.queryLog = querylog.NewNoopWriter()
	}

	s.router = s.newRouter(options.PrometheusPath)
	s.server = &fasthttp.Server{
		Handler:            s.router.HandleRequest,
		Name:               "regionstats",
		ReadTimeout:        options.ReadTimeout,
		WriteTimeout:       options.WriteTimeout,
		MaxRequestBodySize: options.MaxRequestBodySize,
		CloseOnShutdown:    true,
	}
	return s, nil
}

func (s *Server) newRouter(prometheusPath string) *routing.Router {
	router := routing.New()

	// Routes registered before Use are not wrapped by the middleware, so
	// scrapes neither count as response times nor receive CORS headers.
	if prometheusPath != "" {
		handler := telemetry.Handler()
		router.Get(prometheusPath, func(c *routing.Context) error {
			handler(c.RequestCtx)
			return nil
		})
	}

	router.Use(s.responseTimeHandler, s.cors.handler())
	router.NotFound(routing.MethodNotAllowedHandler, notFoundHandler)

	router.Post(metricsPath, s.queryHandler())
	router.Get(metricsPath, describeQueryHandler)
	router.Options(metricsPath, preflightHandler)

	return router
}

// Handler returns the request handler serving every route.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.router.HandleRequest
}

// Preload performs the first dataset load so a misconfigured dataset fails
// at startup. It is only meaningful when the loader caches.
func (s *Server) Preload(ctx context.Context) error {
	if _, err := s.loader.Load(ctx); err != nil {
		return fmt.Errorf("Server.Preload() got err when loading dataset: %w", err)
	}
	return nil
}

// ListenAndServe starts the monitor loop and serves on addr until Shutdown
// is called.
func (s *Server) ListenAndServe(addr string) error {
	s.isStartedMux.Lock()
	if s.isStarted {
		s.isStartedMux.Unlock()
		return errors.New("server already started")
	}
	s.isStarted = true
	s.isStartedMux.Unlock()

	if err := s.monitor.Start(); err != nil {
		return fmt.Errorf("Server.ListenAndServe() got err when calling Monitor.Start(): %w", err)
	}
	return s.server.ListenAndServe(addr)
}

// Shutdown waits for open connections to finish, then stops the monitor loop
// and flushes the logger and query log.
func (s *Server) Shutdown() error {
	err := s.server.Shutdown()

	s.isStartedMux.Lock()
	if s.isStarted {
		if stopErr := s.monitor.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	s.isStartedMux.Unlock()

	s.queryLog.Close()
	s.logger.Close()
	return err
}

func (s *Server) responseTimeHandler(c *routing.Context) error {
	startTime := time.Now()
	err := c.Next()
	s.monitor.AddResponseTime(time.Since(startTime))
	return err
}
