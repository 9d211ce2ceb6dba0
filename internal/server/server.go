// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemstore/internal/config"
	"github.com/vyrodovalexey/itemstore/internal/handler"
	"github.com/vyrodovalexey/itemstore/internal/middleware"
	"github.com/vyrodovalexey/itemstore/internal/store"
	"github.com/vyrodovalexey/itemstore/internal/telemetry"
)

// CORS settings advertised to browsers.
var (
	corsAllowedMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsAllowedHeaders = []string{"Content-Type"}
)

// Server represents the HTTP server.
type Server struct {
	httpServer   *http.Server
	probeServer  *http.Server
	router       *mux.Router
	handler      http.Handler
	config       *config.Config
	logger       *zap.Logger
	wsHandler    *handler.WebSocketHandler
	probeHandler *handler.ProbeHandler
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, itemStore store.Store) *Server {
	s := &Server{
		// Unclean paths such as /items//1 must reach the route-not-found
		// handler instead of being redirected.
		router:       mux.NewRouter().SkipClean(true),
		config:       cfg,
		logger:       logger,
		probeHandler: handler.NewProbeHandler(logger),
	}

	s.setupRoutes(itemStore)
	s.setupMiddleware()
	s.setupHTTPServer()
	s.setupProbeServer()

	return s
}

// setupRoutes configures the API routes and the fallback for unmatched
// requests.
func (s *Server) setupRoutes(itemStore store.Store) {
	s.router.Use(mux.MiddlewareFunc(middleware.RouteTag()))

	// Router middleware only wraps matched routes, so the fallback
	// handlers are instrumented explicitly.
	instrument := func(h http.Handler) http.Handler { return h }
	if s.config.MetricsEnabled {
		metrics := middleware.Metrics()
		s.router.Use(mux.MiddlewareFunc(metrics))
		instrument = metrics
	}

	opts := []handler.Option{handler.WithMaxBodyBytes(s.config.MaxBodyBytes)}

	if s.config.EventsEnabled {
		s.wsHandler = handler.NewWebSocketHandler(s.logger)
		s.wsHandler.RegisterRoutes(s.router)
		opts = append(opts, handler.WithEventPublisher(s.wsHandler))
	}

	restHandler := handler.NewRESTHandler(itemStore, s.logger, opts...)
	restHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	notFound := instrument(handler.RouteNotFound(s.logger))
	s.router.NotFoundHandler = notFound
	s.router.MethodNotAllowedHandler = notFound
}

// setupMiddleware wraps the router in the middleware that must see every
// request, matched or not. The first entry is the outermost.
func (s *Server) setupMiddleware() {
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
	}

	if s.config.CORSEnabled {
		chain = append(chain, middleware.CORS(s.config.CORSAllowedOrigins, corsAllowedMethods, corsAllowedHeaders))
	}

	s.handler = middleware.Chain(chain...)(s.router)

	if telemetry.Enabled(s.config) {
		s.handler = otelhttp.NewHandler(s.handler, s.config.ServiceName)
	}
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// setupProbeServer configures the liveness and readiness server when a
// probe port is set.
func (s *Server) setupProbeServer() {
	if s.config.ProbePort == 0 {
		return
	}

	probeRouter := mux.NewRouter()
	s.probeHandler.RegisterRoutes(probeRouter)
	if s.config.MetricsEnabled {
		probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           probeRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run listens on the configured ports and serves until ctx is cancelled
// or a listener fails, then shuts down gracefully within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}

	var probeLn net.Listener
	if s.probeServer != nil {
		probeLn, err = net.Listen("tcp", s.probeServer.Addr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("probe server listen: %w", err)
		}
	}

	s.logger.Info("starting server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("cors_enabled", s.config.CORSEnabled),
		zap.Bool("events_enabled", s.config.EventsEnabled),
		zap.Bool("tracing_enabled", telemetry.Enabled(s.config)),
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(context.Context) error {
		return serve(s.httpServer, ln)
	})

	if probeLn != nil {
		s.logger.Info("starting probe server", zap.String("address", probeLn.Addr().String()))
		p.Go(func(context.Context) error {
			return serve(s.probeServer, probeLn)
		})
	}

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	})

	s.probeHandler.SetReady(true)

	err = p.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serve runs srv on ln and treats a deliberate close as success.
func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.probeHandler.SetReady(false)

	// Close all WebSocket connections first
	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Ready reports whether the server is accepting traffic.
func (s *Server) Ready() bool {
	return s.probeHandler.Ready()
}
