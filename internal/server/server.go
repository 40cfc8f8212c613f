package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
	"golang.org/x/oauth2"
)

// Server serves the folio HTTP API.
type Server struct {
	router          *BasicRouter
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *log.Logger
}

// ServerOpts configures [New].
type ServerOpts struct {
	Config *shared.Config
	Engine tasks.SnapshotEngine
	OAuth  services.OAuthService
	Logger *log.Logger

	// OnToken is passed to the /callback handler; see [CallbackHandler].
	OnToken func(*oauth2.Token)
}

// New builds the router with every folio route and wraps it in an [http.Server].
func New(opts ServerOpts) *Server {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	logger := shared.WithLogger(opts.Logger, "component", "server")

	router := NewBasicRouter()
	router.Use(RequestLogger(logger), Recoverer(logger))
	router.Handler(NewHealthHandler(nil, logger))
	router.Handler(NewSpotifyHandler(opts.Engine, logger))
	if opts.OAuth != nil {
		router.Handler(NewAuthHandler(opts.OAuth))
		callback := NewCallbackHandler(opts.OAuth, logger)
		callback.OnToken = opts.OnToken
		router.Handler(callback)
	}

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              opts.Config.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: opts.Config.Server.ShutdownTimeout.Duration,
		logger:          logger,
	}
}

// Router exposes the routes, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe listens on the configured address until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errs <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
