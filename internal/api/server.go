// Package api provides the HTTP REST API and WebSocket server for the nuvo
// daemon.
//
// It exposes zone state and commands, amplifier control endpoints, zone
// state history, and real-time state updates over WebSocket.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/controls"
	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Zones    *zone.Manager
	Controls *controls.Manager
	History  zone.HistoryRepository // optional; history endpoints return 503 when nil
	Bus      *eventbus.Bus
	Version  string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	zones    *zone.Manager
	controls *controls.Manager
	history  zone.HistoryRepository
	bus      *eventbus.Bus
	version  string

	server       *http.Server
	hub          *Hub
	cancel       context.CancelFunc
	unsubscribes []func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, managers, bus)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Zones == nil {
		return nil, fmt.Errorf("zone manager is required")
	}
	if deps.Controls == nil {
		return nil, fmt.Errorf("controls manager is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		zones:    deps.Zones,
		controls: deps.Controls,
		history:  deps.History,
		bus:      deps.Bus,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to the event bus for real-time
// WebSocket broadcast, and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	s.subscribeBusEvents()

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// subscribeBusEvents relays internal events to WebSocket channels.
func (s *Server) subscribeBusEvents() {
	s.unsubscribes = append(s.unsubscribes,
		s.bus.Subscribe(zone.EventStateChanged, func(evt eventbus.Event) {
			if se, ok := evt.Data.(zone.StateEvent); ok {
				s.hub.Broadcast(ChannelZones, se)
			}
		}),
		s.bus.Subscribe(zone.EventKeypadButton, func(evt eventbus.Event) {
			if ke, ok := evt.Data.(zone.KeypadEvent); ok {
				s.hub.Broadcast(ChannelKeypad, ke)
			}
		}),
		s.bus.Subscribe(controls.EventControlChanged, func(evt eventbus.Event) {
			if ce, ok := evt.Data.(controls.ControlEvent); ok {
				s.hub.Broadcast(ChannelControls, ce)
			}
		}),
	)
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}
	for _, unsub := range s.unsubscribes {
		unsub()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
