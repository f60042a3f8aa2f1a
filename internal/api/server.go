// Package api provides the HTTP REST API and WebSocket server for Slate Core.
//
// It exposes bootstrap, provisioning state, schedule management, and batch
// device actions to teacher-facing front ends, plus a WebSocket feed of
// schedule and action events for classroom wall displays.
//
// The server follows the same lifecycle pattern as other infrastructure components:
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

	"github.com/slatedesk/slate-core/internal/action"
	"github.com/slatedesk/slate-core/internal/audit"
	"github.com/slatedesk/slate-core/internal/directory"
	"github.com/slatedesk/slate-core/internal/infrastructure/config"
	"github.com/slatedesk/slate-core/internal/infrastructure/logging"
	"github.com/slatedesk/slate-core/internal/infrastructure/mqtt"
	"github.com/slatedesk/slate-core/internal/provision"
	"github.com/slatedesk/slate-core/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BatteryRecorder receives battery readings observed on device list calls.
// This allows the API server to feed fleet telemetry without creating a
// dependency on the metrics backend.
type BatteryRecorder interface {
	WriteBatteryLevel(udid string, locationID int, level float64)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Security     config.SecurityConfig
	Company      string // tenant network id, forwarded to directory authentication
	Logger       *logging.Logger
	Directory    *directory.Client
	Planner      *schedule.Planner
	Orchestrator *provision.Orchestrator
	Index        *provision.Index
	Executor     *action.Executor
	Audit        audit.Repository
	Trail        *audit.Trail
	MQTT         *mqtt.Client    // optional: display status relay disabled when nil
	Battery      BatteryRecorder // optional: battery telemetry disabled when nil
	ExternalHub  *Hub            // If set, the server uses this hub instead of creating its own
	Version      string
}

// Server is the HTTP API server for Slate Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	secCfg       config.SecurityConfig
	company      string
	logger       *logging.Logger
	directory    *directory.Client
	planner      *schedule.Planner
	orchestrator *provision.Orchestrator
	index        *provision.Index
	executor     *action.Executor
	audit        audit.Repository
	trail        *audit.Trail
	mqtt         *mqtt.Client
	battery      BatteryRecorder
	version      string
	server       *http.Server
	hub          *Hub
	externalHub  bool // true if hub was injected externally
	tickets      *ticketStore
	cancel       context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, directory, planner,
//     orchestrator, index, executor)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if deps.Planner == nil {
		return nil, fmt.Errorf("schedule planner is required")
	}
	if deps.Orchestrator == nil || deps.Index == nil {
		return nil, fmt.Errorf("provision orchestrator and index are required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("action executor is required")
	}
	// MQTT is optional. Without it the display status relay is disabled
	// but REST and WebSocket event delivery still function.

	s := &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		secCfg:       deps.Security,
		company:      deps.Company,
		logger:       deps.Logger,
		directory:    deps.Directory,
		planner:      deps.Planner,
		orchestrator: deps.Orchestrator,
		index:        deps.Index,
		executor:     deps.Executor,
		audit:        deps.Audit,
		trail:        deps.Trail,
		mqtt:         deps.MQTT,
		battery:      deps.Battery,
		version:      deps.Version,
		tickets:      newTicketStore(),
	}

	// Use externally-provided hub if available (needed when the event fanout
	// also requires the hub for WebSocket broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if necessary.
// Callers wire the hub into the event fanout before Start().
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to MQTT display
// status topics for real-time WebSocket relay, and launches the HTTP listener
// in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	// Relay wall display presence to WebSocket clients
	if err := s.subscribeDisplayStatus(); err != nil {
		s.logger.Warn("failed to subscribe to display status for WebSocket", "error", err)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
