package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/skylink-core/internal/infrastructure/config"
	"github.com/nerrad567/skylink-core/internal/infrastructure/logging"
	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylink-core/internal/monitor"
	"github.com/nerrad567/skylink-core/internal/shotstore"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Monitor is the subset of *monitor.Monitor the API drives.
type Monitor interface {
	Status() monitor.Status
	ShotMode() monitor.ShotMode
	Handedness() monitor.Handedness
	SetShotMode(ctx context.Context, target monitor.ShotMode) monitor.ShotMode
	SetHandedness(ctx context.Context, target monitor.Handedness) monitor.Handedness
	ToggleHandedness(ctx context.Context) monitor.Handedness
	ReadyForNextShot(ctx context.Context) bool
	LastShot() (monitor.ShotRecord, bool)
	ReplayLastShot() error
	RefreshConnection(ctx context.Context, disconnectOnly bool) error
	SoftNetworkReset(ctx context.Context) error
}

// ClassificationLog lists recent classification outcomes.
type ClassificationLog interface {
	ListClassifications(ctx context.Context, limit int) ([]shotstore.ClassificationEntry, error)
}

// LinkStats reports device link activity for the metrics endpoint.
type LinkStats interface {
	IsConnected() bool
	PendingCommands() int
	LastSignal() time.Time
}

// MQTTStats reports broker client counters. *mqtt.Client satisfies it.
type MQTTStats interface {
	Stats() mqtt.Stats
}

// DBStats reports connection pool statistics.
type DBStats interface {
	Stats() sql.DBStats
}

// HealthCheckFunc probes one dependency.
type HealthCheckFunc func(ctx context.Context) error

// Deps holds the dependencies of the API server.
// Monitor, Bus and Logger are required; the rest are optional.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Monitor Monitor
	Bus     *monitor.Bus

	Classifications ClassificationLog
	Link            LinkStats
	MQTT            MQTTStats
	DB              DBStats
	HealthChecks    map[string]HealthCheckFunc

	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	monitor Monitor
	bus     *monitor.Bus

	classifications ClassificationLog
	link            LinkStats
	mqtt            MQTTStats
	db              DBStats
	healthChecks    map[string]HealthCheckFunc

	version   string
	startTime time.Time
	hub       *Hub
	server    *http.Server
	listener  net.Listener
	unsubs    []func()
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("monitor is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}

	return &Server{
		cfg:             deps.Config,
		wsCfg:           deps.WS,
		logger:          deps.Logger,
		monitor:         deps.Monitor,
		bus:             deps.Bus,
		classifications: deps.Classifications,
		link:            deps.Link,
		mqtt:            deps.MQTT,
		db:              deps.DB,
		healthChecks:    deps.HealthChecks,
		version:         deps.Version,
		hub:             NewHub(deps.WS, deps.Logger),
	}, nil
}

// Start attaches the WebSocket hub to the bus and begins serving in the
// background. The listener is bound before Start returns.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.startTime = time.Now()

	go s.hub.Run(srvCtx)
	s.unsubs = s.hub.Attach(s.bus)

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		s.detach()
		s.cancel()
		return fmt.Errorf("listening on %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close detaches from the bus, disconnects WebSocket clients and shuts the
// listener down, waiting up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.detach()
		if s.cancel != nil {
			s.cancel()
		}
		if s.server == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutting down API server: %w", shutdownErr)
		}
	})
	return err
}

// HealthCheck reports whether the server has been started.
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

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) detach() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}
