package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"roomnav/internal/mapdef"
	"roomnav/internal/mapgen"
	"roomnav/internal/nav"
	servernet "roomnav/internal/net"
	"roomnav/internal/observability"
	"roomnav/internal/route"
	"roomnav/internal/telemetry"
	"roomnav/logging"
	loggingSinks "roomnav/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger        telemetry.Logger
	Addr          string
	MapFile       string
	MapSeed       string
	MaxExpansions int
	Logging       logging.Config
	Observability observability.Config
}

func DefaultConfig() Config {
	return Config{
		Addr:    ":8080",
		MapSeed: mapgen.DefaultSeed,
		Logging: logging.DefaultConfig(),
	}
}

// ConfigFromEnv overlays environment variables onto DefaultConfig. Invalid
// values are reported through logger and ignored.
func ConfigFromEnv(getenv func(string) string, logger telemetry.Logger) Config {
	cfg := DefaultConfig()
	cfg.Logger = logger
	if raw := getenv("NAV_ADDR"); raw != "" {
		cfg.Addr = raw
	}
	cfg.MapFile = getenv("NAV_MAP_FILE")
	if raw := getenv("NAV_MAP_SEED"); raw != "" {
		cfg.MapSeed = raw
	}
	if raw := getenv("NAV_MAX_EXPANSIONS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.MaxExpansions = value
		} else {
			logger.Printf("invalid NAV_MAX_EXPANSIONS=%q", raw)
		}
	}
	if raw := getenv("NAV_LOG_SINKS"); raw != "" {
		cfg.Logging.EnabledSinks = logging.ParseSinks(raw)
	}
	if raw := getenv("NAV_LOG_JSON_PATH"); raw != "" {
		cfg.Logging.JSON.FilePath = raw
	}
	if raw := getenv("NAV_LOG_LEVEL"); raw != "" {
		if severity, ok := logging.ParseSeverity(raw); ok {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid NAV_LOG_LEVEL=%q", raw)
		}
	}
	if raw := getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}
	return cfg
}

// Server is a wired route service ready to be served.
type Server struct {
	Handler http.Handler
	Service *route.Service
	Router  *logging.Router

	closers []io.Closer
}

// Close flushes the logging router and releases log files.
func (s *Server) Close(ctx context.Context) error {
	err := s.Router.Close(ctx)
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Build constructs the logging router, loads or generates the map and wires
// the HTTP handler.
func Build(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	fallbackLogger := log.Default()
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	srv := &Server{}
	var sinks []logging.NamedSink
	if cfg.Logging.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if cfg.Logging.HasSink("json") {
		var w io.Writer = os.Stdout
		if path := cfg.Logging.JSON.FilePath; path != "" {
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open json log: %w", err)
			}
			srv.closers = append(srv.closers, file)
			w = file
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(w, cfg.Logging.JSON.FlushInterval)})
	}
	srv.Router = logging.NewRouter(logging.SystemClock{}, cfg.Logging, fallbackLogger, sinks)

	navCfg := nav.DefaultConfig()
	navCfg.Publisher = srv.Router
	navCfg.MaxExpansions = cfg.MaxExpansions
	navigator, err := loadNavigator(cfg, navCfg, logger)
	if err != nil {
		srv.Close(context.Background())
		return nil, err
	}

	srv.Service = route.NewService(navigator, route.Config{
		Logger:    logger,
		Metrics:   telemetry.WrapMetrics(srv.Router.Metrics()),
		Publisher: srv.Router,
	})
	srv.Handler = servernet.NewHTTPHandler(srv.Service, servernet.HTTPHandlerConfig{
		Logger:        logger,
		Observability: cfg.Observability,
	})
	return srv, nil
}

func loadNavigator(cfg Config, navCfg nav.Config, logger telemetry.Logger) (*nav.Navigator, error) {
	if cfg.MapFile != "" {
		def, err := mapdef.Load(cfg.MapFile)
		if err != nil {
			return nil, err
		}
		n, err := def.Build(navCfg)
		if err != nil {
			return nil, fmt.Errorf("build map %s: %w", cfg.MapFile, err)
		}
		logger.Printf("loaded map %q from %s", def.Name, cfg.MapFile)
		return n, nil
	}

	genCfg := mapgen.DefaultConfig()
	genCfg.Seed = cfg.MapSeed
	genCfg.PillarsPerRoom = 2
	res, err := mapgen.Generate(genCfg)
	if err != nil {
		return nil, fmt.Errorf("generate map: %w", err)
	}
	navCfg.MapID = "generated-" + genCfg.Seed
	n := nav.New(navCfg)
	if err := n.Load(res.Layout); err != nil {
		return nil, fmt.Errorf("build generated map: %w", err)
	}
	logger.Printf("generated %d rooms and %d doors from seed %q", len(res.Rooms), len(res.Doors), genCfg.Seed)
	return n, nil
}

// Run serves until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
		cfg.Logger = logger
	}

	srv, err := Build(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := srv.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	httpServer := &http.Server{Addr: cfg.Addr, Handler: srv.Handler}
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("route service listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
