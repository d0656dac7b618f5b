// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelf-cms/shelf/adapters/clock"
	"github.com/shelf-cms/shelf/adapters/hasher"
	"github.com/shelf-cms/shelf/adapters/idgen"
	"github.com/shelf-cms/shelf/adapters/metrics"
	"github.com/shelf-cms/shelf/config"
	"github.com/shelf-cms/shelf/core/engine"
	"github.com/shelf-cms/shelf/core/storage"
	"github.com/shelf-cms/shelf/web/admin"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     config.App
	Engine     *engine.Engine
	Store      storage.Store
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	holder *config.Holder
}

// Options configures application startup.
type Options struct {
	// HotReload watches the config file and lists directory, and
	// listens for SIGHUP.
	HotReload bool
}

// NewFromFile loads configuration from a YAML file and wires the
// application.
func NewFromFile(path string, opts Options) (*App, error) {
	logger := setupLogger(config.LoggingConfig{
		Level:  os.Getenv("SHELF_LOG_LEVEL"),
		Format: os.Getenv("SHELF_LOG_FORMAT"),
	})

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}

	a, err := New(*holder.Get())
	if err != nil {
		holder.Stop()
		return nil, err
	}

	if opts.HotReload {
		a.holder = holder
		holder.OnChange(func(cfg *config.App) {
			if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
				zerolog.SetGlobalLevel(lvl)
			}
			if err := a.Engine.Reconfigure(*cfg); err != nil {
				a.Logger.Error().Err(err).Msg("applying reloaded config failed")
				if a.Metrics != nil {
					a.Metrics.ConfigReloadErrors.Inc()
				}
				return
			}
			if a.Metrics != nil {
				a.Metrics.ConfigReloads.Inc()
			}
			// Storage tables derive from the lists at boot; log so the
			// operator knows a list edit still needs a restart.
			a.Logger.Info().Msg("configuration reloaded; list changes apply on restart")
		})
		if err := holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watching disabled")
		}
		holder.WatchSignals()
	} else {
		holder.Stop()
	}

	return a, nil
}

// New wires the application from an in-memory configuration.
func New(cfg config.App) (*App, error) {
	cfg.ApplyDefaults()

	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing shelf")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	store, err := storage.NewSQLiteStore(cfg.DB.URL)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.Store = store
	logger.Info().Str("url", cfg.DB.URL).Msg("database initialized")

	eng, err := engine.New(context.Background(), cfg, engine.Deps{
		Store:   store,
		Hasher:  hasher.NewBcrypt(0),
		IDs:     idgen.UUID{},
		Clock:   clock.Real{},
		Metrics: a.Metrics,
		Logger:  logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	a.Engine = eng

	srv := admin.New(eng, a.Metrics, logger)
	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	levelStr := cfg.Level
	if levelStr == "" {
		levelStr = "info"
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
