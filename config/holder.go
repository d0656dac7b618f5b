// Configuration hot reload: file watching and SIGHUP.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to configuration with hot reload
// support. Session and logging settings take effect through OnChange
// consumers; list, storage, and server changes need a restart. The
// access predicate carries over from the running config since it is
// not representable in YAML.
type Holder struct {
	mu       sync.RWMutex
	config   *App
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*App)
	stopCh   chan struct{}
}

// NewHolder creates a config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *App {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	// Carry over the programmatic parts.
	newCfg.UI = oldCfg.UI
	h.config = newCfg
	callbacks := make([]func(*App), len(h.onChange))
	copy(callbacks, h.onChange)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range callbacks {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*App)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the config file (and the lists directory,
// when configured) for changes. Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	if listsDir := h.Get().ListsDir; listsDir != "" {
		if err := watcher.Add(listsDir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch lists directory: %w", err)
		}
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	close(h.stopCh)
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)
	listsDir := h.Get().ListsDir

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// React to the config file or any list file.
			isConfig := filepath.Base(event.Name) == filename
			isList := listsDir != "" && filepath.Dir(event.Name) == listsDir &&
				(filepath.Ext(event.Name) == ".yaml" || filepath.Ext(event.Name) == ".yml")
			if !isConfig && !isList {
				continue
			}

			// Write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("configuration changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *App) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if len(old.Lists) != len(new.Lists) {
		h.logger.Info().
			Int("old", len(old.Lists)).
			Int("new", len(new.Lists)).
			Msg("list count changed")
	}

	if old.Session.Secret != new.Session.Secret {
		h.logger.Warn().Msg("session secret changed, all existing sessions are now invalid")
	}
}

// ReloadableFields returns which fields take effect on reload without
// a restart.
func ReloadableFields() []string {
	return []string{
		"session.secret",
		"session.max_age",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart. Lists
// are on this side because storage tables derive from them at boot.
func NonReloadableFields() []string {
	return []string{
		"lists",
		"server.host",
		"server.port",
		"db.provider",
		"db.url",
		"logging.format",
	}
}
