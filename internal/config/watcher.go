package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher follows the YAML config file and invokes a callback with the
// freshly reloaded configuration. Operators edit the subgroup list at
// runtime; nothing else is expected to change live, but a full reload is
// cheap and simpler than field-level diffing.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(*Config)
	stopChan chan struct{}
	stopOnce sync.Once
}

// debounceWindow absorbs the editor write-then-rename bursts fsnotify
// reports as several events.
const debounceWindow = 500 * time.Millisecond

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:     path,
		watcher:  fsw,
		onReload: onReload,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// atomic-rename saves keep working.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.loop()
	log.Info().Str("path", w.path).Msg("Watching config file for changes")
	return nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg := Defaults()
	cfg.ConfigPath = w.path
	if err := cfg.loadFile(w.path); err != nil {
		log.Warn().Err(err).Msg("Config reload failed, keeping previous configuration")
		return
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Reloaded config is invalid, keeping previous configuration")
		return
	}

	log.Info().Strs("subgroups", cfg.Subgroups).Msg("Configuration reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop ends watching.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.watcher.Close()
	})
}
