package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"emperror.dev/errors"
	"github.com/fsnotify/fsnotify"

	"procmon/internal/models"
	"procmon/internal/utils"
)

// Store holds the live settings. Readers on other goroutines see a
// consistent copy; changes take effect on the collection loop's next tick.
type Store struct {
	path string
	log  *utils.Logger

	mu       sync.RWMutex
	current  Settings
	onReload []func(Settings)
}

// Open loads settings from path. A missing file is created with defaults.
// Problems are logged and never prevent startup.
func Open(path string, logger *utils.Logger) *Store {
	s := &Store{path: filepath.Clean(path), log: logger}
	settings, err := Load(s.path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		logger.Infof("No settings file at %s, writing defaults", s.path)
		if err := Save(s.path, settings); err != nil {
			logger.Warnf("Unable to write default settings: %v", err)
		}
	default:
		logger.Warnf("Settings: %v", err)
	}
	s.current = settings
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Thresholds returns the current alert levels.
func (s *Store) Thresholds() models.Thresholds {
	return s.Settings().Thresholds()
}

// RetentionDays returns how many days of history to keep.
func (s *Store) RetentionDays() int {
	return s.Settings().DaysToKeep
}

// DiscordWebhook returns the alert webhook URL, empty when unset.
func (s *Store) DiscordWebhook() string {
	return s.Settings().DiscordWebhook
}

// Update applies fn to a copy of the settings, validates and persists the
// result. Invalid changes are rejected and leave the settings untouched.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	next := s.current
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "invalid settings")
	}
	if err := Save(s.path, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	hooks := append([]func(Settings){}, s.onReload...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(next)
	}
	return nil
}

// Save writes the current settings to disk.
func (s *Store) Save() error {
	return Save(s.path, s.Settings())
}

// OnReload registers fn to run after settings change.
func (s *Store) OnReload(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads the file. A file that cannot be read or parsed keeps the
// current settings; out-of-range fields fall back to their defaults.
func (s *Store) Reload() error {
	settings, err := Load(s.path)
	if err != nil {
		if !errors.Is(err, ErrInvalidFields) {
			return err
		}
		s.log.Warnf("Settings: %v", err)
	}

	s.mu.Lock()
	changed := settings != s.current
	s.current = settings
	hooks := append([]func(Settings){}, s.onReload...)
	s.mu.Unlock()

	if changed {
		s.log.Infof("Settings reloaded from %s", s.path)
		for _, h := range hooks {
			h(settings)
		}
	}
	return nil
}

// Watch reloads the settings whenever the file is written or replaced. It
// blocks until ctx ends or the watcher fails.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create settings watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return errors.Wrap(err, "watch settings directory")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("settings watcher closed")
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.log.Warnf("Settings reload skipped: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("settings watcher closed")
			}
			s.log.Warnf("Settings watcher: %v", err)
		}
	}
}
