// Package settings persists infill.Settings to a YAML file.
//
// Loading goes through viper so every field can be overridden from the
// environment (INFILL_<KEY>, e.g. INFILL_WINDOWSIZE=4000). OPENAI_API_KEY is
// honoured as a fallback credential. Saving validates first and writes the
// whole record atomically.
package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rickchristie/infill"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INFILL"

// FallbackAPIKeyEnv is consulted when no API key is configured otherwise.
const FallbackAPIKeyEnv = "OPENAI_API_KEY"

// Store reads and writes one settings file.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store for the file at path. The file does not need to
// exist.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   filepath.Clean(path),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "infill", "settings.yaml"), nil
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file over the documented defaults and applies
// environment overrides. A missing file yields the defaults. Load does not
// validate: an invalid trigger pattern is reported when the controller
// compiles it.
func (s *Store) Load() (infill.Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	content, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Debug("settings file not found, using defaults", "path", s.path)
	case err != nil:
		return infill.Settings{}, fmt.Errorf("read settings %s: %w", s.path, err)
	default:
		if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
			return infill.Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv(KeyAPIKey, EnvPrefix+"_OPENAIAPIKEY", FallbackAPIKeyEnv); err != nil {
		return infill.Settings{}, fmt.Errorf("bind env: %w", err)
	}

	var out infill.Settings
	if err := v.Unmarshal(&out); err != nil {
		return infill.Settings{}, fmt.Errorf("decode settings %s: %w", s.path, err)
	}
	return out, nil
}

// Save validates settings and writes them in full. On a validation error
// the file is left untouched.
func (s *Store) Save(settings infill.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(settings)
}

// Update loads the current settings, applies fn, and saves the result. It
// is the settings-change action: one field changes, the whole record is
// persisted. Nothing is written when fn or validation fails.
func (s *Store) Update(fn func(*infill.Settings) error) (infill.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load()
	if err != nil {
		return infill.Settings{}, err
	}
	if err := fn(&current); err != nil {
		return infill.Settings{}, err
	}
	if err := current.Validate(); err != nil {
		return infill.Settings{}, err
	}
	if err := s.writeLocked(current); err != nil {
		return infill.Settings{}, err
	}
	return current, nil
}

func (s *Store) writeLocked(settings infill.Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}

	s.logger.Debug("settings saved", "path", s.path)
	return nil
}

// Watch calls fn with freshly loaded settings every time the file is
// written, created, or replaced. It blocks until ctx is done. The
// directory is watched rather than the file so atomic replacements are
// seen.
func (s *Store) Watch(ctx context.Context, fn func(infill.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			settings, err := s.Load()
			if err != nil {
				s.logger.Warn("settings reload failed", "path", s.path, "error", err)
				continue
			}
			s.logger.Info("settings reloaded", "path", s.path)
			fn(settings)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("settings watcher error", "error", err)
		}
	}
}

func setDefaults(v *viper.Viper) {
	d := infill.DefaultSettings()
	v.SetDefault(KeyAPIKey, d.APIKey)
	v.SetDefault(KeyBaseURL, d.BaseURL)
	v.SetDefault(KeyModel, d.Model)
	v.SetDefault(KeyTriggerPattern, d.TriggerPattern)
	v.SetDefault(KeyWindowSize, d.WindowSize)
	v.SetDefault(KeyDebounceMs, d.DebounceMs)
	v.SetDefault(KeySystemPrompt, d.SystemPrompt)
	v.SetDefault(KeyTriggerScope, string(d.TriggerScope))
}
