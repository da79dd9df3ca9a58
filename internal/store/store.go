// Package store persists SDK settings to a yaml file inside the shared
// app-group directory. It is the durable state that survives process
// restarts; everything else in the SDK is in memory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotActivated is returned for persisted-state access before Activate.
var ErrNotActivated = errors.New("store: sdk not activated")

const settingsFile = "devino-settings.yaml"

// Settings is everything the SDK keeps across restarts.
type Settings struct {
	APIKey         string `yaml:"apiKey"`
	APIHost        string `yaml:"apiHost"`
	APIPort        int    `yaml:"apiPort,omitempty"`
	ApplicationID  string `yaml:"applicationId"`
	AppGroup       string `yaml:"appGroup,omitempty"`
	GeoIntervalMin int    `yaml:"geoIntervalMinutes,omitempty"`
	DeviceToken    string `yaml:"deviceToken,omitempty"`
	Subscribed     *bool  `yaml:"subscribed,omitempty"`
	LaunchedBefore bool   `yaml:"launchedBefore,omitempty"`
}

// Store owns the settings file. All accessors are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	path     string
	settings *Settings // nil until activated or loaded from disk
}

// Open binds a store to dir and loads existing settings when present. A
// missing file is not an error: the store stays unactivated.
func Open(dir string) (*Store, error) {
	s := &Store{path: filepath.Join(dir, settingsFile)}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var st Settings
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s.settings = &st
	return s, nil
}

// Activate replaces the persisted configuration. The device token and
// subscription flag of a previous activation are carried over.
func (s *Store) Activate(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings != nil {
		st.DeviceToken = s.settings.DeviceToken
		st.Subscribed = s.settings.Subscribed
		st.LaunchedBefore = s.settings.LaunchedBefore
	}
	s.settings = &st
	return s.persistLocked()
}

// Snapshot returns a copy of the current settings. ok is false before
// activation.
func (s *Store) Snapshot() (Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return Settings{}, false
	}
	return *s.settings, true
}

// SetDeviceToken persists the registered token.
func (s *Store) SetDeviceToken(token string) error {
	return s.update(func(st *Settings) { st.DeviceToken = token })
}

// SetAPIHost persists a new endpoint host.
func (s *Store) SetAPIHost(host string) error {
	return s.update(func(st *Settings) { st.APIHost = host })
}

// SetSubscribed persists the push-permission flag.
func (s *Store) SetSubscribed(v bool) error {
	return s.update(func(st *Settings) { st.Subscribed = &v })
}

// FirstLaunch reports whether this is the first launch since activation and
// flips the persisted flag, so it answers true exactly once.
func (s *Store) FirstLaunch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil || s.settings.LaunchedBefore {
		return false
	}
	s.settings.LaunchedBefore = true
	_ = s.persistLocked()
	return true
}

func (s *Store) update(f func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return ErrNotActivated
	}
	f(s.settings)
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := yaml.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
