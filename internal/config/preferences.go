package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"replykit/internal/domain"
)

// MaxCacheTTLHours caps the user-selected cache lifetime at one week.
const MaxCacheTTLHours = 168

// Preferences are the user's persisted choices.
type Preferences struct {
	SelectedTone   string `yaml:"selectedTone" json:"selectedTone"`
	CustomToneText string `yaml:"customToneText" json:"customToneText"`
	CacheTTLHours  int    `yaml:"cacheTTLHours" json:"cacheTTLHours"`
}

// DefaultPreferences is what a fresh install uses.
func DefaultPreferences() Preferences {
	return Preferences{SelectedTone: domain.DefaultTone, CacheTTLHours: 24}
}

// CacheTTL converts CacheTTLHours to a duration.
func (p Preferences) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLHours) * time.Hour
}

// Validate rejects unknown tones and out-of-range TTLs.
func (p Preferences) Validate() error {
	if !domain.KnownTone(p.SelectedTone) {
		return fmt.Errorf("%w: unknown tone %q", domain.ErrValidation, p.SelectedTone)
	}
	if p.CacheTTLHours < 1 || p.CacheTTLHours > MaxCacheTTLHours {
		return fmt.Errorf("%w: cacheTTLHours must be between 1 and %d", domain.ErrValidation, MaxCacheTTLHours)
	}
	return nil
}

// PreferencesStore holds preferences in memory. Changes reach disk only
// through Save.
type PreferencesStore struct {
	mu      sync.RWMutex
	path    string
	current Preferences
}

// LoadPreferences reads path, falling back to defaults when the file does
// not exist. Missing fields keep their defaults.
func LoadPreferences(path string) (*PreferencesStore, error) {
	s := &PreferencesStore{path: path, current: DefaultPreferences()}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	p := DefaultPreferences()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	p.SelectedTone = strings.ToLower(strings.TrimSpace(p.SelectedTone))
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("preferences file %s: %w", path, err)
	}
	s.current = p
	return s, nil
}

// Get returns the current preferences.
func (s *PreferencesStore) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the in-memory preferences after validating them.
func (s *PreferencesStore) Update(p Preferences) error {
	p.SelectedTone = strings.ToLower(strings.TrimSpace(p.SelectedTone))
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return nil
}

// Save writes the current preferences to disk atomically.
func (s *PreferencesStore) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	data, err := yaml.Marshal(s.current)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return os.Rename(tmp, s.path)
}
