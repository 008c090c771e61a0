// Package prefs stores user preferences as a JSON key/value file.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	appDir    = "snaplabel"
	prefsFile = "preferences.json"
)

// Preference keys.
const (
	KeyLastProject  = "last_project"
	KeyCameraIndex  = "camera_index"
	KeyCameraAlpha  = "camera_alpha"
	KeyCameraBeta   = "camera_beta"
	KeyShotInterval = "shot_interval_seconds"

	KeyCameraResolution = "camera_resolution"
)

// Prefs is safe for concurrent use.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
}

// DefaultPath returns <user config dir>/snaplabel/preferences.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, prefsFile)
}

// Load reads preferences from DefaultPath.
func Load() *Prefs {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads preferences from path. A missing or unreadable file gives
// empty preferences that will be written to path on Save.
func LoadFrom(path string) *Prefs {
	p := &Prefs{values: make(map[string]any), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		p.values = make(map[string]any)
	}
	return p
}

// Path returns the backing file.
func (p *Prefs) Path() string {
	return p.path
}

// Save writes preferences to disk, creating the directory if needed.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (p *Prefs) get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *Prefs) set(key string, v any) {
	p.mu.Lock()
	p.values[key] = v
	p.mu.Unlock()
}

// Float returns a number preference, or fallback if unset.
func (p *Prefs) Float(key string, fallback float64) float64 {
	v, _ := p.get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

// SetFloat stores a number preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.set(key, val)
}

// Int returns a whole-number preference, or fallback if unset. JSON numbers
// decode as float64 and are truncated.
func (p *Prefs) Int(key string, fallback int) int {
	v, _ := p.get(key)
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}

// SetInt stores a whole-number preference.
func (p *Prefs) SetInt(key string, val int) {
	p.set(key, val)
}

// String returns a string preference, or "" if unset.
func (p *Prefs) String(key string) string {
	v, _ := p.get(key)
	s, _ := v.(string)
	return s
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.set(key, val)
}

// Delete removes a preference.
func (p *Prefs) Delete(key string) {
	p.mu.Lock()
	delete(p.values, key)
	p.mu.Unlock()
}
