package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preferences holds durable client-side UI state that survives restarts:
// the last active dashboard tab and the remembered sort order per list.
type Preferences struct {
	ActiveTab  string            `yaml:"active_tab"`
	SortOrders map[string]string `yaml:"sort_orders"` // resource key -> "column:asc|desc"
}

// LoadPreferences reads the preferences file; a missing file yields empty prefs.
func LoadPreferences(path string) (*Preferences, error) {
	prefs := &Preferences{SortOrders: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return nil, fmt.Errorf("read preferences %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if prefs.SortOrders == nil {
		prefs.SortOrders = map[string]string{}
	}
	return prefs, nil
}

// Save persists the preferences file.
func (p *Preferences) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	return nil
}

// SortOrder returns the remembered sort order for a resource key.
func (p *Preferences) SortOrder(resource string) (column, direction string, ok bool) {
	v, ok := p.SortOrders[resource]
	if !ok || v == "" {
		return "", "", false
	}
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			return v[:i], v[i+1:], true
		}
	}
	return v, "asc", true
}

// SetSortOrder remembers the sort order for a resource key.
func (p *Preferences) SetSortOrder(resource, column, direction string) {
	p.SortOrders[resource] = column + ":" + direction
}
