package config

import "sync/atomic"

// Manager holds the single Config loaded at startup. It is loaded once
// and never mutated afterwards, matching the "configuration is read-only
// after load" lifecycle invariant — the atomic.Value only exists so the
// zero-value Manager can be constructed before Load runs and so Get is
// safe to call concurrently from many request goroutines.
type Manager struct {
	value atomic.Value
}

// NewManager loads configuration from the environment and returns a
// Manager ready to serve Get calls.
func NewManager() (*Manager, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	m := &Manager{}
	m.value.Store(cfg)
	return m, nil
}

// Get returns the loaded Config. Safe for concurrent use.
func (m *Manager) Get() *Config {
	v := m.value.Load()
	if v == nil {
		return nil
	}
	return v.(*Config)
}
