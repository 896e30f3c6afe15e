package circuitbreaker

import (
	"sort"
	"sync"

	"connection-broker/internal/common/logging"
)

// Manager keeps one breaker per key, created on first use
type Manager struct {
	config   Config
	logger   logging.Logger
	breakers map[string]*Breaker
	mu       sync.Mutex
}

// NewManager creates a manager whose breakers all share config
func NewManager(config Config, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Manager{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for key, creating it if needed
func (m *Manager) Get(key string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[key]; ok {
		return b
	}
	b := New(key, m.config, m.logger)
	m.breakers[key] = b
	return b
}

// Observe runs fn and records its outcome on the breaker for key
func (m *Manager) Observe(key string, fn func() error) error {
	return m.Get(key).Observe(fn)
}

// Remove forgets the breaker for key
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakers, key)
}

// AllStats returns statistics for all breakers sorted by name
func (m *Manager) AllStats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, b := range m.breakers {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
