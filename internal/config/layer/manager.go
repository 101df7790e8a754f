package layer

import (
	"slices"
	"sync"
)

// Manager holds the layers of one configuration, ordered by priority, and
// caches their merge.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer // ascending priority
	merged *Layer   // nil when stale
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddLayer installs layer, replacing any layer of the same name. Layers of
// equal priority keep the order they were added in.
func (m *Manager) AddLayer(layer *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = slices.DeleteFunc(m.layers, byName(layer.Name))
	i := slices.IndexFunc(m.layers, func(l *Layer) bool { return l.Priority > layer.Priority })
	if i < 0 {
		i = len(m.layers)
	}
	m.layers = slices.Insert(m.layers, i, layer)
	m.merged = nil
}

// RemoveLayer drops the named layer and reports whether it was present.
func (m *Manager) RemoveLayer(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.layers)
	m.layers = slices.DeleteFunc(m.layers, byName(name))
	if len(m.layers) == n {
		return false
	}
	m.merged = nil
	return true
}

func byName(name string) func(*Layer) bool {
	return func(l *Layer) bool { return l.Name == name }
}

// Layers returns the layers, lowest priority first.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.layers)
}

// LayerCount returns the number of layers.
func (m *Manager) LayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers)
}

// Merge returns the union of all layers where higher priorities win. The
// result is a private copy.
func (m *Manager) Merge() *Layer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.merged == nil {
		m.merged = Merge(m.layers...)
	}
	return m.merged.Clone()
}

// Providers returns the names of the layers that set key, highest priority
// first. The first one is the layer whose value is used.
func (m *Manager) Providers(key string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for _, l := range slices.Backward(m.layers) {
		if _, ok := l.Entries[key]; ok {
			names = append(names, l.Name)
		}
	}
	return names
}
