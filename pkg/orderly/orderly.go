// Package orderly provides a concurrency-safe map that remembers insertion
// order. Updating an existing key keeps its position.
package orderly

import "sync"

type Map[K comparable, V any] struct {
	mu      sync.Mutex
	keys    []K
	values  map[K]V
	maxSize int
}

// New creates a map holding at most maxSize keys. maxSize <= 0 means unbounded.
func New[K comparable, V any](maxSize int) *Map[K, V] {
	capacity := maxSize
	if capacity < 0 {
		capacity = 0
	}
	return &Map[K, V]{
		keys:    make([]K, 0, capacity),
		values:  make(map[K]V),
		maxSize: maxSize,
	}
}

// Set inserts or updates key. It reports false when a new key would exceed
// the size limit.
func (m *Map[K, V]) Set(key K, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.values[key]; !exists {
		if m.maxSize > 0 && len(m.keys) >= m.maxSize {
			return false
		}
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return true
}

// Update applies fn to the current value of key (zero value and false when
// absent) and stores the result, keeping the key's position.
func (m *Map[K, V]) Update(key K, fn func(old V, exists bool) V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.values[key]
	if !exists {
		if m.maxSize > 0 && len(m.keys) >= m.maxSize {
			return false
		}
		m.keys = append(m.keys, key)
	}
	m.values[key] = fn(old, exists)
	return true
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	return value, ok
}

func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// PopFront removes and returns the oldest entry.
func (m *Map[K, V]) PopFront() (K, V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		key   K
		value V
	)
	if len(m.keys) == 0 {
		return key, value, false
	}
	key = m.keys[0]
	value = m.values[key]
	m.keys = m.keys[1:]
	delete(m.values, key)
	return key, value, true
}

func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]K(nil), m.keys...)
}

// ForEach visits entries in order. fn must not call back into the map.
func (m *Map[K, V]) ForEach(fn func(k K, v V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.keys {
		fn(key, m.values[key])
	}
}
