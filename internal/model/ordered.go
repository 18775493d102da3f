package model

import "iter"

// OrderedMap keeps keys in first-insertion order. The zero value is ready to use.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values []V
	index  map[K]int
}

// Set stores v under k. Re-setting an existing key keeps its position.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if m.index == nil {
		m.index = make(map[K]int)
	}
	if i, ok := m.index[k]; ok {
		m.values[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
}

func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

func (m *OrderedMap[K, V]) Has(k K) bool {
	_, ok := m.index[k]
	return ok
}

// Ref returns a pointer to the stored value, valid until the next Set of a new key.
func (m *OrderedMap[K, V]) Ref(k K) *V {
	i, ok := m.index[k]
	if !ok {
		return nil
	}
	return &m.values[i]
}

func (m *OrderedMap[K, V]) Len() int { return len(m.keys) }

func (m *OrderedMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// All iterates in insertion order.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}
