// Package memory holds the key/value pairs steps of one run share with each
// other. Nothing is persisted.
package memory

import (
	"encoding/json"
	"sync"

	"github.com/elee1766/stepwise/src/aisdk"
)

// messagePrefix introduces the rendered memory in a step's context.
const messagePrefix = "Memory from previous steps (key/value pairs):\n"

// Pair is a single memory entry.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Store is an insertion-ordered key/value map. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Set stores value under key. An existing key keeps its position.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

func (s *Store) set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Apply sets every pair in order.
func (s *Store) Apply(pairs []Pair) {
	if len(pairs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.set(p.Key, p.Value)
	}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Pairs returns a copy of the entries in insertion order.
func (s *Store) Pairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pair, len(s.keys))
	for i, k := range s.keys {
		out[i] = Pair{Key: k, Value: s.values[k]}
	}
	return out
}

// Message renders the store as the user message that opens a step's
// context. It returns nil when the store is empty.
func (s *Store) Message() *aisdk.Message {
	pairs := s.Pairs()
	if len(pairs) == 0 {
		return nil
	}

	rows := make([][2]string, len(pairs))
	for i, p := range pairs {
		rows[i] = [2]string{p.Key, p.Value}
	}
	// marshalling a slice of string arrays cannot fail
	data, _ := json.Marshal(rows)

	return &aisdk.Message{
		Role:    aisdk.RoleUser,
		Content: messagePrefix + string(data),
	}
}
