package reconcile

import "fmt"

// SeenKeySet records key values already processed during one table's pass.
type SeenKeySet struct {
	keys map[string]struct{}
}

// NewSeenKeySet returns an empty set.
func NewSeenKeySet() *SeenKeySet {
	return &SeenKeySet{keys: make(map[string]struct{})}
}

// Has reports whether key was marked. A nil key is never seen.
func (s *SeenKeySet) Has(key any) bool {
	if key == nil {
		return false
	}
	_, ok := s.keys[seenKey(key)]
	return ok
}

// Mark adds key to the set. Nil keys are ignored.
func (s *SeenKeySet) Mark(key any) {
	if key == nil {
		return
	}
	s.keys[seenKey(key)] = struct{}{}
}

// Len returns the number of marked keys.
func (s *SeenKeySet) Len() int {
	return len(s.keys)
}

// Coerced keys of one column share a Go type, so type plus value is unique.
func seenKey(key any) string {
	if b, ok := key.([]byte); ok {
		key = string(b)
	}
	return fmt.Sprintf("%T:%v", key, key)
}
