package state

import (
	"fmt"
	"sync"

	"github.com/hupe1980/tripmesh/core"
)

// scopeMap is a lock-free map for one scope.
type scopeMap struct {
	m sync.Map
}

func (s *scopeMap) load(key string) (any, bool) {
	return s.m.Load(key)
}

func (s *scopeMap) store(key string, value any) {
	s.m.Store(key, value)
}

// increment adds one to the counter under key using compare-and-swap.
func (s *scopeMap) increment(key string) (int64, error) {
	for {
		cur, loaded := s.m.LoadOrStore(key, int64(1))
		if !loaded {
			return 1, nil
		}

		n, err := core.ToInt64(cur)
		if err != nil {
			return 0, fmt.Errorf("increment %q: %w", key, err)
		}

		if s.m.CompareAndSwap(key, cur, n+1) {
			return n + 1, nil
		}
	}
}

func (s *scopeMap) snapshot() map[string]any {
	out := map[string]any{}
	s.m.Range(func(k, v any) bool {
		out[k.(string)] = v
		return true
	})
	return out
}

func (s *scopeMap) clear() {
	s.m.Clear()
}
