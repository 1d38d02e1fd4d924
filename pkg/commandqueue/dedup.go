package commandqueue

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxSeenKeys bounds the dedup window; at polling rates it holds far more than one TTL of update ids.
const maxSeenKeys = 100_000

// seenSet remembers keys for ttl, evicting the oldest once full.
type seenSet struct {
	mu   sync.Mutex
	keys *expirable.LRU[string, struct{}]
}

func newSeenSet(ttl time.Duration, size int) *seenSet {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if size <= 0 {
		size = maxSeenKeys
	}
	return &seenSet{keys: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// CheckAndMark records key and reports whether it was already present.
// A repeat does not extend the window.
func (s *seenSet) CheckAndMark(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Peek honours the TTL; Contains would report expired keys until the sweep.
	if _, ok := s.keys.Peek(key); ok {
		return true
	}
	s.keys.Add(key, struct{}{})
	return false
}

func (s *seenSet) Len() int {
	return s.keys.Len()
}
