package api

import (
	"sync"

	"github.com/samcharles93/seedscan/internal/layout"
)

// DefaultHitCapacity bounds how many hits the store keeps in memory.
const DefaultHitCapacity = 4096

// HitStore keeps the most recent verified hits, numbered from 1 in arrival
// order.
type HitStore struct {
	mu    sync.Mutex
	hits  []HitRecord
	total int
	limit int
}

func NewHitStore(limit int) *HitStore {
	if limit <= 0 {
		limit = DefaultHitCapacity
	}
	return &HitStore{limit: limit}
}

// Add is safe to use as the verifier queue's hit callback.
func (s *HitStore) Add(h layout.Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.hits = append(s.hits, HitRecord{Seq: s.total, Hit: h, Display: h.String()})
	if len(s.hits) > s.limit {
		s.hits = append(s.hits[:0], s.hits[len(s.hits)-s.limit:]...)
	}
}

// After returns the retained hits with Seq > after, plus the total ever
// added.
func (s *HitStore) After(after int) ([]HitRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HitRecord, 0, len(s.hits))
	for _, h := range s.hits {
		if h.Seq > after {
			out = append(out, h)
		}
	}
	return out, s.total
}
