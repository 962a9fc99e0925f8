package orchestrator

import (
	"sync"

	"github.com/examforge/examforge/internal/models"
)

// seedSampler rotates round-robin through a collection's members so that
// repeated slots in the same section do not all retrieve against the same
// seed. Without replacement until the collection wraps; safe for concurrent
// slots.
type seedSampler struct {
	mu     sync.Mutex
	seeds  []models.StructuredQuestion
	cursor int
}

func newSeedSampler(seeds []models.StructuredQuestion) *seedSampler {
	return &seedSampler{seeds: seeds}
}

func (s *seedSampler) Next() models.StructuredQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := s.seeds[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.seeds)
	return seed
}

func (s *seedSampler) Len() int {
	return len(s.seeds)
}
