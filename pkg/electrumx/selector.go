package electrumx

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

// ErrNoMirrors is returned when a selector is built without any mirror URLs.
var ErrNoMirrors = errors.New("at least one indexer mirror is required")

// Selector hands out mirror base URLs for request attempts.
// The mirror list is fixed at construction; there is no health tracking between calls.
type Selector struct {
	mirrors []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector creates a selector over the given mirrors.
// A nil rnd uses the process-wide random source.
func NewSelector(mirrors []string, rnd *rand.Rand) (*Selector, error) {
	cleaned := make([]string, 0, len(mirrors))
	for _, m := range mirrors {
		m = strings.TrimRight(strings.TrimSpace(m), "/")
		if m != "" {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoMirrors
	}
	return &Selector{mirrors: cleaned, rnd: rnd}, nil
}

// Len returns the number of mirrors.
func (s *Selector) Len() int {
	return len(s.mirrors)
}

// Mirror returns the base URL at index i, or "" when out of range.
func (s *Selector) Mirror(i int) string {
	if i < 0 || i >= len(s.mirrors) {
		return ""
	}
	return s.mirrors[i]
}

// Order returns the mirror indices to try for one logical call.
// There is one attempt per mirror. With pinned >= 0 every attempt goes to that mirror.
// Otherwise every mirror appears once in a fresh random order, so a failed mirror is not
// retried within the same call.
func (s *Selector) Order(pinned int) []int {
	if pinned >= 0 {
		if pinned >= len(s.mirrors) {
			pinned = 0
		}
		order := make([]int, len(s.mirrors))
		for i := range order {
			order[i] = pinned
		}
		return order
	}
	if s.rnd == nil {
		return rand.Perm(len(s.mirrors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Perm(len(s.mirrors))
}
