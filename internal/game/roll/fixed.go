package roll

import "sync"

// Sequence replays fixed draws in order and then repeats the last one.
// Intended for tests in other packages.
type Sequence struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	fi, ii int
}

// NewSequence returns a Sequence yielding floats from Float64 and ints
// (modulo n) from IntN.
func NewSequence(floats []float64, ints ...int) *Sequence {
	return &Sequence{floats: floats, ints: ints}
}

// Float64 returns the next queued float, 0 when none were queued.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[min(s.fi, len(s.floats)-1)]
	s.fi++
	return v
}

// IntN returns the next queued int reduced modulo n, 0 when none were queued.
func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 || n <= 0 {
		return 0
	}
	v := s.ints[min(s.ii, len(s.ints)-1)]
	s.ii++
	return v % n
}
