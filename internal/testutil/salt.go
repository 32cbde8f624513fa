package testutil

import "sync"

// SequenceSalt hands out salts 1, 2, 3, ... so checksum streams in tests are
// reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceSalt struct {
	mu   sync.Mutex
	next uint64
}

// NewSequenceSalt creates a salt source whose first salt is 1.
func NewSequenceSalt() *SequenceSalt {
	return &SequenceSalt{}
}

// Next returns the next salt. Matches the engine's salt source signature.
func (s *SequenceSalt) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Last returns the most recently issued salt, or zero.
func (s *SequenceSalt) Last() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Reset makes the next call to Next return 1 again.
func (s *SequenceSalt) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}

// FixedSalt returns a salt source that always yields salt.
func FixedSalt(salt uint64) func() uint64 {
	return func() uint64 { return salt }
}
