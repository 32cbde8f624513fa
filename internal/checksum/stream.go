package checksum

import (
	"errors"
	"fmt"

	"github.com/roach88/replicon/internal/ir"
)

// ErrOutOfOrder reports a stream that broke the strictly ascending ObjectID
// contract (duplicates included).
var ErrOutOfOrder = errors.New("checksum stream out of order")

// Mode selects what a provider emits for a scope.
type Mode int

const (
	// ModeObjects emits one entry per identified object.
	ModeObjects Mode = iota + 1
	// ModeContainers emits one entry per container whose checksum is the
	// sum of its children's per-row checksums.
	ModeContainers
)

func (m Mode) String() string {
	switch m {
	case ModeObjects:
		return "objects"
	case ModeContainers:
		return "containers"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Stream is a pull iterator over checksum entries.
type Stream interface {
	// Next advances to the next entry, returning false when the stream is
	// exhausted or failed.
	Next() bool
	// Entry returns the current entry. Only valid after Next returned true.
	Entry() ir.ChecksumEntry
	// Err returns the error that stopped the stream, if any.
	Err() error
	// Close releases the underlying resources. Safe to call more than once.
	Close() error
}

// Ordered wraps a stream and fails it with ErrOutOfOrder as soon as an entry
// does not strictly follow the previous one. Every provider returns its
// stream through Ordered.
func Ordered(s Stream) Stream {
	if o, ok := s.(*ordered); ok {
		return o
	}
	return &ordered{inner: s}
}

type ordered struct {
	inner   Stream
	current ir.ChecksumEntry
	started bool
	err     error
}

func (o *ordered) Next() bool {
	if o.err != nil {
		return false
	}
	if !o.inner.Next() {
		return false
	}
	next := o.inner.Entry()
	if o.started && next.ObjectID <= o.current.ObjectID {
		o.err = fmt.Errorf("%w: object id %d follows %d", ErrOutOfOrder, next.ObjectID, o.current.ObjectID)
		return false
	}
	o.current = next
	o.started = true
	return true
}

func (o *ordered) Entry() ir.ChecksumEntry { return o.current }

func (o *ordered) Err() error {
	if o.err != nil {
		return o.err
	}
	return o.inner.Err()
}

func (o *ordered) Close() error { return o.inner.Close() }

// FromSlice returns a stream over entries. The slice is not copied or sorted;
// pass it through Ordered to enforce the ordering contract.
func FromSlice(entries []ir.ChecksumEntry) Stream {
	return &sliceStream{entries: entries, pos: -1}
}

type sliceStream struct {
	entries []ir.ChecksumEntry
	pos     int
}

func (s *sliceStream) Next() bool {
	if s.pos+1 >= len(s.entries) {
		s.pos = len(s.entries)
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Entry() ir.ChecksumEntry { return s.entries[s.pos] }

func (s *sliceStream) Err() error { return nil }

func (s *sliceStream) Close() error { return nil }
