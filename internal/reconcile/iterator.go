package reconcile

import (
	"fmt"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/ir"
)

// cursor is the current head of one input stream.
type cursor struct {
	stream checksum.Stream
	entry  ir.ChecksumEntry
	ok     bool
}

func (c *cursor) advance() {
	c.ok = c.stream.Next()
	if c.ok {
		c.entry = c.stream.Entry()
	}
}

// Iterator yields the change events that turn the replica stream into the
// truth stream.
type Iterator struct {
	objectType ir.ObjectType
	truth      cursor
	replica    cursor
	started    bool
	current    ir.ChangeEvent
	err        error
}

// NewIterator merges truth and replica. Both streams are wrapped with
// checksum.Ordered so a duplicate or descending id fails the pass instead of
// producing a bogus delta.
func NewIterator(objectType ir.ObjectType, truth, replica checksum.Stream) *Iterator {
	return &Iterator{
		objectType: objectType,
		truth:      cursor{stream: checksum.Ordered(truth)},
		replica:    cursor{stream: checksum.Ordered(replica)},
	}
}

// Next advances to the next change event. It returns false when both
// streams are exhausted or either failed; check Err afterwards.
//
// Matching ids produce no event, so one call keeps comparing stream heads
// until it finds a difference. A long run of matches is consumed inside a
// single call; only the two heads are held.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.truth.advance()
		it.replica.advance()
		it.started = true
	}

	for {
		if err := it.streamErr(); err != nil {
			it.err = err
			return false
		}

		t, r := &it.truth, &it.replica
		switch {
		case !t.ok && !r.ok:
			return false

		case !t.ok:
			it.emit(r.entry.ObjectID, ir.ChangeDelete)
			r.advance()
			return true

		case !r.ok:
			it.emit(t.entry.ObjectID, ir.ChangeCreateOrUpdate)
			t.advance()
			return true

		case t.entry.ObjectID < r.entry.ObjectID:
			// truth has a row the replica lacks
			it.emit(t.entry.ObjectID, ir.ChangeCreateOrUpdate)
			t.advance()
			return true

		case t.entry.ObjectID > r.entry.ObjectID:
			// replica has a row truth lacks
			it.emit(r.entry.ObjectID, ir.ChangeDelete)
			r.advance()
			return true

		default:
			mismatch := t.entry.Checksum != r.entry.Checksum
			id := t.entry.ObjectID
			t.advance()
			r.advance()
			if mismatch {
				it.emit(id, ir.ChangeCreateOrUpdate)
				return true
			}
		}
	}
}

// Event returns the current change event. Only valid after Next returned true.
func (it *Iterator) Event() ir.ChangeEvent {
	return it.current
}

// Err returns the first error raised by either stream.
func (it *Iterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.streamErr()
}

// Close closes both input streams.
func (it *Iterator) Close() error {
	terr := it.truth.stream.Close()
	rerr := it.replica.stream.Close()
	if terr != nil {
		return fmt.Errorf("close truth stream: %w", terr)
	}
	if rerr != nil {
		return fmt.Errorf("close replica stream: %w", rerr)
	}
	return nil
}

func (it *Iterator) emit(id int64, change ir.ChangeType) {
	it.current = ir.ChangeEvent{
		ObjectID:   id,
		ObjectType: it.objectType,
		ChangeType: change,
	}
}

func (it *Iterator) streamErr() error {
	if err := it.truth.stream.Err(); err != nil {
		return fmt.Errorf("truth stream: %w", err)
	}
	if err := it.replica.stream.Err(); err != nil {
		return fmt.Errorf("replica stream: %w", err)
	}
	return nil
}

// Collect drains the iterator. Use it only where the number of events is
// bounded by the caller, such as one per container of a drift batch;
// passes over object scopes page through Pages instead.
func Collect(it *Iterator) ([]ir.ChangeEvent, error) {
	var events []ir.ChangeEvent
	for it.Next() {
		events = append(events, it.Event())
	}
	return events, it.Err()
}

// Pages pulls up to pageSize events at a time and hands each page to fn.
// fn is never called with an empty page. The returned count is the total
// number of events handed out.
func Pages(it *Iterator, pageSize int, fn func(page []ir.ChangeEvent) error) (int, error) {
	if pageSize <= 0 {
		return 0, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	page := make([]ir.ChangeEvent, 0, pageSize)
	total := 0
	for it.Next() {
		page = append(page, it.Event())
		if len(page) == pageSize {
			if err := fn(page); err != nil {
				return total, err
			}
			total += len(page)
			page = make([]ir.ChangeEvent, 0, pageSize)
		}
	}
	if err := it.Err(); err != nil {
		return total, err
	}
	if len(page) > 0 {
		if err := fn(page); err != nil {
			return total, err
		}
		total += len(page)
	}
	return total, nil
}
