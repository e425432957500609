package streams

import "errors"

// ErrMustBeGreaterThanZero is returned when a candidate ID is the reserved
// minimum 0-0.
var ErrMustBeGreaterThanZero = errors.New("The ID specified in XADD must be greater than 0-0")

// ErrNotGreaterThanLast is returned when a candidate ID is not strictly
// greater than the stream's current maximum.
var ErrNotGreaterThanLast = errors.New("The ID specified in XADD is equal or smaller than the target stream top item")

// Stream is an append-only ordered log of entries keyed by strictly
// increasing IDs, backed by the radix tree in radix.go.
type Stream struct {
	root RxNode
	last ID
	n    int
}

// New returns an empty stream.
func New() *Stream { return &Stream{} }

// Last returns the stream's current maximum ID (MinID if empty).
func (s *Stream) Last() ID { return s.last }

// Len returns the number of entries in the stream.
func (s *Stream) Len() int { return s.n }

// Append validates candidate against the strictly-increasing-ID invariant
// and, if valid, inserts it. Returns the accepted ID (identical to
// candidate) or a validation error.
func (s *Stream) Append(candidate ID, fields []FieldValue) (ID, error) {
	if candidate == MinID {
		return ID{}, ErrMustBeGreaterThanZero
	}
	if !candidate.Greater(s.last) {
		return ID{}, ErrNotGreaterThanLast
	}

	node := s.root.create(candidate.internalRepr())
	node.entry = &Entry{Key: candidate, Val: fields}
	s.last = candidate
	s.n++
	return candidate, nil
}

// Range returns entries with from <= id <= to, ascending by id.
func (s *Stream) Range(from, to ID) []Entry {
	if from.Greater(to) {
		return nil
	}
	return s.root.rangeEntries(from.internalRepr(), to.internalRepr())
}

// After returns entries with id strictly greater than after, ascending.
// Used by XREAD, including the "$" form which resolves to the stream's Last
// id at call time so only entries appended afterward qualify.
func (s *Stream) After(after ID) []Entry {
	next, overflow := after.Next()
	if overflow {
		return nil
	}
	return s.Range(next, MaxID)
}
