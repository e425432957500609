// Package store implements the Keyspace Store: a process-wide mapping from
// key to a tagged Value (string | list | sorted set | stream), with
// optional per-key absolute expiration and lazy eviction on read.
//
// Every operation acquires Store's single mutex for its duration — coarse
// grained but simple and correct, per the concurrency model's design note
// that a global lock is acceptable given the one-goroutine-per-connection
// scheduling model. Callers that need to react to a mutation (the blocking
// registry waking a waiter on RPUSH/XADD) must do so only after releasing
// this lock, never while holding it.
package store

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rkeydb/respd/internal/streams"
	"github.com/rkeydb/respd/internal/zset"
)

// Kind tags which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSortedSet
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSortedSet:
		return "zset"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

// ErrWrongType is returned whenever an operation addresses a key holding a
// different Kind than the operation expects.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ErrNotInteger is INCR's error for a non-numeric or out-of-range value.
var ErrNotInteger = errors.New("value is not an integer or out of range")

// entry is the keyspace's internal per-key record.
type entry struct {
	kind     Kind
	str      string
	list     []string
	zset     *zset.Set
	stream   *streams.Stream
	expiryMs int64 // absolute epoch ms; 0 means no expiry
	hasExp   bool
}

// Store is the process-wide keyspace.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() int64 // injectable clock, defaults to wall-clock ms
}

// New returns an empty keyspace.
func New() *Store {
	return &Store{
		data: make(map[string]*entry),
		now:  func() int64 { return time.Now().UnixMilli() },
	}
}

// nowMs returns the clock's current reading. Must be called with mu held.
func (s *Store) nowMs() int64 { return s.now() }

// expireLocked removes key if it is past its expiry. Must be called with mu
// held. Returns true if the key was (or already was) absent.
func (s *Store) expireLocked(key string) bool {
	e, ok := s.data[key]
	if !ok {
		return true
	}
	if e.hasExp && s.nowMs() >= e.expiryMs {
		delete(s.data, key)
		return true
	}
	return false
}

// lookupLocked returns the live entry for key, applying lazy expiration
// first. Must be called with mu held.
func (s *Store) lookupLocked(key string) (*entry, bool) {
	if s.expireLocked(key) {
		return nil, false
	}
	e := s.data[key]
	return e, e != nil
}

// Type reports the kind of key, or "none" if absent/expired.
func (s *Store) Type(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(key)
	if !ok {
		return "none"
	}
	return e.kind.String()
}

// Exists reports whether key is present (and unexpired).
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookupLocked(key)
	return ok
}

// Del removes key regardless of kind. Returns true iff it was present.
func (s *Store) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookupLocked(key); !ok {
		return false
	}
	delete(s.data, key)
	return true
}

// Keys returns every live key matching pattern. Only an exact match or the
// single wildcard "*" (matching everything) are supported, per the core's
// scope.
func (s *Store) Keys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for key := range s.data {
		if s.expireLocked(key) {
			continue
		}
		if pattern == "*" || pattern == key {
			out = append(out, key)
		}
	}
	return out
}

// --- strings ---------------------------------------------------------------

// SetString stores value under key as a string, with an optional absolute
// expiry in epoch milliseconds (expiryMs == 0 means no expiry). Overwrites
// any previous value regardless of its kind.
func (s *Store) SetString(key, value string, expiryMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &entry{
		kind:     KindString,
		str:      value,
		hasExp:   expiryMs != 0,
		expiryMs: expiryMs,
	}
}

// GetString returns key's string value. ok is false if the key is absent or
// expired; err is ErrWrongType if key holds a non-string value.
func (s *Store) GetString(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return "", false, nil
	}
	if e.kind != KindString {
		return "", false, ErrWrongType
	}
	return e.str, true, nil
}

// Incr increments key's integer value (creating it as "1" if absent),
// returning the new value.
func (s *Store) Incr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, present := s.lookupLocked(key)
	if !present {
		s.data[key] = &entry{kind: KindString, str: "1"}
		return 1, nil
	}
	if e.kind != KindString {
		return 0, ErrWrongType
	}
	n, err := strconv.ParseInt(e.str, 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	n++
	e.str = strconv.FormatInt(n, 10)
	return n, nil
}

// --- lists -------------------------------------------------------------------

// listEntryLocked returns key's list entry, creating an empty one if absent.
// Must be called with mu held. Returns ErrWrongType if key holds another
// kind.
func (s *Store) listEntryLocked(key string) (*entry, error) {
	e, present := s.lookupLocked(key)
	if !present {
		e = &entry{kind: KindList}
		s.data[key] = e
		return e, nil
	}
	if e.kind != KindList {
		return nil, ErrWrongType
	}
	return e, nil
}

// PushTail appends values to the tail of key's list (creating it if
// necessary), returning the length immediately after insertion.
func (s *Store) PushTail(key string, values ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.listEntryLocked(key)
	if err != nil {
		return 0, err
	}
	e.list = append(e.list, values...)
	return len(e.list), nil
}

// PushHead prepends values to the head of key's list, one at a time in
// argument order (so `LPUSH k a b` leaves the list as [b, a, ...]), returning
// the length immediately after insertion.
func (s *Store) PushHead(key string, values ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.listEntryLocked(key)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		e.list = append([]string{v}, e.list...)
	}
	return len(e.list), nil
}

// PopHead removes and returns up to count elements from the head of key's
// list. If the key is absent, returns (nil, false, nil) — "missing", not an
// error. If the list becomes empty, the key is removed, per the
// list-key-exists-iff-nonempty invariant.
func (s *Store) PopHead(key string, count int) (values []string, existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, present := s.lookupLocked(key)
	if !present {
		return nil, false, nil
	}
	if e.kind != KindList {
		return nil, false, ErrWrongType
	}

	if count > len(e.list) {
		count = len(e.list)
	}
	values = append([]string(nil), e.list[:count]...)
	e.list = e.list[count:]
	if len(e.list) == 0 {
		delete(s.data, key)
	}
	return values, true, nil
}

// Length returns key's list length, or 0 if absent.
func (s *Store) Length(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return 0, nil
	}
	if e.kind != KindList {
		return 0, ErrWrongType
	}
	return len(e.list), nil
}

// Range returns key's elements in [start, end] using LRANGE's index
// normalization (negative indices count from the end; an out-of-bounds or
// inverted range yields an empty, not erroring, result).
func (s *Store) Range(key string, start, end int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return []string{}, nil
	}
	if e.kind != KindList {
		return nil, ErrWrongType
	}

	lo, hi, ok := normalizeRange(start, end, len(e.list))
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), e.list[lo:hi+1]...), nil
}

func normalizeRange(start, end, n int) (lo, hi int, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || start >= n {
		return 0, 0, false
	}
	return start, end, true
}

// --- sorted sets -------------------------------------------------------------

func (s *Store) zsetEntryLocked(key string) (*entry, error) {
	e, present := s.lookupLocked(key)
	if !present {
		e = &entry{kind: KindSortedSet, zset: zset.New()}
		s.data[key] = e
		return e, nil
	}
	if e.kind != KindSortedSet {
		return nil, ErrWrongType
	}
	return e, nil
}

// ZAdd inserts or updates member's score in key's sorted set, returning true
// iff member was newly added.
func (s *Store) ZAdd(key, member string, score float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetEntryLocked(key)
	if err != nil {
		return false, err
	}
	return e.zset.Add(member, score), nil
}

// ZScore returns member's score in key's sorted set.
func (s *Store) ZScore(key, member string) (score float64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return 0, false, nil
	}
	if e.kind != KindSortedSet {
		return 0, false, ErrWrongType
	}
	score, ok = e.zset.Score(member)
	return score, ok, nil
}

// ZRank returns member's 0-based ascending rank in key's sorted set.
func (s *Store) ZRank(key, member string) (rank int, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return 0, false, nil
	}
	if e.kind != KindSortedSet {
		return 0, false, ErrWrongType
	}
	rank, ok = e.zset.Rank(member)
	return rank, ok, nil
}

// ZRange returns members in [start, end] of key's ascending ordering, using
// the same index normalization as Range.
func (s *Store) ZRange(key string, start, end int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return []string{}, nil
	}
	if e.kind != KindSortedSet {
		return nil, ErrWrongType
	}
	return e.zset.Range(start, end), nil
}

// ZRem removes member from key's sorted set, returning true iff it was
// present. Removes key entirely if the set becomes empty.
func (s *Store) ZRem(key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return false, nil
	}
	if e.kind != KindSortedSet {
		return false, ErrWrongType
	}
	removed := e.zset.Remove(member)
	if e.zset.Card() == 0 {
		delete(s.data, key)
	}
	return removed, nil
}

// ZCard returns key's cardinality, or 0 if absent.
func (s *Store) ZCard(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, present := s.lookupLocked(key)
	if !present {
		return 0, nil
	}
	if e.kind != KindSortedSet {
		return 0, ErrWrongType
	}
	return e.zset.Card(), nil
}

// --- streams -------------------------------------------------------------

// WithStream runs fn over key's stream, creating an empty one if key is
// absent, with Store.mu held for fn's duration. Used by XADD's
// id-validation/append step; XRANGE and XREAD read through PeekStream.
func (s *Store) WithStream(key string, fn func(st *streams.Stream) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, present := s.lookupLocked(key)
	if !present {
		e = &entry{kind: KindStream, stream: streams.New()}
		s.data[key] = e
	} else if e.kind != KindStream {
		return ErrWrongType
	}
	return fn(e.stream)
}

// PeekStream runs a read-only fn over key's stream without creating it if
// absent. found is false if the key does not exist.
func (s *Store) PeekStream(key string, fn func(st *streams.Stream)) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, present := s.lookupLocked(key)
	if !present {
		return false, nil
	}
	if e.kind != KindStream {
		return false, ErrWrongType
	}
	fn(e.stream)
	return true, nil
}

// NowMs exposes the store's clock for callers (XADD's "*" auto-ID, SET's
// EX/PX-to-absolute-expiry conversion) that must stay consistent with the
// lazy-expiration clock used internally.
func (s *Store) NowMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowMs()
}
