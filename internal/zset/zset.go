// Package zset implements the sorted-set engine: a member→score mapping
// ordered ascending by score, with ties broken lexicographically by member.
//
// Per spec (§4.4 of the distilled spec this module implements), ZADD in
// this core only ever inserts a single score/member pair and ZREM only ever
// removes a single member — there is no multi-pair variadic form. Mutation
// is assumed to be serialized by the caller (the keyspace's single global
// mutex, per the concurrency model); Set itself holds no lock.
package zset

import "sort"

// Set is a sorted set's value payload.
type Set struct {
	scores map[string]float64
}

// New returns an empty sorted set.
func New() *Set {
	return &Set{scores: make(map[string]float64)}
}

// Add inserts member with score, or updates its score if already present.
// Returns true iff member was newly added (ZADD's reply distinguishes the
// two cases: 1 for new, 0 for updated).
func (s *Set) Add(member string, score float64) bool {
	_, existed := s.scores[member]
	s.scores[member] = score
	return !existed
}

// Score returns member's score and whether it is present.
func (s *Set) Score(member string) (float64, bool) {
	score, ok := s.scores[member]
	return score, ok
}

// Remove deletes member, returning true iff it was present. Callers are
// responsible for removing the set's key from the keyspace when Card
// reaches zero afterward, per the "empty sorted set has no key" invariant.
func (s *Set) Remove(member string) bool {
	if _, ok := s.scores[member]; !ok {
		return false
	}
	delete(s.scores, member)
	return true
}

// Card returns the set's cardinality.
func (s *Set) Card() int {
	return len(s.scores)
}

// ordered returns members sorted ascending by (score, member).
func (s *Set) ordered() []string {
	members := make([]string, 0, len(s.scores))
	for m := range s.scores {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := s.scores[members[i]], s.scores[members[j]]
		if si != sj {
			return si < sj
		}
		return members[i] < members[j]
	})
	return members
}

// Rank returns member's 0-based ascending rank and whether it is present.
func (s *Set) Rank(member string) (int, bool) {
	if _, ok := s.scores[member]; !ok {
		return 0, false
	}
	for i, m := range s.ordered() {
		if m == member {
			return i, true
		}
	}
	return 0, false // unreachable: member is known present above
}

// Range returns the members in [start, end] of the ascending ordering,
// using the same index-normalization rules as LRANGE: negative indices
// count from the end, start clamps to 0, an out-of-bounds or inverted range
// yields an empty (not erroring) result.
func (s *Set) Range(start, end int) []string {
	members := s.ordered()
	lo, hi, ok := normalizeRange(start, end, len(members))
	if !ok {
		return []string{}
	}
	return append([]string(nil), members[lo:hi+1]...)
}

// normalizeRange applies Redis-style LRANGE/ZRANGE index normalization to a
// sequence of length n. Returns the inclusive [lo, hi] bounds, or ok=false
// if the resulting range is empty.
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
