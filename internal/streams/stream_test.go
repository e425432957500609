package streams

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	radix "github.com/armon/go-radix"
	anothertrie "github.com/dghubble/trie"
)

var testIDs []ID
var seed int64

func TestMain(m *testing.M) {
	seed = rand.Int63()
	testIDs = genRandIDs(seed, 10000)
	m.Run()
}

func genRandIDs(seed int64, count int) []ID {
	randgen := rand.New(rand.NewSource(seed))
	ids := make([]ID, count)
	for i := range ids {
		ids[i] = ID{randgen.Uint64(), randgen.Uint64()}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func TestInternalReprOrdering(t *testing.T) {
	assert.Equal(t, internalKey([]uint8{21: 0}), ID{0, 0}.internalRepr())
	assert.Equal(t, internalKey([]uint8{21: 63}), ID{0, 63}.internalRepr())
	assert.Equal(t, internalKey([]uint8{20: 1, 21: 0}), ID{0, 64}.internalRepr())
	assert.Equal(t, internalKey([]uint8{20: 2, 21: 0}), ID{0, 128}.internalRepr())
}

func TestParseExplicitOrWildcard(t *testing.T) {
	last := ID{}

	id, err := ParseExplicitOrWildcard("5-5", last, 0)
	assert.NoError(t, err)
	assert.Equal(t, ID{5, 5}, id)
	last = id

	id, err = ParseExplicitOrWildcard("5-*", last, 0)
	assert.NoError(t, err)
	assert.Equal(t, ID{5, 6}, id)

	id, err = ParseExplicitOrWildcard("6-*", last, 0)
	assert.NoError(t, err)
	assert.Equal(t, ID{6, 0}, id)

	id, err = ParseExplicitOrWildcard("*", last, 100)
	assert.NoError(t, err)
	assert.Equal(t, ID{100, 0}, id)

	// now_ms behind last.Ms: auto id must still advance past last
	id, err = ParseExplicitOrWildcard("*", ID{50, 7}, 10)
	assert.NoError(t, err)
	assert.Equal(t, ID{50, 8}, id)
}

func TestAppendRejectsZeroAndNonIncreasing(t *testing.T) {
	s := New()
	_, err := s.Append(ID{0, 0}, nil)
	assert.ErrorIs(t, err, ErrMustBeGreaterThanZero)

	_, err = s.Append(ID{1, 1}, nil)
	assert.NoError(t, err)

	_, err = s.Append(ID{1, 1}, nil)
	assert.ErrorIs(t, err, ErrNotGreaterThanLast)

	_, err = s.Append(ID{1, 0}, nil)
	assert.ErrorIs(t, err, ErrNotGreaterThanLast)
}

func TestAppendAndRangeRoundTrip(t *testing.T) {
	s := New()
	for i := 0; i < 1000; i++ {
		_, err := s.Append(testIDs[i], []FieldValue{{Field: "n", Value: "v"}})
		assert.NoError(t, err)
	}
	got := s.Range(MinID, MaxID)
	assert.Len(t, got, 1000)
	for i, e := range got {
		assert.Equal(t, testIDs[i], e.Key)
	}
}

func TestRangeHigherThan(t *testing.T) {
	s := New()
	ids := []ID{
		{1, 1}, {1, 2}, {1, 999999999}, {22, 22}, {69, 420},
		{9999, 9}, {9999, 10}, {10000, 0}, {10000, 99999999},
		{9999999, 9999999}, {9999999, 99999999},
	}
	for _, id := range ids {
		_, err := s.Append(id, nil)
		assert.NoError(t, err)
	}

	all := s.Range(MinID, MaxID)
	assert.Len(t, all, len(ids))

	for i := range ids {
		got := s.Range(ids[i], MaxID)
		assert.Len(t, got, len(ids)-i)
		assert.Equal(t, ids[i], got[0].Key)
	}

	got := s.Range(ID{1, 3}, MaxID)
	assert.Len(t, got, len(ids)-2)

	got = s.Range(ID{10000000, 0}, MaxID)
	assert.Empty(t, got)
}

func TestRangeComplexStaysWithinBounds(t *testing.T) {
	s := New()
	for i, id := range testIDs {
		_, err := s.Append(id, []FieldValue{{Field: "i", Value: "x"}})
		assert.NoError(t, err)
		_ = i
	}

	randgen := rand.New(rand.NewSource(seed))
	for i := 0; i < 100; i++ {
		from := ID{randgen.Uint64(), randgen.Uint64()}
		to := ID{randgen.Uint64(), randgen.Uint64()}
		if to.Less(from) {
			from, to = to, from
		}
		for _, e := range s.Range(from, to) {
			assert.False(t, e.Key.Less(from))
			assert.False(t, e.Key.Greater(to))
		}
	}
}

func TestAfterExcludesGivenID(t *testing.T) {
	s := New()
	_, _ = s.Append(ID{1, 0}, nil)
	_, _ = s.Append(ID{1, 1}, nil)
	_, _ = s.Append(ID{2, 0}, nil)

	got := s.After(ID{1, 0})
	assert.Len(t, got, 2)
	assert.Equal(t, ID{1, 1}, got[0].Key)

	got = s.After(s.Last())
	assert.Empty(t, got)
}

// The following benchmarks compare this package's radix tree against two
// general-purpose trie/radix implementations pulled in only for this
// comparison, matching the teacher's own benchmark suite.

func BenchmarkStreamAppend(b *testing.B) {
	s := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := testIDs[i%len(testIDs)]
		id.Seq += uint64(i) // keep each insert unique across wraps
		_, _ = s.Append(id, nil)
	}
}

func BenchmarkGoRadixInsert(b *testing.B) {
	rx := radix.New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := testIDs[i%len(testIDs)]
		rx.Insert(key.String(), "v")
	}
}

func BenchmarkRuneTrieInsert(b *testing.B) {
	trie := anothertrie.RuneTrie{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := testIDs[i%len(testIDs)]
		trie.Put(key.String(), "v")
	}
}
