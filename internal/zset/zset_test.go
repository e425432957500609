package zset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddNewVsUpdate(t *testing.T) {
	s := New()
	assert.True(t, s.Add("a", 1))
	assert.False(t, s.Add("a", 2))
	score, ok := s.Score("a")
	assert.True(t, ok)
	assert.Equal(t, 2.0, score)
}

func TestOrderingByScoreThenMember(t *testing.T) {
	s := New()
	s.Add("b", 1)
	s.Add("a", 1)
	s.Add("c", 0)
	assert.Equal(t, []string{"c", "a", "b"}, s.Range(0, -1))
}

func TestRank(t *testing.T) {
	s := New()
	s.Add("a", 1)
	s.Add("b", 2)
	rank, ok := s.Rank("b")
	assert.True(t, ok)
	assert.Equal(t, 1, rank)

	_, ok = s.Rank("missing")
	assert.False(t, ok)
}

func TestRemoveEmptiesCard(t *testing.T) {
	s := New()
	s.Add("a", 1)
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 0, s.Card())
}

func TestRangeNormalization(t *testing.T) {
	s := New()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		s.Add(m, float64(i))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, s.Range(0, -1))
	assert.Equal(t, []string{"d", "e"}, s.Range(-2, -1))
	assert.Equal(t, []string{}, s.Range(10, 20))
	assert.Equal(t, []string{}, s.Range(3, 1))
}
