package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiEntersInMulti(t *testing.T) {
	c := New()
	assert.False(t, c.InMulti())

	err := c.Multi()
	assert.NoError(t, err)
	assert.True(t, c.InMulti())
}

func TestNestedMultiIsError(t *testing.T) {
	c := New()
	_ = c.Multi()

	err := c.Multi()
	assert.ErrorIs(t, err, ErrNestedMulti)
	assert.True(t, c.InMulti(), "a rejected nested MULTI must not exit IN_MULTI")
}

func TestQueueCollectsCommandsInOrder(t *testing.T) {
	c := New()
	_ = c.Multi()
	c.Queue("INCR", []string{"a"})
	c.Queue("INCR", []string{"b"})

	queued, err := c.Exec()
	assert.NoError(t, err)
	assert.Equal(t, []Command{
		{Name: "INCR", Args: []string{"a"}},
		{Name: "INCR", Args: []string{"b"}},
	}, queued)
	assert.False(t, c.InMulti())
}

func TestExecWithoutMultiIsError(t *testing.T) {
	c := New()
	_, err := c.Exec()
	assert.ErrorIs(t, err, ErrExecWithoutMulti)
}

func TestExecOnEmptyQueueReturnsNilNotError(t *testing.T) {
	c := New()
	_ = c.Multi()
	queued, err := c.Exec()
	assert.NoError(t, err)
	assert.Empty(t, queued)
}

func TestDiscardClearsQueueAndState(t *testing.T) {
	c := New()
	_ = c.Multi()
	c.Queue("SET", []string{"k", "v"})

	err := c.Discard()
	assert.NoError(t, err)
	assert.False(t, c.InMulti())

	_, err = c.Exec()
	assert.ErrorIs(t, err, ErrExecWithoutMulti, "state must be IDLE, with nothing carried over, after DISCARD")
}

func TestDiscardWithoutMultiIsError(t *testing.T) {
	c := New()
	err := c.Discard()
	assert.ErrorIs(t, err, ErrDiscardWithoutMulti)
}
