package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueWrapsAround(t *testing.T) {
	q := NewRingQueue[string](2)
	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue("c"), ErrQueueFull)

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	require.NoError(t, q.Enqueue("c"))

	assert.True(t, q.Contains(func(s string) bool { return s == "c" }))
	assert.False(t, q.Contains(func(s string) bool { return s == "a" }))

	head, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "b", head)
	assert.Equal(t, 2, q.Len())

	for _, want := range []string{"b", "c"} {
		v, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	assert.True(t, q.IsEmpty())
	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
