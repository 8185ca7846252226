package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeen(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	assert.False(t, c.Seen(1))
	assert.True(t, c.Seen(1))
	assert.False(t, c.Seen(2))
	assert.True(t, c.Seen(1))
	assert.Equal(t, 2, c.Len())
}

func TestEvictionForgetsOldest(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.Seen(1)
	c.Seen(2)
	c.Seen(3) // evicts 1

	assert.False(t, c.Seen(1), "evicted id is treated as new again")
}

func TestInvalidCapacity(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}
