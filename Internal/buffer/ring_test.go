package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingBuffer_InvalidCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
	}{
		{name: "zero capacity", capacity: 0},
		{name: "negative capacity", capacity: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRingBuffer[int](tt.capacity)
			assert.Error(t, err)
		})
	}
}

func TestRingBuffer_KeepsLastCapacityItems(t *testing.T) {
	rb, err := NewRingBuffer[int](3)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		rb.Add(i)
	}

	require.Equal(t, 3, rb.Len())
	assert.Equal(t, []int{5, 6, 7}, rb.Items())

	oldest, err := rb.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 5, oldest)

	newest, err := rb.Get(rb.Len() - 1)
	require.NoError(t, err)
	assert.Equal(t, 7, newest)
}

func TestRingBuffer_GetOutOfRange(t *testing.T) {
	rb, err := NewRingBuffer[string](2)
	require.NoError(t, err)
	rb.Add("a")

	_, err = rb.Get(-1)
	assert.Error(t, err)
	_, err = rb.Get(1)
	assert.Error(t, err)
}

func TestRingBuffer_LastAndFull(t *testing.T) {
	rb, err := NewRingBuffer[float64](2)
	require.NoError(t, err)

	_, ok := rb.Last()
	assert.False(t, ok)
	assert.False(t, rb.Full())

	rb.Add(1.5)
	rb.Add(2.5)
	assert.True(t, rb.Full())

	last, ok := rb.Last()
	require.True(t, ok)
	assert.Equal(t, 2.5, last)
}

func TestRingBuffer_Clear(t *testing.T) {
	rb, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	rb.Add(1)
	rb.Add(2)

	rb.Clear()

	assert.Equal(t, 0, rb.Len())
	assert.Equal(t, 4, rb.Cap())
	rb.Add(9)
	got, err := rb.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}
