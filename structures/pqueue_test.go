package structures

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPQueuePopsInPriorityOrder(t *testing.T) {
	pq := NewPQueue[string]()
	pq.Push(3.0, "c")
	pq.Push(1.0, "a")
	pq.Push(2.0, "b")

	var got []string
	for !pq.Empty() {
		v, ok := pq.Pop()
		require.True(t, ok)
		got = append(got, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPQueueBreaksTiesFIFO(t *testing.T) {
	pq := NewPQueue[int]()
	pq.Push(1.0, 10)
	pq.Push(1.0, 20)
	pq.Push(1.0, 30)

	first, ok := pq.Pop()
	require.True(t, ok)
	require.Equal(t, 10, first)

	second, _ := pq.Pop()
	require.Equal(t, 20, second)

	third, _ := pq.Pop()
	require.Equal(t, 30, third)
}

func TestPQueuePopEmptyReturnsFalse(t *testing.T) {
	pq := NewPQueue[int]()
	_, ok := pq.Pop()
	require.False(t, ok)
	require.Equal(t, 0, pq.Len())
}

func TestPQueuePushKeyControlsSeq(t *testing.T) {
	pq := NewPQueue[string]()
	pq.Push(5.0, "early")
	pq.PushKey(Key{Primary: 5, Seq: 100}, "late")

	v, _ := pq.Pop()
	require.Equal(t, "early", v, "the auto-assigned Seq of 0 must sort before the explicit Seq of 100")
}
