package clob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillEvent(maker string) Event {
	return Event{Type: EventTypeFill, Maker: maker}
}

func TestEventQueueFIFO(t *testing.T) {
	q := NewEventQueue(4)

	require.NoError(t, q.Push(fillEvent("a")))
	require.NoError(t, q.Push(fillEvent("b")))
	require.NoError(t, q.Push(fillEvent("c")))
	assert.Equal(t, 3, q.Len())

	ev, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "a", ev.Maker)
	assert.Equal(t, uint64(1), ev.Seq)

	ev, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "b", ev.Maker)

	// Wrap around the ring.
	require.NoError(t, q.Push(fillEvent("d")))
	require.NoError(t, q.Push(fillEvent("e")))
	require.NoError(t, q.Push(fillEvent("f")))
	assert.True(t, q.Full())
	assert.ErrorIs(t, q.Push(fillEvent("g")), ErrEventQueueFull)

	want := []string{"c", "d", "e", "f"}
	for _, owner := range want {
		ev, ok = q.PopFront()
		require.True(t, ok)
		assert.Equal(t, owner, ev.Maker)
	}
	_, ok = q.PopFront()
	assert.False(t, ok)
}

func TestEventQueueSequenceMonotonic(t *testing.T) {
	q := NewEventQueue(2)

	require.NoError(t, q.Push(fillEvent("a")))
	q.PopFront()
	require.NoError(t, q.Push(fillEvent("b")))

	ev, _ := q.PopFront()
	assert.Equal(t, uint64(2), ev.Seq, "sequence survives pops")
}

func TestEvictForSkipsTakerEvents(t *testing.T) {
	q := NewEventQueue(3)
	require.NoError(t, q.Push(fillEvent("taker")))
	require.NoError(t, q.Push(fillEvent("other")))
	require.NoError(t, q.Push(fillEvent("taker")))

	ev, ok := q.evictFor("taker")
	require.True(t, ok)
	assert.Equal(t, "other", ev.Maker)
	assert.Equal(t, 2, q.Len())

	// FIFO order of the survivors is preserved.
	first, _ := q.PopFront()
	second, _ := q.PopFront()
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(3), second.Seq)
}

func TestEvictForAllOwnedByTaker(t *testing.T) {
	q := NewEventQueue(2)
	require.NoError(t, q.Push(fillEvent("taker")))
	require.NoError(t, q.Push(Event{Type: EventTypeOut, Owner: "taker"}))

	_, ok := q.evictFor("taker")
	assert.False(t, ok)
	assert.Equal(t, 2, q.Len())
}

func TestEventOwnerOf(t *testing.T) {
	fill := Event{Type: EventTypeFill, Maker: "m", Taker: "t"}
	assert.Equal(t, "m", fill.ownerOf(), "fills settle the maker")

	out := Event{Type: EventTypeOut, Owner: "o"}
	assert.Equal(t, "o", out.ownerOf())
}

func TestEventQueueSnapshotRestore(t *testing.T) {
	q := NewEventQueue(4)
	require.NoError(t, q.Push(fillEvent("a")))
	require.NoError(t, q.Push(fillEvent("b")))
	q.PopFront()
	require.NoError(t, q.Push(fillEvent("c")))

	snap := q.toSnapshot()
	require.Len(t, snap, 2)

	q2 := NewEventQueue(4)
	require.NoError(t, q2.restore(snap, q.seq))
	assert.Equal(t, 2, q2.Len())

	ev, _ := q2.PopFront()
	assert.Equal(t, "b", ev.Maker)
	q2.PopFront()

	require.NoError(t, q2.Push(fillEvent("d")))
	ev, _ = q2.PopFront()
	assert.Equal(t, uint64(4), ev.Seq, "sequence continues after restore")
}
