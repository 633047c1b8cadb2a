package clob

import "github.com/orderbook-labs/clob/protocol"

// EventType tags the two event variants produced by matching.
type EventType uint8

const (
	EventTypeFill EventType = iota
	EventTypeOut
)

// OutReason records why a resting order left the book without a trade.
type OutReason uint8

const (
	OutReasonCanceled OutReason = iota
	OutReasonExpired
	OutReasonEvicted       // removed to make room in a full book
	OutReasonSelfTrade     // canceled by self-trade handling
	OutReasonQueueEviction // its event was force-settled, order itself unaffected
)

// Event is one entry of the event queue. Fill events carry the maker side
// of a trade; Out events carry a resting order removed without a trade.
// Each event is consumed exactly once, applying its balance effect to the
// referenced maker position.
type Event struct {
	Type      EventType `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp int64     `json:"timestamp"`

	// Fill fields.
	Maker              string        `json:"maker,omitempty"`
	Taker              string        `json:"taker,omitempty"`
	TakerSide          protocol.Side `json:"taker_side,omitempty"`
	MakerOrderID       OrderID       `json:"maker_order_id,omitempty"`
	MakerClientOrderID uint64        `json:"maker_client_order_id,omitempty"`
	TakerClientOrderID uint64        `json:"taker_client_order_id,omitempty"`
	PriceLots          int64         `json:"price_lots,omitempty"`
	BaseLots           int64         `json:"base_lots,omitempty"`
	// MakerFeeNative is the maker's fee on this fill in native quote units;
	// negative values are rebates.
	MakerFeeNative int64 `json:"maker_fee_native,omitempty"`
	// MakerOut marks the fill that fully consumed the maker order.
	MakerOut bool `json:"maker_out,omitempty"`

	// Out fields.
	Owner    string        `json:"owner,omitempty"`
	OrderID  OrderID       `json:"order_id,omitempty"`
	Side     protocol.Side `json:"side,omitempty"`
	QtyLots  int64         `json:"qty_lots,omitempty"`
	Reason   OutReason     `json:"reason,omitempty"`
	OutPrice int64         `json:"out_price,omitempty"`
	// OrderRemoved is false for partial decrements, where only part of the
	// order's locked funds are released.
	OrderRemoved bool `json:"order_removed,omitempty"`

	// LockedFeeRelease is the portion of the maker's locked fee unlocked by
	// this event. Tracked per event so that per-fill fee rounding can never
	// release more than was locked at post time.
	LockedFeeRelease uint64 `json:"locked_fee_release,omitempty"`
}

// ownerOf returns the trader whose balances the event settles.
func (e *Event) ownerOf() string {
	if e.Type == EventTypeFill {
		return e.Maker
	}
	return e.Owner
}

// EventQueue is a fixed-capacity FIFO ring decoupling matching from maker
// settlement. It never grows: the capacity trade-off of the original bounded
// storage environment is kept as an explicit, testable eviction contract.
type EventQueue struct {
	buf   []Event
	head  int
	count int
	seq   uint64
}

// NewEventQueue creates a queue holding at most capacity unconsumed events.
func NewEventQueue(capacity int) *EventQueue {
	if capacity <= 0 {
		panic("event queue: capacity must be positive")
	}
	return &EventQueue{buf: make([]Event, capacity)}
}

func (q *EventQueue) Len() int  { return q.count }
func (q *EventQueue) Cap() int  { return len(q.buf) }
func (q *EventQueue) Full() bool { return q.count == len(q.buf) }

// Push appends an event, assigning its sequence number. Returns
// ErrEventQueueFull when no slot is free; the caller is expected to evict
// first (see evictFor).
func (q *EventQueue) Push(ev Event) error {
	if q.Full() {
		return ErrEventQueueFull
	}
	q.seq++
	ev.Seq = q.seq
	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
	return nil
}

// PopFront removes and returns the oldest event.
func (q *EventQueue) PopFront() (Event, bool) {
	if q.count == 0 {
		return Event{}, false
	}
	ev := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return ev, true
}

// Front returns the oldest event without removing it.
func (q *EventQueue) Front() *Event {
	if q.count == 0 {
		return nil
	}
	return &q.buf[q.head]
}

// At returns the i-th oldest event. Used by read-only planning passes.
func (q *EventQueue) At(i int) *Event {
	return &q.buf[(q.head+i)%len(q.buf)]
}

// evictFor removes the oldest event not owned by taker, so that the incoming
// trade's own events are never the ones sacrificed. Returns false when every
// queued event belongs to the taker.
func (q *EventQueue) evictFor(taker string) (Event, bool) {
	for i := 0; i < q.count; i++ {
		idx := (q.head + i) % len(q.buf)
		if q.buf[idx].ownerOf() == taker {
			continue
		}

		ev := q.buf[idx]
		// Shift the gap toward the head so FIFO order is preserved.
		for j := i; j > 0; j-- {
			dst := (q.head + j) % len(q.buf)
			src := (q.head + j - 1) % len(q.buf)
			q.buf[dst] = q.buf[src]
		}
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		return ev, true
	}
	return Event{}, false
}

// toSnapshot serializes the queue oldest-first.
func (q *EventQueue) toSnapshot() []Event {
	out := make([]Event, 0, q.count)
	for i := 0; i < q.count; i++ {
		out = append(out, *q.At(i))
	}
	return out
}

func (q *EventQueue) restore(events []Event, seq uint64) error {
	if len(events) > len(q.buf) {
		return ErrEventQueueFull
	}
	q.head = 0
	q.count = 0
	for _, ev := range events {
		q.buf[q.count] = ev
		q.count++
	}
	q.seq = seq
	return nil
}
