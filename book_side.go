package clob

import (
	"github.com/huandu/skiplist"

	"github.com/orderbook-labs/clob/protocol"
	"github.com/orderbook-labs/clob/structure"
)

// orderKey is the (price, sequence) sort key of a resting order. No two
// orders on one side ever share a key because sequence numbers are unique.
type orderKey struct {
	priceLots int64
	seq       uint64
}

func compareKeys(side protocol.Side, a, b orderKey) int {
	if a.priceLots != b.priceLots {
		better := a.priceLots > b.priceLots // bids: higher price first
		if side == protocol.SideAsk {
			better = a.priceLots < b.priceLots // asks: lower price first
		}
		if better {
			return -1
		}
		return 1
	}
	// Equal price: earlier arrival first.
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}

// bookSide is one price-ordered half of the order book. Orders live in a
// fixed-capacity slab arena; the skiplist orders slab indexes by (price, seq)
// so that insert, remove and peek-best are O(log n) and the side itself stays
// serializable (indexes, not pointers).
type bookSide struct {
	side  protocol.Side
	tree  *skiplist.SkipList
	index map[OrderID]int32
	slab  *structure.Slab[RestingOrder]
}

func newBookSide(side protocol.Side, capacity int) *bookSide {
	return &bookSide{
		side: side,
		tree: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			a, _ := lhs.(orderKey)
			b, _ := rhs.(orderKey)
			return compareKeys(side, a, b)
		})),
		index: make(map[OrderID]int32, capacity),
		slab:  structure.NewSlab[RestingOrder](capacity),
	}
}

// insert places an order on this side. Returns ErrOrderBookFull when the
// slab has no free slot; eviction decisions belong to the caller.
func (s *bookSide) insert(order RestingOrder) (*RestingOrder, error) {
	idx, node, err := s.slab.Alloc()
	if err != nil {
		return nil, ErrOrderBookFull
	}

	*node = order
	s.tree.Set(orderKey{priceLots: order.PriceLots, seq: order.ID.Seq}, idx)
	s.index[order.ID] = idx
	return node, nil
}

// peekBest returns the highest-priority resting order without removing it.
func (s *bookSide) peekBest() *RestingOrder {
	el := s.tree.Front()
	if el == nil {
		return nil
	}
	return s.slab.Get(el.Value.(int32))
}

// peekWorst returns the lowest-priority resting order.
func (s *bookSide) peekWorst() *RestingOrder {
	el := s.tree.Back()
	if el == nil {
		return nil
	}
	return s.slab.Get(el.Value.(int32))
}

// remove deletes the order with the given id and returns a copy of it.
func (s *bookSide) remove(id OrderID) (RestingOrder, bool) {
	idx, ok := s.index[id]
	if !ok {
		return RestingOrder{}, false
	}

	order := *s.slab.Get(idx)
	s.tree.Remove(orderKey{priceLots: order.PriceLots, seq: id.Seq})
	delete(s.index, id)
	s.slab.Free(idx)
	return order, true
}

// get returns the live order with the given id, or nil.
func (s *bookSide) get(id OrderID) *RestingOrder {
	idx, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.slab.Get(idx)
}

// findByClientID returns the oldest resting order with the given owner and
// client order id.
func (s *bookSide) findByClientID(owner string, clientOrderID uint64) *RestingOrder {
	var found *RestingOrder
	s.ascend(func(o *RestingOrder) bool {
		if o.Owner == owner && o.ClientOrderID == clientOrderID {
			found = o
			return false
		}
		return true
	})
	return found
}

// ascend iterates resting orders in priority order (best first) until fn
// returns false. fn must not mutate the side.
func (s *bookSide) ascend(fn func(o *RestingOrder) bool) {
	for el := s.tree.Front(); el != nil; el = el.Next() {
		if !fn(s.slab.Get(el.Value.(int32))) {
			return
		}
	}
}

// isCrossed reports whether an incoming order at price would trade against
// this side's best level.
func (s *bookSide) isCrossed(price int64) bool {
	best := s.peekBest()
	if best == nil {
		return false
	}
	if s.side == protocol.SideAsk {
		return price >= best.PriceLots
	}
	return price <= best.PriceLots
}

func (s *bookSide) len() int   { return s.slab.Len() }
func (s *bookSide) cap() int   { return s.slab.Cap() }
func (s *bookSide) full() bool { return s.slab.Full() }

// toSnapshot serializes the side in priority order.
func (s *bookSide) toSnapshot() []RestingOrder {
	out := make([]RestingOrder, 0, s.len())
	s.ascend(func(o *RestingOrder) bool {
		out = append(out, *o)
		return true
	})
	return out
}

func (s *bookSide) restore(orders []RestingOrder) error {
	for _, o := range orders {
		if _, err := s.insert(o); err != nil {
			return err
		}
	}
	return nil
}
