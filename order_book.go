package clob

import "github.com/orderbook-labs/clob/protocol"

// Orderbook is the pair of price-time priority sides for one market. It is
// a passive data structure: all mutation happens inside a market runtime
// which owns exclusive access per call.
type Orderbook struct {
	bids *bookSide
	asks *bookSide
}

// NewOrderbook creates an empty book with the given per-side capacity.
func NewOrderbook(capacity int) *Orderbook {
	return &Orderbook{
		bids: newBookSide(protocol.SideBid, capacity),
		asks: newBookSide(protocol.SideAsk, capacity),
	}
}

func (b *Orderbook) sideOf(side protocol.Side) *bookSide {
	if side == protocol.SideBid {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest-priority bid, or nil.
func (b *Orderbook) BestBid() *RestingOrder { return b.bids.peekBest() }

// BestAsk returns the highest-priority ask, or nil.
func (b *Orderbook) BestAsk() *RestingOrder { return b.asks.peekBest() }

// IsCrossed reports whether an order at price on side would take liquidity.
func (b *Orderbook) IsCrossed(side protocol.Side, price int64) bool {
	return b.sideOf(side.Opposite()).isCrossed(price)
}

// Len returns the number of resting orders on side.
func (b *Orderbook) Len(side protocol.Side) int { return b.sideOf(side).len() }

// Find returns the resting order with the given id, searching both sides.
func (b *Orderbook) Find(id OrderID) *RestingOrder {
	if o := b.bids.get(id); o != nil {
		return o
	}
	return b.asks.get(id)
}

// FindByClientID returns the oldest resting order for (owner, clientOrderID).
func (b *Orderbook) FindByClientID(owner string, clientOrderID uint64) *RestingOrder {
	if o := b.bids.findByClientID(owner, clientOrderID); o != nil {
		return o
	}
	return b.asks.findByClientID(owner, clientOrderID)
}

// insertOrEvict posts an order. When the side is full it evicts the worst
// resting order, but only if the incoming price is strictly better; the
// evicted order is returned so the caller can emit an Out event and release
// the maker's locked funds.
func (b *Orderbook) insertOrEvict(order RestingOrder) (posted *RestingOrder, evicted *RestingOrder, err error) {
	side := b.sideOf(order.Side)

	if side.slab.Full() {
		worst := side.peekWorst()

		strictlyBetter := order.PriceLots > worst.PriceLots
		if order.Side == protocol.SideAsk {
			strictlyBetter = order.PriceLots < worst.PriceLots
		}
		if !strictlyBetter {
			return nil, nil, ErrOrderBookFull
		}

		out, _ := side.remove(worst.ID)
		evicted = &out
	}

	posted, err = side.insert(order)
	if err != nil {
		return nil, nil, err
	}
	return posted, evicted, nil
}
