package clob

import (
	"github.com/orderbook-labs/clob/protocol"
)

// CancelOrder removes one resting order, addressed by order id or by
// (owner, client order id). The locked funds are released when the out
// event is consumed, same as every other book removal.
func (r *MarketRuntime) CancelOrder(req *protocol.CancelOrderRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Owner == "" {
		return ErrInvalidInput
	}

	var order *RestingOrder
	if req.OrderID != "" {
		id, err := ParseOrderID(req.OrderID)
		if err != nil {
			return err
		}
		order = r.book.Find(id)
	} else {
		order = r.book.FindByClientID(req.Owner, req.ClientOrderID)
	}
	if order == nil || order.Owner != req.Owner {
		return ErrNotFound
	}

	if err := planEventCapacity(r.events, req.Owner, 1); err != nil {
		return err
	}
	r.removeAndOut(order.ID, order.Side, OutReasonCanceled)
	return nil
}

// CancelAll removes up to limit of the owner's resting orders across both
// sides, best-priced first. Returns how many were canceled; the walk stops
// early when the event queue cannot absorb another out event.
func (r *MarketRuntime) CancelAll(owner string, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner == "" {
		return 0, ErrInvalidInput
	}
	if limit <= 0 {
		limit = r.book.Len(protocol.SideBid) + r.book.Len(protocol.SideAsk)
	}

	var targets []*RestingOrder
	collect := func(o *RestingOrder) bool {
		if o.Owner == owner {
			targets = append(targets, o)
		}
		return len(targets) < limit
	}
	r.book.sideOf(protocol.SideBid).ascend(collect)
	if len(targets) < limit {
		r.book.sideOf(protocol.SideAsk).ascend(collect)
	}

	canceled := 0
	for _, o := range targets {
		if err := planEventCapacity(r.events, owner, 1); err != nil {
			return canceled, err
		}
		r.removeAndOut(o.ID, o.Side, OutReasonCanceled)
		canceled++
	}
	return canceled, nil
}

// removeAndOut takes an order off the book and queues its out event.
// Capacity must have been verified by the caller.
func (r *MarketRuntime) removeAndOut(id OrderID, side protocol.Side, reason OutReason) {
	removed, ok := r.book.sideOf(side).remove(id)
	if !ok {
		return
	}
	now := r.clock.Now()
	pushEvent(r.market, r.events, r.ledger, removed.Owner, Event{
		Type:             EventTypeOut,
		Timestamp:        now,
		Owner:            removed.Owner,
		OrderID:          removed.ID,
		Side:             removed.Side,
		QtyLots:          removed.BaseLots,
		OutPrice:         removed.PriceLots,
		Reason:           reason,
		OrderRemoved:     true,
		LockedFeeRelease: removed.LockedFeeNative,
	})
	r.publishOut(&removed, reason, now)
}

// ExpireOrders sweeps resting orders past their expiry off the book. Returns
// the number removed. Intended to be driven by a housekeeping ticker.
func (r *MarketRuntime) ExpireOrders(limit int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if limit <= 0 {
		limit = r.book.Len(protocol.SideBid) + r.book.Len(protocol.SideAsk)
	}

	var expired []*RestingOrder
	collect := func(o *RestingOrder) bool {
		if o.IsExpired(now) {
			expired = append(expired, o)
		}
		return len(expired) < limit
	}
	r.book.sideOf(protocol.SideBid).ascend(collect)
	if len(expired) < limit {
		r.book.sideOf(protocol.SideAsk).ascend(collect)
	}

	removed := 0
	for _, o := range expired {
		if err := planEventCapacity(r.events, o.Owner, 1); err != nil {
			break
		}
		r.removeAndOut(o.ID, o.Side, OutReasonExpired)
		removed++
	}
	return removed
}
