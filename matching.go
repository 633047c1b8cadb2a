package clob

import (
	"math"

	"github.com/orderbook-labs/clob/protocol"
)

// incomingOrder is a PlaceOrderRequest after validation and price
// resolution: oracle pegs resolved, post-only slides applied, fee budget
// converted to spendable quote lots.
type incomingOrder struct {
	owner         string
	side          protocol.Side
	orderType     protocol.OrderType
	priceLots     int64
	maxBaseLots   int64
	maxQuoteLots  int64 // spendable quote budget, taker fees already carved out for bids
	clientOrderID uint64
	selfTrade     protocol.SelfTradeBehavior
	expiryTs      int64
}

// stagedFill is one planned trade against a resting maker order.
type stagedFill struct {
	maker          RestingOrder // copy taken at plan time
	qtyLots        int64
	quoteNative    uint64
	makerFeeNative int64  // negative = rebate
	lockedFeeUsed  uint64 // maker's locked fee released by this fill
	makerOut       bool   // maker order fully consumed
}

// stagedOut is a resting order (or part of one) leaving the book without a
// trade during this match.
type stagedOut struct {
	order   RestingOrder
	qtyLots int64
	removed bool // false for partial self-trade decrements
	reason  OutReason
}

// matchPlan is the complete read-only result of walking the opposing side.
// Nothing is mutated until the plan commits, so any failure while planning
// leaves the book, ledger and event queue exactly as they were.
type matchPlan struct {
	fills []stagedFill
	outs  []stagedOut

	totalBaseTakenLots    int64
	totalBaseTakenNative  uint64
	totalQuoteTakenNative uint64
	takerFeesNative       uint64

	remainingBaseLots  int64
	remainingQuoteLots int64
	limitExhausted     bool
}

// eventCount is the number of events this plan will push.
func (p *matchPlan) eventCount() int {
	return len(p.fills) + len(p.outs)
}

// planMatch walks the opposing side under price-time priority and stages
// trades. The walk is bounded by iterationLimit: when the limit is
// exhausted the partially matched plan is returned rather than an error.
func planMatch(market *Market, book *Orderbook, order *incomingOrder, now int64, iterationLimit int) (*matchPlan, error) {
	plan := &matchPlan{
		remainingBaseLots:  order.maxBaseLots,
		remainingQuoteLots: order.maxQuoteLots,
	}

	opposing := book.sideOf(order.side.Opposite())
	var planErr error

	opposing.ascend(func(maker *RestingOrder) bool {
		if plan.remainingBaseLots == 0 || plan.remainingQuoteLots == 0 {
			return false
		}
		crossed := order.priceLots >= maker.PriceLots
		if order.side == protocol.SideAsk {
			crossed = order.priceLots <= maker.PriceLots
		}
		if !crossed {
			return false
		}

		// The limit only matters while a matchable maker remains; a walk
		// that stopped crossing may still post its remainder.
		if iterationLimit == 0 {
			plan.limitExhausted = true
			return false
		}
		iterationLimit--

		if maker.IsExpired(now) {
			plan.outs = append(plan.outs, stagedOut{
				order:   *maker,
				qtyLots: maker.BaseLots,
				removed: true,
				reason:  OutReasonExpired,
			})
			return true
		}

		// Self-trade handling is evaluated before the match is accepted.
		if maker.Owner == order.owner {
			switch order.selfTrade {
			case protocol.SelfTradeAbortTransaction:
				planErr = ErrSelfTrade
				return false
			case protocol.SelfTradeCancelProvide:
				plan.outs = append(plan.outs, stagedOut{
					order:   *maker,
					qtyLots: maker.BaseLots,
					removed: true,
					reason:  OutReasonSelfTrade,
				})
				return true
			default: // SelfTradeDecrementTake
				overlap := min64(plan.remainingBaseLots, maker.BaseLots)
				plan.remainingBaseLots -= overlap
				plan.outs = append(plan.outs, stagedOut{
					order:   *maker,
					qtyLots: overlap,
					removed: overlap == maker.BaseLots,
					reason:  OutReasonSelfTrade,
				})
				return true
			}
		}

		qty := min64(plan.remainingBaseLots, maker.BaseLots)
		if byQuote := plan.remainingQuoteLots / maker.PriceLots; byQuote < qty {
			// Taking more would exceed the quote budget including fees;
			// the rest of the order is treated as unmatched.
			qty = byQuote
		}
		if qty == 0 {
			return false
		}

		quoteNative, err := market.QuoteNative(maker.PriceLots, qty)
		if err != nil {
			planErr = err
			return false
		}
		baseNative, err := market.BaseNative(qty)
		if err != nil {
			planErr = err
			return false
		}
		takerFee, err := market.TakerFeeNative(quoteNative)
		if err != nil {
			planErr = err
			return false
		}
		makerFee, err := market.MakerFeeNative(quoteNative)
		if err != nil {
			planErr = err
			return false
		}

		lockedFeeUsed := uint64(0)
		if makerFee > 0 {
			lockedFeeUsed = minU64(uint64(makerFee), maker.LockedFeeNative)
		}
		makerOut := qty == maker.BaseLots
		if makerOut && maker.LockedFeeNative > lockedFeeUsed {
			// Release the rounding dust left in the maker's fee lock.
			lockedFeeUsed = maker.LockedFeeNative
		}

		if plan.totalQuoteTakenNative, err = addU64(plan.totalQuoteTakenNative, quoteNative); err != nil {
			planErr = err
			return false
		}
		if plan.totalBaseTakenNative, err = addU64(plan.totalBaseTakenNative, baseNative); err != nil {
			planErr = err
			return false
		}
		if plan.takerFeesNative, err = addU64(plan.takerFeesNative, takerFee); err != nil {
			planErr = err
			return false
		}

		plan.totalBaseTakenLots += qty
		plan.remainingBaseLots -= qty
		plan.remainingQuoteLots -= qty * maker.PriceLots

		plan.fills = append(plan.fills, stagedFill{
			maker:          *maker,
			qtyLots:        qty,
			quoteNative:    quoteNative,
			makerFeeNative: makerFee,
			lockedFeeUsed:  lockedFeeUsed,
			makerOut:       makerOut,
		})

		return true
	})

	if planErr != nil {
		return nil, planErr
	}
	return plan, nil
}

// commitMatch applies a plan: book mutations and event pushes. All
// arithmetic was validated while planning, so this never fails. Evicted
// events are force-settled through the same path ConsumeEvents uses.
func commitMatch(market *Market, book *Orderbook, queue *EventQueue, ledger *Ledger, order *incomingOrder, plan *matchPlan, now int64) {
	opposing := book.sideOf(order.side.Opposite())

	for i := range plan.outs {
		out := &plan.outs[i]
		releaseFee := uint64(0)

		if out.removed {
			removed, _ := opposing.remove(out.order.ID)
			releaseFee = removed.LockedFeeNative
		} else if live := opposing.get(out.order.ID); live != nil {
			live.BaseLots -= out.qtyLots
		}

		pushEvent(market, queue, ledger, order.owner, Event{
			Type:             EventTypeOut,
			Timestamp:        now,
			Owner:            out.order.Owner,
			OrderID:          out.order.ID,
			Side:             out.order.Side,
			QtyLots:          out.qtyLots,
			OutPrice:         out.order.PriceLots,
			Reason:           out.reason,
			OrderRemoved:     out.removed,
			LockedFeeRelease: releaseFee,
		})
	}

	for i := range plan.fills {
		fill := &plan.fills[i]

		if fill.makerOut {
			opposing.remove(fill.maker.ID)
		} else if live := opposing.get(fill.maker.ID); live != nil {
			live.BaseLots -= fill.qtyLots
			live.LockedFeeNative -= fill.lockedFeeUsed
		}

		if fill.makerFeeNative < 0 {
			// The rebate is a liability on the accrued fees until the fill
			// event is consumed.
			market.PendingRebates += uint64(-fill.makerFeeNative)
		}

		market.TradeSeq++
		pushEvent(market, queue, ledger, order.owner, Event{
			Type:               EventTypeFill,
			Timestamp:          now,
			Maker:              fill.maker.Owner,
			Taker:              order.owner,
			TakerSide:          order.side,
			MakerOrderID:       fill.maker.ID,
			MakerClientOrderID: fill.maker.ClientOrderID,
			TakerClientOrderID: order.clientOrderID,
			PriceLots:          fill.maker.PriceLots,
			BaseLots:           fill.qtyLots,
			MakerFeeNative:     fill.makerFeeNative,
			LockedFeeRelease:   fill.lockedFeeUsed,
			MakerOut:           fill.makerOut,
		})
	}
}

// pushEvent appends to the queue, evicting the oldest event of another
// trader when full. The evicted event is applied immediately (forced
// settlement) and its owner's penalty counter is incremented: the queue
// degrades gracefully instead of failing the incoming order.
func pushEvent(market *Market, queue *EventQueue, ledger *Ledger, taker string, ev Event) {
	if queue.Full() {
		evicted, ok := queue.evictFor(taker)
		if !ok {
			// Planning guarantees this cannot happen: a request whose own
			// events would not fit is rejected before any mutation.
			logger.Error("event queue eviction failed", marketField(market))
			return
		}
		applyEvent(market, ledger, &evicted)
		_, penalized := ledger.Open(evicted.ownerOf())
		penalized.PenaltyCount++
	}
	if err := queue.Push(ev); err != nil {
		logger.Error("event push failed after eviction", marketField(market))
	}
}

// planEventCapacity verifies that pushes events can be made to fit by
// evicting other traders' entries. Called before any mutation.
func planEventCapacity(queue *EventQueue, taker string, pushes int) error {
	free := queue.Cap() - queue.Len()
	if pushes <= free {
		return nil
	}
	needed := pushes - free
	if pushes > queue.Cap() {
		return ErrEventQueueFull
	}

	evictable := 0
	for i := 0; i < queue.Len(); i++ {
		if queue.At(i).ownerOf() != taker {
			evictable++
			if evictable >= needed {
				return nil
			}
		}
	}
	return ErrEventQueueFull
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

const maxPriceLots = int64(math.MaxInt64)
