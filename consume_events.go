package clob

import (
	"go.uber.org/zap"

	"github.com/orderbook-labs/clob/protocol"
)

// ConsumeEvents pops up to limit events from the queue and applies their
// maker-side balance effects. Returns the number of events consumed.
// Consumption order is strictly FIFO; a consumed event is gone, so every
// effect in applyEvent must be final.
func (r *MarketRuntime) ConsumeEvents(limit int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	consumed := 0
	for consumed < limit {
		ev, ok := r.events.PopFront()
		if !ok {
			break
		}
		applyEvent(r.market, r.ledger, &ev)
		consumed++
	}

	if consumed > 0 {
		logger.Debug("events consumed",
			marketField(r.market),
			zap.Int("count", consumed),
			zap.Int("pending", r.events.Len()))
	}
	return consumed
}

// applyEvent settles one event against the maker's position. The amounts
// were computed with checked arithmetic when the event was created, so the
// replay here uses plain arithmetic and cannot fail.
func applyEvent(market *Market, ledger *Ledger, ev *Event) {
	switch ev.Type {
	case EventTypeFill:
		applyFill(market, ledger, ev)
	case EventTypeOut:
		applyOut(market, ledger, ev)
	}
}

func applyFill(market *Market, ledger *Ledger, ev *Event) {
	_, pos := ledger.Open(ev.Maker)
	makerSide := ev.TakerSide.Opposite()

	baseNative := uint64(ev.BaseLots) * market.BaseLotSize
	quoteNative := uint64(ev.PriceLots) * uint64(ev.BaseLots) * market.QuoteLotSize

	if makerSide == protocol.SideBid {
		// The maker bought: spent locked quote, receives base. The locked
		// fee splits into the charged part and rounding dust refunded free.
		pos.QuoteLockedNative -= quoteNative + ev.LockedFeeRelease
		pos.BaseFreeNative += baseNative

		if ev.MakerFeeNative >= 0 {
			charged := minU64(uint64(ev.MakerFeeNative), ev.LockedFeeRelease)
			market.FeesAccrued += charged
			pos.QuoteFreeNative += ev.LockedFeeRelease - charged
		} else {
			rebate := uint64(-ev.MakerFeeNative)
			pos.QuoteFreeNative += ev.LockedFeeRelease + rebate
			market.FeesAccrued -= rebate
			market.PendingRebates -= rebate
		}
	} else {
		// The maker sold: releases locked base, receives quote net of fee.
		pos.BaseLockedNative -= baseNative

		if ev.MakerFeeNative >= 0 {
			charged := minU64(uint64(ev.MakerFeeNative), quoteNative)
			pos.QuoteFreeNative += quoteNative - charged
			market.FeesAccrued += charged
		} else {
			rebate := uint64(-ev.MakerFeeNative)
			pos.QuoteFreeNative += quoteNative + rebate
			market.FeesAccrued -= rebate
			market.PendingRebates -= rebate
		}
	}

	pos.MakerVolumeNative += quoteNative
	if ev.MakerOut {
		decOpenOrders(pos, makerSide)
	}
}

func applyOut(market *Market, ledger *Ledger, ev *Event) {
	_, pos := ledger.Open(ev.Owner)

	if ev.Side == protocol.SideBid {
		quoteNative := uint64(ev.OutPrice) * uint64(ev.QtyLots) * market.QuoteLotSize
		pos.QuoteLockedNative -= quoteNative + ev.LockedFeeRelease
		pos.QuoteFreeNative += quoteNative + ev.LockedFeeRelease
	} else {
		baseNative := uint64(ev.QtyLots) * market.BaseLotSize
		pos.BaseLockedNative -= baseNative
		pos.BaseFreeNative += baseNative
	}

	if ev.OrderRemoved {
		decOpenOrders(pos, ev.Side)
	}
}

func decOpenOrders(pos *Position, side protocol.Side) {
	if side == protocol.SideBid {
		if pos.BidsCount > 0 {
			pos.BidsCount--
		}
	} else {
		if pos.AsksCount > 0 {
			pos.AsksCount--
		}
	}
}
