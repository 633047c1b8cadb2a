package clob

import (
	"sync"
	"time"

	"github.com/orderbook-labs/clob/protocol"
)

// LogType classifies trade log entries. Open, Fill and Out affect book
// state; Reject does not but still advances the sequence.
type LogType uint8

const (
	LogTypeOpen LogType = iota + 1
	LogTypeFill
	LogTypeOut
	LogTypeReject
)

func (t LogType) String() string {
	switch t {
	case LogTypeOpen:
		return "open"
	case LogTypeFill:
		return "fill"
	case LogTypeOut:
		return "out"
	case LogTypeReject:
		return "reject"
	default:
		return "unknown"
	}
}

// TradeLog is one entry of the market's outbound feed. SequenceID increases
// by one per entry, letting downstream consumers detect gaps and rebuild.
// Quantities are in lots, with the traded notional also given in native
// quote units.
type TradeLog struct {
	SequenceID uint64  `json:"seq_id"`
	TradeID    uint64  `json:"trade_id,omitempty"` // set for fill entries only
	Type       LogType `json:"type"`
	MarketID   string  `json:"market_id"`

	Side        protocol.Side      `json:"side"`
	PriceLots   int64              `json:"price_lots"`
	BaseLots    int64              `json:"base_lots"`
	QuoteNative uint64             `json:"quote_native,omitempty"`
	OrderType   protocol.OrderType `json:"order_type,omitempty"`

	OrderID string `json:"order_id,omitempty"`
	Owner   string `json:"owner,omitempty"`

	MakerOrderID string `json:"maker_order_id,omitempty"`
	MakerOwner   string `json:"maker_owner,omitempty"`

	Reason    string    `json:"reason,omitempty"` // reject entries only
	CreatedAt time.Time `json:"created_at"`
}

var tradeLogPool = sync.Pool{
	New: func() any {
		return new(TradeLog)
	},
}

func acquireTradeLog() *TradeLog {
	return tradeLogPool.Get().(*TradeLog)
}

func releaseTradeLog(log *TradeLog) {
	*log = TradeLog{}
	tradeLogPool.Put(log)
}

// publishOrder emits the feed entries for a committed order: one fill entry
// per trade, then an open entry if a remainder was posted. Entries are
// pooled; PublishLog implementations must clone before returning.
func (r *MarketRuntime) publishOrder(order *incomingOrder, plan *orderPlan, outcome *OrderOutcome, now int64) {
	if r.pub == nil {
		return
	}

	for i := range plan.match.outs {
		out := plan.match.outs[i]
		removed := out.order
		removed.BaseLots = out.qtyLots
		r.publishOut(&removed, out.reason, now)
	}

	fills := plan.match.fills
	tradeSeqStart := r.market.TradeSeq - uint64(len(fills))
	takerOrderID := ""
	if outcome.OrderID != nil {
		takerOrderID = outcome.OrderID.String()
	}

	for i := range fills {
		fill := &fills[i]
		log := acquireTradeLog()
		r.logSeq++
		log.SequenceID = r.logSeq
		log.TradeID = tradeSeqStart + uint64(i) + 1
		log.Type = LogTypeFill
		log.MarketID = r.market.MarketID
		log.Side = order.side
		log.PriceLots = fill.maker.PriceLots
		log.BaseLots = fill.qtyLots
		log.QuoteNative = fill.quoteNative
		log.OrderType = order.orderType
		log.OrderID = takerOrderID
		log.Owner = order.owner
		log.MakerOrderID = fill.maker.ID.String()
		log.MakerOwner = fill.maker.Owner
		log.CreatedAt = time.Unix(now, 0).UTC()
		r.pub.Publish(log)
		releaseTradeLog(log)
	}

	if plan.postedBaseLots > 0 && outcome.OrderID != nil {
		log := acquireTradeLog()
		r.logSeq++
		log.SequenceID = r.logSeq
		log.Type = LogTypeOpen
		log.MarketID = r.market.MarketID
		log.Side = order.side
		log.PriceLots = plan.priceLots
		log.BaseLots = plan.postedBaseLots
		log.OrderType = order.orderType
		log.OrderID = takerOrderID
		log.Owner = order.owner
		log.CreatedAt = time.Unix(now, 0).UTC()
		r.pub.Publish(log)
		releaseTradeLog(log)
	}
}

// publishOut emits the feed entry for a book removal.
func (r *MarketRuntime) publishOut(order *RestingOrder, reason OutReason, now int64) {
	if r.pub == nil {
		return
	}

	log := acquireTradeLog()
	r.logSeq++
	log.SequenceID = r.logSeq
	log.Type = LogTypeOut
	log.MarketID = r.market.MarketID
	log.Side = order.Side
	log.PriceLots = order.PriceLots
	log.BaseLots = order.BaseLots
	log.OrderID = order.ID.String()
	log.Owner = order.Owner
	log.Reason = outReasonString(reason)
	log.CreatedAt = time.Unix(now, 0).UTC()
	r.pub.Publish(log)
	releaseTradeLog(log)
}

// publishReject emits a feed entry for an order rejected after validation.
func (r *MarketRuntime) publishReject(req *protocol.PlaceOrderRequest, err error, now int64) {
	if r.pub == nil {
		return
	}

	log := acquireTradeLog()
	r.logSeq++
	log.SequenceID = r.logSeq
	log.Type = LogTypeReject
	log.MarketID = r.market.MarketID
	log.Side = req.Side
	log.PriceLots = req.PriceLots
	log.BaseLots = req.MaxBaseLots
	log.OrderType = req.OrderType
	log.Owner = req.Owner
	log.Reason = err.Error()
	log.CreatedAt = time.Unix(now, 0).UTC()
	r.pub.Publish(log)
	releaseTradeLog(log)
}

func outReasonString(reason OutReason) string {
	switch reason {
	case OutReasonCanceled:
		return "canceled"
	case OutReasonExpired:
		return "expired"
	case OutReasonEvicted:
		return "evicted"
	case OutReasonSelfTrade:
		return "self_trade"
	case OutReasonQueueEviction:
		return "queue_eviction"
	default:
		return "unknown"
	}
}
