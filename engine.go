package clob

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orderbook-labs/clob/protocol"
)

// Clock supplies wall time and the coarse slot counter used for oracle
// staleness. Swapped for a fixed clock in tests.
type Clock interface {
	Now() int64
	Slot() uint64
}

type systemClock struct{}

func (systemClock) Now() int64   { return time.Now().Unix() }
func (systemClock) Slot() uint64 { return uint64(time.Now().Unix()) }

// MarketRuntime is one market's complete in-memory state plus its
// collaborators. All operations take the runtime mutex: a market processes
// exactly one instruction at a time, which is what makes the plan/commit
// split sufficient for atomicity.
type MarketRuntime struct {
	mu     sync.Mutex
	market *Market
	book   *Orderbook
	events *EventQueue
	ledger *Ledger
	bridge SettlementBridge
	oracle OracleProvider
	cfg    Config
	clock  Clock

	pub    PublishLog
	logSeq uint64
}

// Market returns a copy of the market header (totals, fees, sequences).
func (r *MarketRuntime) Market() Market {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.market
}

// Position returns a copy of the owner's position, or false if none exists.
func (r *MarketRuntime) Position(owner string) (Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := r.ledger.Get(owner)
	if pos == nil {
		return Position{}, false
	}
	return *pos, true
}

// PendingEvents returns the number of unconsumed events.
func (r *MarketRuntime) PendingEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events.Len()
}

// Depth aggregates resting orders into price levels, best first, up to limit
// levels per side.
func (r *MarketRuntime) Depth(limit int) *protocol.GetDepthResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp := &protocol.GetDepthResponse{
		SequenceID: r.logSeq,
		Bids:       depthOf(r.book.sideOf(protocol.SideBid), limit),
		Asks:       depthOf(r.book.sideOf(protocol.SideAsk), limit),
	}
	return resp
}

func depthOf(side *bookSide, limit int) []*protocol.DepthItem {
	items := make([]*protocol.DepthItem, 0, limit)
	side.ascend(func(o *RestingOrder) bool {
		if n := len(items); n > 0 && items[n-1].PriceLots == o.PriceLots {
			items[n-1].BaseLots += o.BaseLots
			items[n-1].Count++
			return true
		}
		if len(items) == limit && limit > 0 {
			return false
		}
		items = append(items, &protocol.DepthItem{
			PriceLots: o.PriceLots,
			BaseLots:  o.BaseLots,
			Count:     1,
		})
		return true
	})
	return items
}

// Engine is the top-level registry of market runtimes. Markets are isolated:
// each has its own book, queue and ledger, sharing only the settlement
// bridge and configuration defaults.
type Engine struct {
	cfg     Config
	bridge  SettlementBridge
	clock   Clock
	pub     PublishLog
	markets sync.Map // market id -> *MarketRuntime
}

type EngineOption func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithPublisher attaches a trade log sink shared by all markets.
func WithPublisher(p PublishLog) EngineOption {
	return func(e *Engine) { e.pub = p }
}

func NewEngine(cfg Config, bridge SettlementBridge, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:    cfg,
		bridge: bridge,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Version reports the engine release.
func (e *Engine) Version() string { return EngineVersion }

// CreateMarket registers a new market. oracle may be nil for markets without
// pegged orders or a price band.
func (e *Engine) CreateMarket(req *protocol.CreateMarketRequest, oracle OracleProvider) (*MarketRuntime, error) {
	reqCopy := *req
	req = &reqCopy
	if req.MakerFeePpm == 0 && req.TakerFeePpm == 0 {
		req.MakerFeePpm = e.cfg.MakerFeePpm
		req.TakerFeePpm = e.cfg.TakerFeePpm
	}

	market, err := newMarket(req)
	if err != nil {
		return nil, err
	}

	bookCap := req.BookCapacity
	if bookCap <= 0 {
		bookCap = e.cfg.BookCapacity
	}
	queueCap := req.EventQueueCapacity
	if queueCap <= 0 {
		queueCap = e.cfg.EventQueueCapacity
	}

	rt := &MarketRuntime{
		market: market,
		book:   NewOrderbook(bookCap),
		events: NewEventQueue(queueCap),
		ledger: NewLedger(),
		bridge: e.bridge,
		oracle: oracle,
		cfg:    e.cfg,
		clock:  e.clock,
		pub:    e.pub,
	}
	if _, loaded := e.markets.LoadOrStore(req.MarketID, rt); loaded {
		return nil, ErrDuplicateMarket
	}

	logger.Info("market created",
		marketField(market),
		zap.Uint64("base_lot_size", market.BaseLotSize),
		zap.Uint64("quote_lot_size", market.QuoteLotSize),
		zap.Int64("maker_fee_ppm", market.MakerFeePpm),
		zap.Int64("taker_fee_ppm", market.TakerFeePpm))
	return rt, nil
}

// Market looks up a registered market runtime.
func (e *Engine) Market(marketID string) (*MarketRuntime, error) {
	v, ok := e.markets.Load(marketID)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*MarketRuntime), nil
}

// Markets calls fn for every registered market until fn returns false.
func (e *Engine) Markets(fn func(rt *MarketRuntime) bool) {
	e.markets.Range(func(_, v any) bool {
		return fn(v.(*MarketRuntime))
	})
}

// PlaceOrder routes to the named market.
func (e *Engine) PlaceOrder(ctx context.Context, marketID string, req *protocol.PlaceOrderRequest) (*OrderOutcome, error) {
	rt, err := e.Market(marketID)
	if err != nil {
		return nil, err
	}
	return rt.PlaceOrder(ctx, req)
}

// CancelOrder routes to the named market.
func (e *Engine) CancelOrder(marketID string, req *protocol.CancelOrderRequest) error {
	rt, err := e.Market(marketID)
	if err != nil {
		return err
	}
	return rt.CancelOrder(req)
}

// ConsumeEvents routes to the named market.
func (e *Engine) ConsumeEvents(marketID string, limit int) (int, error) {
	rt, err := e.Market(marketID)
	if err != nil {
		return 0, err
	}
	return rt.ConsumeEvents(limit), nil
}
