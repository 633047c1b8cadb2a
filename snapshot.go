package clob

import (
	"time"

	"github.com/orderbook-labs/clob/protocol"
)

// MarketSnapshot is the full serializable state of one market runtime:
// header, both book sides in priority order, the unconsumed events and
// every position. Restoring a snapshot reproduces the runtime exactly,
// including sequence counters.
type MarketSnapshot struct {
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`

	Market Market `json:"market"`

	BookCapacity       int `json:"book_capacity"`
	EventQueueCapacity int `json:"event_queue_capacity"`

	Bids []RestingOrder `json:"bids"`
	Asks []RestingOrder `json:"asks"`

	Events   []Event `json:"events"`
	EventSeq uint64  `json:"event_seq"`

	Positions []PositionSnapshot `json:"positions"`

	LogSeq uint64 `json:"log_seq"`
}

// Snapshot captures the runtime state under the market lock.
func (r *MarketRuntime) Snapshot() *MarketSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &MarketSnapshot{
		SchemaVersion:      SnapshotSchemaVersion,
		CreatedAt:          time.Unix(r.clock.Now(), 0).UTC(),
		Market:             *r.market,
		BookCapacity:       r.book.sideOf(protocol.SideBid).cap(),
		EventQueueCapacity: r.events.Cap(),
		Bids:               r.book.sideOf(protocol.SideBid).toSnapshot(),
		Asks:               r.book.sideOf(protocol.SideAsk).toSnapshot(),
		Events:             r.events.toSnapshot(),
		EventSeq:           r.events.seq,
		Positions:          r.ledger.toSnapshot(),
		LogSeq:             r.logSeq,
	}
}

// RestoreMarket registers a market runtime rebuilt from a snapshot.
func (e *Engine) RestoreMarket(snap *MarketSnapshot, oracle OracleProvider) (*MarketRuntime, error) {
	if snap == nil || snap.SchemaVersion != SnapshotSchemaVersion {
		return nil, ErrInvalidInput
	}
	if snap.BookCapacity <= 0 || snap.EventQueueCapacity <= 0 {
		return nil, ErrInvalidInput
	}

	market := snap.Market
	rt := &MarketRuntime{
		market: &market,
		book:   NewOrderbook(snap.BookCapacity),
		events: NewEventQueue(snap.EventQueueCapacity),
		ledger: NewLedger(),
		bridge: e.bridge,
		oracle: oracle,
		cfg:    e.cfg,
		clock:  e.clock,
		pub:    e.pub,
		logSeq: snap.LogSeq,
	}

	if err := rt.book.sideOf(protocol.SideBid).restore(snap.Bids); err != nil {
		return nil, err
	}
	if err := rt.book.sideOf(protocol.SideAsk).restore(snap.Asks); err != nil {
		return nil, err
	}
	if err := rt.events.restore(snap.Events, snap.EventSeq); err != nil {
		return nil, err
	}
	rt.ledger.restore(snap.Positions)

	if _, loaded := e.markets.LoadOrStore(market.MarketID, rt); loaded {
		return nil, ErrDuplicateMarket
	}
	return rt, nil
}
