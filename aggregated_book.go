package clob

import (
	"sync"

	"github.com/igrmk/treemap/v2"
	"go.uber.org/zap"

	"github.com/orderbook-labs/clob/protocol"
)

// AggregatedBook maintains a depth-only view of one market's book: price
// levels and their aggregated sizes, rebuilt from the trade log feed. It is
// meant for downstream consumers that never see the full book, and doubles
// as the engine-side depth cache when wired to a RingPublishLog.
type AggregatedBook struct {
	mu    sync.RWMutex
	seqID uint64 // last applied SequenceID, for gap detection and dedup
	ask   *treemap.TreeMap[int64, int64]
	bid   *treemap.TreeMap[int64, int64]
}

func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		ask: treemap.NewWithKeyCompare[int64, int64](func(a, b int64) bool {
			return a < b // asks: lowest price first
		}),
		bid: treemap.NewWithKeyCompare[int64, int64](func(a, b int64) bool {
			return a > b // bids: highest price first
		}),
	}
}

// SequenceID returns the last applied sequence id.
func (ab *AggregatedBook) SequenceID() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seqID
}

// Replay applies one trade log entry. Entries at or below the current
// sequence are duplicates and ignored; a jump past seqID+1 is a gap and the
// caller must rebuild from a snapshot.
func (ab *AggregatedBook) Replay(log *TradeLog) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if log.SequenceID <= ab.seqID {
		return nil
	}
	if ab.seqID != 0 && log.SequenceID != ab.seqID+1 {
		return ErrSequenceGap
	}
	ab.seqID = log.SequenceID

	switch log.Type {
	case LogTypeOpen:
		ab.adjust(log.Side, log.PriceLots, log.BaseLots)
	case LogTypeFill:
		// A fill consumes the maker side at the trade price.
		ab.adjust(log.Side.Opposite(), log.PriceLots, -log.BaseLots)
	case LogTypeOut:
		ab.adjust(log.Side, log.PriceLots, -log.BaseLots)
	case LogTypeReject:
		// Sequence advances, book unchanged.
	}
	return nil
}

func (ab *AggregatedBook) adjust(side protocol.Side, priceLots, deltaLots int64) {
	tree := ab.treeOf(side)
	size, _ := tree.Get(priceLots)
	size += deltaLots
	if size <= 0 {
		tree.Del(priceLots)
		return
	}
	tree.Set(priceLots, size)
}

func (ab *AggregatedBook) treeOf(side protocol.Side) *treemap.TreeMap[int64, int64] {
	if side == protocol.SideBid {
		return ab.bid
	}
	return ab.ask
}

// OnRebuild resets the book from a depth snapshot. Call before replaying the
// feed after a gap.
func (ab *AggregatedBook) OnRebuild(snap *protocol.GetDepthResponse) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.bid.Clear()
	ab.ask.Clear()
	for _, item := range snap.Bids {
		ab.bid.Set(item.PriceLots, item.BaseLots)
	}
	for _, item := range snap.Asks {
		ab.ask.Set(item.PriceLots, item.BaseLots)
	}
	ab.seqID = snap.SequenceID
}

// Depth returns the aggregated size at a price level, zero when the level
// does not exist.
func (ab *AggregatedBook) Depth(side protocol.Side, priceLots int64) int64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	size, _ := ab.treeOf(side).Get(priceLots)
	return size
}

// TopLevels returns up to n best levels of one side.
func (ab *AggregatedBook) TopLevels(side protocol.Side, n int) []*protocol.DepthItem {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	items := make([]*protocol.DepthItem, 0, n)
	for it := ab.treeOf(side).Iterator(); it.Valid() && len(items) < n; it.Next() {
		items = append(items, &protocol.DepthItem{
			PriceLots: it.Key(),
			BaseLots:  it.Value(),
		})
	}
	return items
}

// OnEvent implements EventHandler, letting the book consume a
// RingPublishLog feed directly.
func (ab *AggregatedBook) OnEvent(log *TradeLog) {
	if err := ab.Replay(log); err != nil {
		logger.Warn("aggregated book replay failed",
			zap.Uint64("seq_id", log.SequenceID),
			zap.Uint64("applied", ab.SequenceID()),
			zap.Error(err))
	}
}
