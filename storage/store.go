// Package storage persists market snapshots and the trade log feed in a
// pebble key-value store. The store implements clob.PublishLog, so it can be
// wired directly as a feed sink for durable replay.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/orderbook-labs/clob"
)

// Key layout:
//
//	s:<market_id>                market snapshot (JSON)
//	t:<market_id>:<seq be64>     trade log entry (JSON), ordered by sequence
const (
	snapshotPrefix = "s:"
	tradeLogPrefix = "t:"
)

var ErrNotFound = errors.New("storage: not found")

// Store wraps a pebble database holding one engine's durable state.
type Store struct {
	db  *pebble.DB
	log *zap.Logger
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &Store{db: db, log: zap.NewNop()}, nil
}

// SetLogger attaches a logger for asynchronous write failures.
func (s *Store) SetLogger(l *zap.Logger) {
	if l != nil {
		s.log = l
	}
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func snapshotKey(marketID string) []byte {
	return []byte(snapshotPrefix + marketID)
}

func tradeLogKey(marketID string, seq uint64) []byte {
	key := make([]byte, 0, len(tradeLogPrefix)+len(marketID)+9)
	key = append(key, tradeLogPrefix...)
	key = append(key, marketID...)
	key = append(key, ':')
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

// SaveSnapshot writes a market snapshot, replacing any previous one. The
// write is synced: once SaveSnapshot returns, the snapshot survives a crash.
func (s *Store) SaveSnapshot(snap *clob.MarketSnapshot) error {
	if snap == nil || snap.Market.MarketID == "" {
		return fmt.Errorf("storage: empty snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	return s.db.Set(snapshotKey(snap.Market.MarketID), data, pebble.Sync)
}

// LoadSnapshot reads the snapshot for a market.
func (s *Store) LoadSnapshot(marketID string) (*clob.MarketSnapshot, error) {
	data, closer, err := s.db.Get(snapshotKey(marketID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load snapshot %s: %w", marketID, err)
	}
	defer closer.Close()

	snap := new(clob.MarketSnapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("storage: unmarshal snapshot %s: %w", marketID, err)
	}
	return snap, nil
}

// DeleteSnapshot removes a market's snapshot.
func (s *Store) DeleteSnapshot(marketID string) error {
	return s.db.Delete(snapshotKey(marketID), pebble.Sync)
}

// ListMarkets returns the ids of all markets with a stored snapshot.
func (s *Store) ListMarkets() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(snapshotPrefix),
		UpperBound: []byte(snapshotPrefix + "\xff"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key())[len(snapshotPrefix):])
	}
	return ids, iter.Error()
}

// Publish implements clob.PublishLog, appending feed entries durably. The
// entries are marshaled before returning, satisfying the clone contract.
// Writes are unsynced: the feed is reproducible from a snapshot, so losing
// the tail on a crash is acceptable.
func (s *Store) Publish(logs ...*clob.TradeLog) {
	for _, entry := range logs {
		data, err := json.Marshal(entry)
		if err != nil {
			s.log.Error("marshal trade log", zap.Uint64("seq_id", entry.SequenceID), zap.Error(err))
			continue
		}
		key := tradeLogKey(entry.MarketID, entry.SequenceID)
		if err := s.db.Set(key, data, pebble.NoSync); err != nil {
			s.log.Error("persist trade log", zap.Uint64("seq_id", entry.SequenceID), zap.Error(err))
		}
	}
}

// TradeLogs reads feed entries for a market with sequence ids in
// [fromSeq, toSeq]. A toSeq of zero means no upper bound.
func (s *Store) TradeLogs(marketID string, fromSeq, toSeq uint64) ([]*clob.TradeLog, error) {
	upper := tradeLogKey(marketID, ^uint64(0))
	if toSeq > 0 && toSeq < ^uint64(0) {
		upper = tradeLogKey(marketID, toSeq+1)
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: tradeLogKey(marketID, fromSeq),
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*clob.TradeLog
	for iter.First(); iter.Valid(); iter.Next() {
		entry := new(clob.TradeLog)
		if err := json.Unmarshal(iter.Value(), entry); err != nil {
			return nil, fmt.Errorf("storage: unmarshal trade log: %w", err)
		}
		out = append(out, entry)
	}
	return out, iter.Error()
}
