package clob

import "sync"

// PublishLog is the sink for outbound trade log entries.
//
// Implementations must either process entries synchronously before
// returning, or clone them: the engine recycles TradeLog objects to a
// sync.Pool after Publish returns.
type PublishLog interface {
	Publish(...*TradeLog)
}

// MemoryPublishLog stores entries in memory, useful for testing.
type MemoryPublishLog struct {
	mu      sync.RWMutex
	entries []*TradeLog
}

func NewMemoryPublishLog() *MemoryPublishLog {
	return &MemoryPublishLog{entries: make([]*TradeLog, 0)}
}

// Publish clones and appends the entries.
func (m *MemoryPublishLog) Publish(logs ...*TradeLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range logs {
		cpy := new(TradeLog)
		*cpy = *log
		m.entries = append(m.entries, cpy)
	}
}

// Count returns the number of entries stored.
func (m *MemoryPublishLog) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Get returns the entry at index.
func (m *MemoryPublishLog) Get(index int) *TradeLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[index]
}

// Logs returns a copy of all stored entries.
func (m *MemoryPublishLog) Logs() []*TradeLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs := make([]*TradeLog, len(m.entries))
	copy(logs, m.entries)
	return logs
}

// DiscardPublishLog drops every entry, useful for benchmarking.
type DiscardPublishLog struct{}

func NewDiscardPublishLog() *DiscardPublishLog { return &DiscardPublishLog{} }

func (p *DiscardPublishLog) Publish(...*TradeLog) {}

// RingPublishLog bridges the engine's synchronous publish calls onto an
// asynchronous consumer through the MPSC ring buffer. Entries are cloned
// before they cross the goroutine boundary, per the PublishLog contract.
type RingPublishLog struct {
	ring *RingBuffer[*TradeLog]
}

// NewRingPublishLog creates and starts a ring-buffered publisher feeding
// handler. capacity must be a power of two.
func NewRingPublishLog(capacity int64, handler EventHandler[*TradeLog]) *RingPublishLog {
	p := &RingPublishLog{ring: NewRingBuffer[*TradeLog](capacity, handler)}
	p.ring.Start()
	return p
}

func (p *RingPublishLog) Publish(logs ...*TradeLog) {
	for _, log := range logs {
		cpy := new(TradeLog)
		*cpy = *log
		p.ring.Publish(cpy)
	}
}

// Ring exposes the underlying buffer for shutdown and monitoring.
func (p *RingPublishLog) Ring() *RingBuffer[*TradeLog] { return p.ring }
