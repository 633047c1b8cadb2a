package clob

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	count atomic.Int64
	sum   atomic.Int64
}

func (h *countingHandler) OnEvent(v int64) {
	h.count.Add(1)
	h.sum.Add(v)
}

func TestRingBufferSingleProducer(t *testing.T) {
	handler := &countingHandler{}
	rb := NewRingBuffer[int64](8, handler)
	rb.Start()

	var want int64
	for i := int64(1); i <= 100; i++ {
		rb.Publish(i)
		want += i
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	assert.Equal(t, int64(100), handler.count.Load())
	assert.Equal(t, want, handler.sum.Load())
	assert.Zero(t, rb.PendingEvents())
}

func TestRingBufferMultipleProducers(t *testing.T) {
	handler := &countingHandler{}
	rb := NewRingBuffer[int64](64, handler)
	rb.Start()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				rb.Publish(1)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	assert.Equal(t, int64(producers*perProducer), handler.count.Load())
	assert.Equal(t, int64(producers*perProducer), handler.sum.Load())
}

func TestRingBufferPublishAfterShutdown(t *testing.T) {
	handler := &countingHandler{}
	rb := NewRingBuffer[int64](8, handler)
	rb.Start()

	rb.Publish(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	rb.Publish(2) // dropped
	assert.Equal(t, int64(1), handler.count.Load())
}

func TestRingBufferCapacityMustBePowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewRingBuffer[int64](3, &countingHandler{}) })
	assert.Panics(t, func() { NewRingBuffer[int64](0, &countingHandler{}) })
}

func TestRingPublishLogFeedsHandler(t *testing.T) {
	ab := NewAggregatedBook()
	pub := NewRingPublishLog(16, ab)

	log := acquireTradeLog()
	log.SequenceID = 1
	log.Type = LogTypeOpen
	log.Side = 1
	log.PriceLots = 90
	log.BaseLots = 2
	pub.Publish(log)
	releaseTradeLog(log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pub.Ring().Shutdown(ctx))

	assert.Equal(t, uint64(1), ab.SequenceID())
}
