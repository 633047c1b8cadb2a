package clob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderbook-labs/clob/protocol"
)

func TestPlaceOrderValidation(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *protocol.PlaceOrderRequest
		want error
	}{
		{"no owner", &protocol.PlaceOrderRequest{Side: protocol.SideBid, PriceLots: 1, MaxBaseLots: 1, MaxQuoteLotsIncludingFees: 1}, ErrInvalidInput},
		{"bad side", &protocol.PlaceOrderRequest{Owner: "a", Side: 0, PriceLots: 1, MaxBaseLots: 1, MaxQuoteLotsIncludingFees: 1}, ErrInvalidInput},
		{"zero base", &protocol.PlaceOrderRequest{Owner: "a", Side: protocol.SideBid, PriceLots: 1, MaxBaseLots: 0, MaxQuoteLotsIncludingFees: 1}, ErrInvalidInput},
		{"zero quote", &protocol.PlaceOrderRequest{Owner: "a", Side: protocol.SideBid, PriceLots: 1, MaxBaseLots: 1, MaxQuoteLotsIncludingFees: 0}, ErrInvalidInput},
		{"zero price", &protocol.PlaceOrderRequest{Owner: "a", Side: protocol.SideBid, PriceLots: 0, MaxBaseLots: 1, MaxQuoteLotsIncludingFees: 1}, ErrInvalidInput},
		{"bad order type", &protocol.PlaceOrderRequest{Owner: "a", Side: protocol.SideBid, OrderType: 99, PriceLots: 1, MaxBaseLots: 1, MaxQuoteLotsIncludingFees: 1}, ErrInvalidInput},
		{"wrong vault", &protocol.PlaceOrderRequest{Owner: "a", Side: protocol.SideBid, PriceLots: 1, MaxBaseLots: 1, MaxQuoteLotsIncludingFees: 1, Vault: "vault-base"}, ErrInvalidVault},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fix.rt.PlaceOrder(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPlaceOrderMatchingVault(t *testing.T) {
	fix := newFixture(t, nil)
	fix.fund("alice", 1_000_000)

	req := limitReq("alice", protocol.SideBid, 90, 1)
	req.Vault = "vault-quote"
	outcome := fix.place(t, req)
	require.NotNil(t, outcome.OrderID)
}

func TestPlaceOrderExpiredMarket(t *testing.T) {
	fix := newFixture(t, func(_ *Config, req *protocol.CreateMarketRequest) {
		req.ExpiryTimestamp = 1_700_000_000
	})
	fix.fund("alice", 1_000_000)

	_, err := fix.rt.PlaceOrder(context.Background(), limitReq("alice", protocol.SideBid, 90, 1))
	assert.ErrorIs(t, err, ErrMarketExpired)

	// Rejection is idempotent and leaves nothing behind.
	_, err = fix.rt.PlaceOrder(context.Background(), limitReq("alice", protocol.SideBid, 90, 1))
	assert.ErrorIs(t, err, ErrMarketExpired)
	assert.Equal(t, 0, fix.rt.book.Len(protocol.SideBid))
	assert.Equal(t, uint64(1_000_000), fix.bridge.Balance("alice"))
}

func TestPlaceOrderExpiredOnArrival(t *testing.T) {
	fix := newFixture(t, nil)
	fix.fund("alice", 1_000_000)

	req := limitReq("alice", protocol.SideBid, 90, 1)
	req.ExpiryTimestamp = fix.clock.now
	outcome := fix.place(t, req)

	assert.Nil(t, outcome.OrderID)
	assert.Zero(t, outcome.DepositNative)
	assert.Equal(t, 0, fix.rt.book.Len(protocol.SideBid))
}

func TestDepositUsesFreeBalanceFirst(t *testing.T) {
	fix := newFixture(t, nil)
	fix.fund("alice", 1_000_000)

	// First bid deposits in full, then is canceled and consumed, leaving
	// the funds free inside the market.
	outcome := fix.place(t, limitReq("alice", protocol.SideBid, 90, 2))
	require.Equal(t, uint64(1801), outcome.DepositNative)
	require.NoError(t, fix.rt.CancelOrder(&protocol.CancelOrderRequest{Owner: "alice", OrderID: outcome.OrderID.String()}))
	fix.rt.ConsumeEvents(16)

	// A smaller second bid is covered entirely by the free balance.
	outcome = fix.place(t, limitReq("alice", protocol.SideBid, 90, 1))
	assert.Zero(t, outcome.DepositNative)
	assert.Equal(t, uint64(1_000_000-1801), fix.bridge.Balance("alice"))

	// A larger third bid deposits only the shortfall.
	outcome = fix.place(t, limitReq("alice", protocol.SideBid, 90, 2))
	pos, _ := fix.rt.Position("alice")
	assert.Zero(t, pos.QuoteFreeNative)
	assert.Equal(t, uint64(901), outcome.DepositNative, "required 1801 minus 900 free")
	assert.Equal(t, uint64(2702), pos.QuoteLockedNative)
}

func TestTransferFailureLeavesStateUntouched(t *testing.T) {
	fix := newFixture(t, nil)
	// alice has nothing funded: the deposit transfer must fail.

	_, err := fix.rt.PlaceOrder(context.Background(), limitReq("alice", protocol.SideBid, 90, 1))
	assert.ErrorIs(t, err, ErrTransferFailed)

	assert.Equal(t, 0, fix.rt.book.Len(protocol.SideBid))
	assert.Equal(t, 0, fix.rt.PendingEvents())
	_, ok := fix.rt.Position("alice")
	if ok {
		pos, _ := fix.rt.Position("alice")
		assert.Zero(t, pos.QuoteLockedNative)
	}
	market := fix.rt.Market()
	assert.Zero(t, market.QuoteDepositTotal)
	assert.Zero(t, market.OrderSeq)
}

func TestFeeOnTransferGrossUp(t *testing.T) {
	fix := newFixture(t, func(_ *Config, req *protocol.CreateMarketRequest) {
		req.QuoteMint = "usdt-fot"
	})
	fix.bridge.SetTransferFee("usdt-fot", 10_000) // 1%
	fix.fund("alice", 1_000_000)

	outcome := fix.place(t, limitReq("alice", protocol.SideBid, 90, 2))
	require.Equal(t, uint64(1801), outcome.DepositNative)

	// The vault nets exactly the deposit despite the transfer fee.
	assert.Equal(t, uint64(1801), fix.bridge.Balance("vault-quote"))
	assert.Greater(t, uint64(1_000_000)-fix.bridge.Balance("alice"), uint64(1801), "sender paid the gross amount")
}

func TestEventQueueEvictionPenalty(t *testing.T) {
	fix := newFixture(t, func(_ *Config, req *protocol.CreateMarketRequest) {
		req.EventQueueCapacity = 1
	})
	fix.fund("maker", 1_000_000)
	fix.fund("taker", 1_000_000)

	fix.place(t, limitReq("maker", protocol.SideAsk, 100, 2))
	fix.place(t, limitReq("taker", protocol.SideBid, 100, 1))
	require.Equal(t, 1, fix.rt.PendingEvents())

	// The queue is full with the maker's fill; the next trade evicts it,
	// force-settling the maker and penalizing them.
	fix.place(t, limitReq("taker", protocol.SideBid, 100, 1))
	assert.Equal(t, 1, fix.rt.PendingEvents())

	makerPos, _ := fix.rt.Position("maker")
	assert.Equal(t, uint64(1), makerPos.PenaltyCount)
	assert.Equal(t, uint64(999), makerPos.QuoteFreeNative, "first fill force-settled: 1000 minus 1 maker fee")

	// The taker also accrues a penalty per queue-growing request.
	takerPos, _ := fix.rt.Position("taker")
	assert.Equal(t, uint64(2), takerPos.PenaltyCount)
}

func TestQueueFullOfOwnEventsRejects(t *testing.T) {
	fix := newFixture(t, func(_ *Config, req *protocol.CreateMarketRequest) {
		req.EventQueueCapacity = 1
	})
	fix.fund("alice", 1_000_000)

	outcome := fix.place(t, limitReq("alice", protocol.SideBid, 90, 1))
	require.NoError(t, fix.rt.CancelOrder(&protocol.CancelOrderRequest{Owner: "alice", OrderID: outcome.OrderID.String()}))
	require.Equal(t, 1, fix.rt.PendingEvents())

	// The only queued event belongs to alice herself, so nothing can be
	// evicted to make room for her next cancel.
	outcome2 := fix.place(t, limitReq("alice", protocol.SideAsk, 200, 1))
	err := fix.rt.CancelOrder(&protocol.CancelOrderRequest{Owner: "alice", OrderID: outcome2.OrderID.String()})
	assert.ErrorIs(t, err, ErrEventQueueFull)
}

func TestDepositTotalsConservation(t *testing.T) {
	fix := newFixture(t, nil)
	fix.fund("maker", 1_000_000)
	fix.fund("taker", 1_000_000)

	fix.place(t, limitReq("maker", protocol.SideAsk, 100, 5))
	fix.place(t, limitReq("taker", protocol.SideBid, 100, 3))
	fix.place(t, limitReq("taker", protocol.SideBid, 95, 2))
	fix.rt.ConsumeEvents(16)

	market := fix.rt.Market()
	ledger := fix.rt.ledger
	assert.Equal(t, market.BaseDepositTotal, ledger.TotalBaseNative())
	assert.Equal(t, market.QuoteDepositTotal, ledger.TotalQuoteNative()+market.FeesAccrued)

	// The vaults hold exactly the deposit totals.
	assert.Equal(t, market.BaseDepositTotal, fix.bridge.Balance("vault-base"))
	assert.Equal(t, market.QuoteDepositTotal, fix.bridge.Balance("vault-quote"))
}

func TestRejectedOrdersArePublished(t *testing.T) {
	fix := newFixture(t, nil)
	fix.fund("maker", 1_000_000)
	fix.fund("poster", 1_000_000)

	fix.place(t, limitReq("maker", protocol.SideAsk, 100, 1))

	req := limitReq("poster", protocol.SideBid, 100, 1)
	req.OrderType = protocol.OrderTypePostOnly
	_, err := fix.rt.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrWouldMatch)

	logs := fix.pub.Logs()
	require.NotEmpty(t, logs)
	last := logs[len(logs)-1]
	assert.Equal(t, LogTypeReject, last.Type)
	assert.Equal(t, "poster", last.Owner)
	assert.Equal(t, ErrWouldMatch.Error(), last.Reason)
}
