package clob

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderbook-labs/clob/protocol"
)

// fixtureWithOracle builds the standard market with a stub oracle attached.
// With base lot 100 and quote lot 10, a native price of 10 quote per base
// unit maps to 100 price lots.
func fixtureWithOracle(t *testing.T, mutate func(cfg *Config, req *protocol.CreateMarketRequest)) (*marketFixture, *StubOracle) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.MakerFeePpm = 200
	cfg.TakerFeePpm = 400

	req := &protocol.CreateMarketRequest{
		MarketID:     "BTC-USDC",
		BaseLotSize:  100,
		QuoteLotSize: 10,
		BaseVault:    "vault-base",
		QuoteVault:   "vault-quote",
	}
	if mutate != nil {
		mutate(&cfg, req)
	}

	bridge := NewMemoryBridge()
	clock := &fixedClock{now: 1_700_000_000, slot: 500}
	engine := NewEngine(cfg, bridge, WithClock(clock))
	oracle := NewStubOracle(decimal.NewFromInt(10))
	oracle.Set(decimal.NewFromInt(10), clock.slot)

	rt, err := engine.CreateMarket(req, oracle)
	require.NoError(t, err)
	return &marketFixture{engine: engine, rt: rt, bridge: bridge, clock: clock}, oracle
}

func TestSnapshotOracleValidation(t *testing.T) {
	lots := LotParams{BaseLotSize: 100, QuoteLotSize: 10}
	oracle := NewStubOracle(decimal.NewFromInt(10))
	oracle.Set(decimal.NewFromInt(10), 500)

	view, err := snapshotOracle(oracle, lots, 500, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.PriceLots)
	assert.Equal(t, uint64(500), view.Slot)

	// Stale reading.
	_, err = snapshotOracle(oracle, lots, 500+601, 600)
	assert.ErrorIs(t, err, ErrOracleStale)

	// Staleness of zero disables the check.
	_, err = snapshotOracle(oracle, lots, 500+601, 0)
	assert.NoError(t, err)

	// Non-positive price.
	oracle.Set(decimal.Zero, 500)
	_, err = snapshotOracle(oracle, lots, 500, 600)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestOraclePeggedOrder(t *testing.T) {
	fix, _ := fixtureWithOracle(t, nil)
	fix.fund("alice", 1_000_000)

	req := &protocol.PlaceOrderRequest{
		Owner:                     "alice",
		Side:                      protocol.SideBid,
		OrderType:                 protocol.OrderTypeOraclePegged,
		PegOffsetLots:             -2,
		MaxBaseLots:               1,
		MaxQuoteLotsIncludingFees: 10_000_000,
	}
	outcome := fix.place(t, req)

	require.NotNil(t, outcome.OrderID)
	assert.Equal(t, int64(98), outcome.OrderID.PriceLots(), "oracle 100 minus offset 2")
}

func TestOraclePeggedRespectsPegLimit(t *testing.T) {
	fix, _ := fixtureWithOracle(t, nil)
	fix.fund("alice", 1_000_000)

	req := &protocol.PlaceOrderRequest{
		Owner:                     "alice",
		Side:                      protocol.SideBid,
		OrderType:                 protocol.OrderTypeOraclePegged,
		PegOffsetLots:             10,
		PegLimitLots:              105,
		MaxBaseLots:               1,
		MaxQuoteLotsIncludingFees: 10_000_000,
	}
	outcome := fix.place(t, req)

	require.NotNil(t, outcome.OrderID)
	assert.Equal(t, int64(105), outcome.OrderID.PriceLots(), "clamped to the peg limit")
}

func TestOraclePeggedWithoutOracle(t *testing.T) {
	fix := newFixture(t, nil) // no oracle attached
	fix.fund("alice", 1_000_000)

	req := &protocol.PlaceOrderRequest{
		Owner:                     "alice",
		Side:                      protocol.SideBid,
		OrderType:                 protocol.OrderTypeOraclePegged,
		MaxBaseLots:               1,
		MaxQuoteLotsIncludingFees: 10_000_000,
	}
	_, err := fix.rt.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestPriceBand(t *testing.T) {
	fix, _ := fixtureWithOracle(t, func(cfg *Config, _ *protocol.CreateMarketRequest) {
		cfg.PriceBandMultiple = 2
	})
	fix.fund("alice", 1_000_000)

	// Oracle at 100 lots with a 2x band allows [50, 200].
	outcome := fix.place(t, limitReq("alice", protocol.SideBid, 200, 1))
	require.NotNil(t, outcome.OrderID)

	_, err := fix.rt.PlaceOrder(context.Background(), limitReq("alice", protocol.SideBid, 201, 1))
	assert.ErrorIs(t, err, ErrPriceOutOfRange)

	_, err = fix.rt.PlaceOrder(context.Background(), limitReq("alice", protocol.SideAsk, 49, 1))
	assert.ErrorIs(t, err, ErrPriceOutOfRange)
}

func TestStaleOracleBlocksPeggedOrders(t *testing.T) {
	fix, oracle := fixtureWithOracle(t, nil)
	fix.fund("alice", 1_000_000)

	oracle.Set(decimal.NewFromInt(10), 100)
	fix.clock.slot = 100 + 601

	req := &protocol.PlaceOrderRequest{
		Owner:                     "alice",
		Side:                      protocol.SideBid,
		OrderType:                 protocol.OrderTypeOraclePegged,
		MaxBaseLots:               1,
		MaxQuoteLotsIncludingFees: 10_000_000,
	}
	_, err := fix.rt.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrOracleStale)
}

func TestWithinBand(t *testing.T) {
	view := &OracleView{PriceLots: 100}

	assert.True(t, view.withinBand(100, 0), "zero band disables the check")
	assert.True(t, view.withinBand(50, 2))
	assert.True(t, view.withinBand(200, 2))
	assert.False(t, view.withinBand(49, 2))
	assert.False(t, view.withinBand(201, 2))

	var nilView *OracleView
	assert.True(t, nilView.withinBand(100, 2), "no oracle means no band")
}
