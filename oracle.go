package clob

import (
	"sync"

	"github.com/shopspring/decimal"
)

// OraclePrice is a point-in-time price reading: quote native units per base
// native unit, the slot it was observed at, and the source's confidence
// interval in the same units.
type OraclePrice struct {
	Price      decimal.Decimal
	Confidence decimal.Decimal
	Slot       uint64
}

// OracleProvider supplies reference prices. A market without a provider is
// pegless: oracle pegged orders and the price band are disabled.
type OracleProvider interface {
	Price(currentSlot uint64) (OraclePrice, error)
}

// OracleView is the per-request snapshot of the reference price, already
// converted to price lots. Constructed fresh per instruction, never
// persisted.
type OracleView struct {
	PriceLots int64
	Slot      uint64
}

// snapshotOracle reads and validates the provider price, rejecting stale or
// degenerate readings before any state is touched.
func snapshotOracle(provider OracleProvider, lots LotParams, currentSlot, maxStalenessSlots uint64) (*OracleView, error) {
	price, err := provider.Price(currentSlot)
	if err != nil {
		return nil, ErrOracleUnavailable
	}
	if price.Price.Sign() <= 0 {
		return nil, ErrOracleUnavailable
	}
	if maxStalenessSlots > 0 && currentSlot > price.Slot && currentSlot-price.Slot > maxStalenessSlots {
		return nil, ErrOracleStale
	}
	// A confidence interval wider than the price itself is unusable.
	if price.Confidence.Sign() > 0 && price.Confidence.Cmp(price.Price) >= 0 {
		return nil, ErrOracleUnavailable
	}

	priceLots, err := lots.PriceLotsFromDecimal(price.Price)
	if err != nil || priceLots <= 0 {
		return nil, ErrOracleUnavailable
	}

	return &OracleView{PriceLots: priceLots, Slot: price.Slot}, nil
}

// withinBand reports whether a limit price stays inside the allowed multiple
// of the oracle price. band of zero disables the check.
func (v *OracleView) withinBand(priceLots, band int64) bool {
	if band <= 0 || v == nil {
		return true
	}
	upper, err := mulI64(v.PriceLots, band)
	if err != nil {
		return false
	}
	lower := v.PriceLots / band
	if lower < 1 {
		lower = 1
	}
	return priceLots >= lower && priceLots <= upper
}

// StubOracle is a settable in-process price source, used for pegless test
// markets and as the fixture the engine is exercised with.
type StubOracle struct {
	mu    sync.RWMutex
	price OraclePrice
}

// NewStubOracle creates a stub reporting the given price at slot zero.
func NewStubOracle(price decimal.Decimal) *StubOracle {
	return &StubOracle{price: OraclePrice{Price: price}}
}

// Set updates the reported price and observation slot.
func (o *StubOracle) Set(price decimal.Decimal, slot uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.price = OraclePrice{Price: price, Slot: slot}
}

// Price implements OracleProvider.
func (o *StubOracle) Price(_ uint64) (OraclePrice, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.price, nil
}
