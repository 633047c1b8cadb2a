package clob

import (
	"github.com/orderbook-labs/clob/protocol"
)

// Market holds the market-wide invariants: lot sizes, fee rates, expiry and
// the running deposit totals. Fee rates are fixed at creation; locked
// amounts are released with the same rates they were computed with.
type Market struct {
	MarketID string `json:"market_id"`
	LotParams

	// Fee rates in parts per million of quote notional. The maker rate may
	// be negative (rebate); the taker rate is never negative and always
	// covers the worst-case maker rebate.
	MakerFeePpm int64 `json:"maker_fee_ppm"`
	TakerFeePpm int64 `json:"taker_fee_ppm"`

	// ExpiryTimestamp of zero means the market never expires.
	ExpiryTimestamp int64 `json:"expiry_timestamp"`

	// Running totals of native tokens attributable to this market's vaults:
	// trader free+locked balances plus, on the quote side, accrued fees.
	BaseDepositTotal  uint64 `json:"base_deposit_total"`
	QuoteDepositTotal uint64 `json:"quote_deposit_total"`

	// FeesAccrued is the quote amount collected and not yet swept.
	FeesAccrued uint64 `json:"fees_accrued"`

	// PendingRebates is the part of FeesAccrued already owed to makers of
	// fills still waiting in the event queue. SweepFees never touches it.
	PendingRebates uint64 `json:"pending_rebates,omitempty"`

	BaseVault  string `json:"base_vault"`
	QuoteVault string `json:"quote_vault"`

	// Mints are set only for fee-on-transfer assets.
	BaseMint  string `json:"base_mint,omitempty"`
	QuoteMint string `json:"quote_mint,omitempty"`

	// OrderSeq is the monotonically increasing arrival sequence used as the
	// price-time tie-break key.
	OrderSeq uint64 `json:"order_seq"`

	// TradeSeq counts executed fills, giving every trade a market-unique id.
	TradeSeq uint64 `json:"trade_seq"`
}

func newMarket(req *protocol.CreateMarketRequest) (*Market, error) {
	if req.MarketID == "" || req.BaseLotSize == 0 || req.QuoteLotSize == 0 {
		return nil, ErrInvalidInput
	}
	if req.TakerFeePpm < 0 || req.TakerFeePpm >= FeeDenominator {
		return nil, ErrInvalidInput
	}
	// A maker rebate must be funded by the taker fee.
	if req.MakerFeePpm < 0 && -req.MakerFeePpm > req.TakerFeePpm {
		return nil, ErrInvalidInput
	}
	if req.MakerFeePpm >= FeeDenominator {
		return nil, ErrInvalidInput
	}

	return &Market{
		MarketID: req.MarketID,
		LotParams: LotParams{
			BaseLotSize:  req.BaseLotSize,
			QuoteLotSize: req.QuoteLotSize,
		},
		MakerFeePpm:     req.MakerFeePpm,
		TakerFeePpm:     req.TakerFeePpm,
		ExpiryTimestamp: req.ExpiryTimestamp,
		BaseVault:       req.BaseVault,
		QuoteVault:      req.QuoteVault,
		BaseMint:        req.BaseMint,
		QuoteMint:       req.QuoteMint,
	}, nil
}

// IsExpired reports whether the market no longer accepts orders at now.
func (m *Market) IsExpired(now int64) bool {
	return m.ExpiryTimestamp > 0 && now >= m.ExpiryTimestamp
}

// VaultBySide returns the vault receiving deposits for orders on side.
func (m *Market) VaultBySide(side protocol.Side) string {
	if side == protocol.SideBid {
		return m.QuoteVault
	}
	return m.BaseVault
}

// MintBySide returns the fee-on-transfer mint for side, if configured.
func (m *Market) MintBySide(side protocol.Side) string {
	if side == protocol.SideBid {
		return m.QuoteMint
	}
	return m.BaseMint
}

// nextOrderSeq hands out the arrival sequence for a freshly posted order.
func (m *Market) nextOrderSeq() uint64 {
	m.OrderSeq++
	return m.OrderSeq
}

// TakerFeeNative computes the taker fee on a quote notional, rounded up so
// the market never undercollects.
func (m *Market) TakerFeeNative(quoteNative uint64) (uint64, error) {
	return mulDivCeilU64(quoteNative, uint64(m.TakerFeePpm), FeeDenominator)
}

// MakerFeeNative computes the maker fee on a quote notional. Positive
// charges round up; rebates round down, so rounding always favors the
// market and fee sums stay covered by the taker fee.
func (m *Market) MakerFeeNative(quoteNative uint64) (int64, error) {
	if m.MakerFeePpm >= 0 {
		fee, err := mulDivCeilU64(quoteNative, uint64(m.MakerFeePpm), FeeDenominator)
		if err != nil {
			return 0, err
		}
		if fee > uint64(maxInt64) {
			return 0, ErrNumericOverflow
		}
		return int64(fee), nil
	}

	rebate, err := mulDivU64(quoteNative, uint64(-m.MakerFeePpm), FeeDenominator)
	if err != nil {
		return 0, err
	}
	if rebate > uint64(maxInt64) {
		return 0, ErrNumericOverflow
	}
	return -int64(rebate), nil
}

// SubtractTakerFees converts a quote budget that includes taker fees into
// the spendable quote amount: floor(x * denom / (denom + taker)).
func (m *Market) SubtractTakerFees(quoteLotsIncludingFees int64) (int64, error) {
	if quoteLotsIncludingFees < 0 {
		return 0, ErrInvalidInput
	}
	lots, err := mulDivU64(uint64(quoteLotsIncludingFees), FeeDenominator, uint64(FeeDenominator+m.TakerFeePpm))
	if err != nil {
		return 0, err
	}
	return int64(lots), nil
}

const maxInt64 = int64(^uint64(0) >> 1)
