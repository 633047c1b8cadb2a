package clob

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	sum, err := addU64(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = addU64(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrNumericOverflow)

	_, err = subU64(1, 2)
	assert.ErrorIs(t, err, ErrNumericOverflow)

	_, err = mulU64(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrNumericOverflow)

	// 128-bit intermediate: the product overflows 64 bits but the quotient fits.
	quo, err := mulDivU64(math.MaxUint64, 1_000, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64/10), quo)

	_, err = mulDivU64(1, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMulDivRounding(t *testing.T) {
	down, err := mulDivU64(10, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), down)

	up, err := mulDivCeilU64(10, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), up)

	exact, err := mulDivCeilU64(9, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), exact)
}

func TestLotConversions(t *testing.T) {
	lots := LotParams{BaseLotSize: 100, QuoteLotSize: 10}

	base, err := lots.BaseNative(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), base)

	quote, err := lots.QuoteNative(100, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), quote)

	assert.Equal(t, int64(5), lots.BaseLots(599), "rounds down")
	assert.Equal(t, int64(300), lots.QuoteLots(3000))

	_, err = lots.BaseNative(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = lots.QuoteNative(math.MaxInt64, 2)
	assert.ErrorIs(t, err, ErrNumericOverflow)
}

func TestPriceLotsFromDecimal(t *testing.T) {
	lots := LotParams{BaseLotSize: 100, QuoteLotSize: 10}

	// 10 quote per base unit: 10 * 100 / 10 = 100 price lots.
	priceLots, err := lots.PriceLotsFromDecimal(decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(100), priceLots)

	// Fractional prices floor to the containing lot.
	priceLots, err = lots.PriceLotsFromDecimal(decimal.RequireFromString("10.09"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), priceLots)

	_, err = lots.PriceLotsFromDecimal(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Roundtrip through PriceDecimal is exact for whole lots.
	assert.True(t, lots.PriceDecimal(100).Equal(decimal.NewFromInt(10)))
}

func TestUIAmountConversions(t *testing.T) {
	assert.True(t, UIAmount(1_500_000, 6).Equal(decimal.RequireFromString("1.5")))

	native, err := NativeAmount(decimal.RequireFromString("1.5"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), native)

	_, err = NativeAmount(decimal.RequireFromString("0.0000001"), 6)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NativeAmount(decimal.NewFromInt(-1), 6)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarketFeeMath(t *testing.T) {
	m := &Market{
		LotParams:   LotParams{BaseLotSize: 100, QuoteLotSize: 10},
		MakerFeePpm: 200,
		TakerFeePpm: 400,
	}

	fee, err := m.TakerFeeNative(3000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fee, "ceil(1.2)")

	makerFee, err := m.MakerFeeNative(3000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), makerFee, "ceil(0.6)")

	m.MakerFeePpm = -200
	makerFee, err = m.MakerFeeNative(3000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), makerFee, "rebates floor toward zero")
	makerFee, err = m.MakerFeeNative(100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(-20), makerFee)

	// Budget carve-out: floor(x * 1e6 / (1e6 + taker)).
	spendable, err := m.SubtractTakerFees(250)
	require.NoError(t, err)
	assert.Equal(t, int64(249), spendable)

	_, err = m.SubtractTakerFees(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
