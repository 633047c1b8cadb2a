package clob

import (
	"math"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Checked integer helpers. All matching and settlement arithmetic goes
// through these: overflow is always fatal to the request, never saturated,
// because a wrapped amount would corrupt the deposit totals.

func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrNumericOverflow
	}
	return sum, nil
}

func subU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrNumericOverflow
	}
	return diff, nil
}

func mulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrNumericOverflow
	}
	return lo, nil
}

// mulDivU64 computes a*b/den with a 128-bit intermediate, rounding down.
func mulDivU64(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrInvalidInput
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrNumericOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// mulDivCeilU64 computes a*b/den rounding up.
func mulDivCeilU64(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrInvalidInput
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrNumericOverflow
	}
	quo, rem := bits.Div64(hi, lo, den)
	if rem > 0 {
		return addU64(quo, 1)
	}
	return quo, nil
}

func mulI64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/b != a {
		return 0, ErrNumericOverflow
	}
	return prod, nil
}

// LotParams translates between native token amounts and market lots.
// Native amounts are always integer multiples of the lot size, so the
// conversion is exact in both directions.
type LotParams struct {
	BaseLotSize  uint64 `json:"base_lot_size"`
	QuoteLotSize uint64 `json:"quote_lot_size"`
}

// BaseNative converts base lots to the native base token amount.
func (p LotParams) BaseNative(baseLots int64) (uint64, error) {
	if baseLots < 0 {
		return 0, ErrInvalidInput
	}
	return mulU64(uint64(baseLots), p.BaseLotSize)
}

// QuoteNative converts a (price, quantity) pair to the native quote amount:
// priceLots * baseLots * quoteLotSize.
func (p LotParams) QuoteNative(priceLots, baseLots int64) (uint64, error) {
	if priceLots < 0 || baseLots < 0 {
		return 0, ErrInvalidInput
	}
	quoteLots, err := mulI64(priceLots, baseLots)
	if err != nil {
		return 0, err
	}
	return mulU64(uint64(quoteLots), p.QuoteLotSize)
}

// BaseLots converts a native base amount to lots, rounding down.
func (p LotParams) BaseLots(native uint64) int64 {
	lots := native / p.BaseLotSize
	if lots > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lots)
}

// QuoteLots converts a native quote amount to lots, rounding down.
func (p LotParams) QuoteLots(native uint64) int64 {
	lots := native / p.QuoteLotSize
	if lots > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lots)
}

// PriceLotsFromDecimal converts a native-unit price (quote per base) into
// price lots, rounding down. This is the boundary where oracle prices enter
// the integer domain; everything past it is exact.
func (p LotParams) PriceLotsFromDecimal(price decimal.Decimal) (int64, error) {
	if price.Sign() <= 0 {
		return 0, ErrInvalidInput
	}

	lots := price.
		Mul(decimal.NewFromUint64(p.BaseLotSize)).
		Div(decimal.NewFromUint64(p.QuoteLotSize)).
		Floor()

	if !lots.IsInteger() || lots.Cmp(decimal.NewFromInt(math.MaxInt64)) > 0 {
		return 0, ErrNumericOverflow
	}
	return lots.IntPart(), nil
}

// PriceDecimal converts price lots back to a native-unit decimal price.
func (p LotParams) PriceDecimal(priceLots int64) decimal.Decimal {
	return decimal.NewFromInt(priceLots).
		Mul(decimal.NewFromUint64(p.QuoteLotSize)).
		Div(decimal.NewFromUint64(p.BaseLotSize))
}

// UIAmount renders a native amount with the given token decimals.
func UIAmount(native uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromUint64(native).Shift(-decimals)
}

// NativeAmount converts a UI amount back to native units. The amount must be
// exactly representable.
func NativeAmount(amount decimal.Decimal, decimals int32) (uint64, error) {
	shifted := amount.Shift(decimals)
	if !shifted.IsInteger() || shifted.Sign() < 0 {
		return 0, ErrInvalidInput
	}
	if shifted.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, ErrNumericOverflow
	}
	return shifted.BigInt().Uint64(), nil
}
