package clob

import (
	"fmt"

	"github.com/orderbook-labs/clob/protocol"
)

// OrderID is the 128-bit identity of a resting order: the price lots in the
// high word and the side-wide arrival sequence number in the low word. The
// sequence number is globally monotonic per market, which makes the id a
// deterministic price-time tie-break key.
type OrderID struct {
	PriceData uint64 `json:"price_data"`
	Seq       uint64 `json:"seq"`
}

func newOrderID(priceLots int64, seq uint64) OrderID {
	return OrderID{PriceData: uint64(priceLots), Seq: seq}
}

// PriceLots recovers the resting price encoded in the id.
func (id OrderID) PriceLots() int64 {
	return int64(id.PriceData)
}

func (id OrderID) IsZero() bool {
	return id.PriceData == 0 && id.Seq == 0
}

// String renders the id as a 32-digit hex literal.
func (id OrderID) String() string {
	return fmt.Sprintf("%016x%016x", id.PriceData, id.Seq)
}

// ParseOrderID parses the hex form produced by String.
func ParseOrderID(s string) (OrderID, error) {
	if len(s) != 32 {
		return OrderID{}, ErrInvalidInput
	}
	var id OrderID
	if _, err := fmt.Sscanf(s[:16], "%016x", &id.PriceData); err != nil {
		return OrderID{}, ErrInvalidInput
	}
	if _, err := fmt.Sscanf(s[16:], "%016x", &id.Seq); err != nil {
		return OrderID{}, ErrInvalidInput
	}
	return id, nil
}

// RestingOrder is an order (or its remainder) stored in the book. It is
// owned exclusively by the book side; the trader is referenced by id only
// and resolved through the ledger.
type RestingOrder struct {
	ID            OrderID       `json:"id"`
	Owner         string        `json:"owner"`
	Side          protocol.Side `json:"side"`
	PriceLots     int64         `json:"price_lots"`
	BaseLots      int64         `json:"base_lots"` // remaining quantity
	ClientOrderID uint64        `json:"client_order_id"`

	// Timestamp is the unix time the order was posted; ExpiryTimestamp of
	// zero means the order never expires.
	Timestamp       int64 `json:"timestamp"`
	ExpiryTimestamp int64 `json:"expiry_timestamp,omitempty"`

	// LockedFeeNative is the maker fee locked for the unfilled remainder.
	// Non-zero only for bids on markets with a positive maker rate.
	LockedFeeNative uint64 `json:"locked_fee_native,omitempty"`
}

// IsExpired reports whether the order is past its expiry at now.
func (o *RestingOrder) IsExpired(now int64) bool {
	return o.ExpiryTimestamp > 0 && now >= o.ExpiryTimestamp
}
