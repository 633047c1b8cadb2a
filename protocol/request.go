package protocol

// PlaceOrderRequest is the input for placing a new order. Prices and
// quantities are expressed in market lots; the engine converts to native
// token amounts using the market's lot sizes.
type PlaceOrderRequest struct {
	Owner     string    `json:"owner"`
	Side      Side      `json:"side"`
	OrderType OrderType `json:"order_type"`

	// PriceLots is the limit price in quote lots per base lot. Ignored for
	// market orders. For oracle pegged orders it is unused; see PegOffsetLots.
	PriceLots int64 `json:"price_lots"`

	// PegOffsetLots shifts the oracle reference price for oracle pegged
	// orders. PegLimitLots is the worst price the pegged order may take;
	// zero means no bound.
	PegOffsetLots int64 `json:"peg_offset_lots,omitempty"`
	PegLimitLots  int64 `json:"peg_limit_lots,omitempty"`

	MaxBaseLots               int64 `json:"max_base_lots"`
	MaxQuoteLotsIncludingFees int64 `json:"max_quote_lots_including_fees"`

	ClientOrderID     uint64            `json:"client_order_id"`
	SelfTradeBehavior SelfTradeBehavior `json:"self_trade_behavior"`

	// ExpiryTimestamp is the unix time after which the order is dead.
	// Zero means good till cancelled.
	ExpiryTimestamp int64 `json:"expiry_timestamp,omitempty"`

	// Vault, when set, must match the market vault funds are deposited to
	// for this side. Guards against a client wiring the wrong account.
	Vault string `json:"vault,omitempty"`
}

// CancelOrderRequest removes a single resting order, addressed either by the
// engine-assigned order id (hex string) or by (owner, client order id).
type CancelOrderRequest struct {
	Owner         string `json:"owner"`
	OrderID       string `json:"order_id,omitempty"`
	ClientOrderID uint64 `json:"client_order_id,omitempty"`
}

// CreateMarketRequest declares a new market. Capacities are fixed for the
// lifetime of the market and never resized.
type CreateMarketRequest struct {
	MarketID     string `json:"market_id"`
	BaseLotSize  uint64 `json:"base_lot_size"`
	QuoteLotSize uint64 `json:"quote_lot_size"`

	// Fee rates in parts per million of quote notional. MakerFeePpm may be
	// negative (rebate).
	MakerFeePpm int64 `json:"maker_fee_ppm"`
	TakerFeePpm int64 `json:"taker_fee_ppm"`

	// ExpiryTimestamp is the unix time at which the market stops accepting
	// orders. Zero means perpetual.
	ExpiryTimestamp int64 `json:"expiry_timestamp,omitempty"`

	BookCapacity       int `json:"book_capacity,omitempty"`
	EventQueueCapacity int `json:"event_queue_capacity,omitempty"`

	BaseVault  string `json:"base_vault,omitempty"`
	QuoteVault string `json:"quote_vault,omitempty"`

	// BaseMint/QuoteMint are set only for fee-on-transfer assets; the
	// settlement bridge grosses deposits up through AmountWithFee.
	BaseMint  string `json:"base_mint,omitempty"`
	QuoteMint string `json:"quote_mint,omitempty"`
}

// DepthItem is one aggregated price level.
type DepthItem struct {
	PriceLots int64 `json:"price_lots"`
	BaseLots  int64 `json:"base_lots"`
	Count     int64 `json:"count"`
}

// GetDepthResponse is the aggregated view of one book.
type GetDepthResponse struct {
	SequenceID uint64       `json:"sequence_id"`
	Bids       []*DepthItem `json:"bids"`
	Asks       []*DepthItem `json:"asks"`
}
