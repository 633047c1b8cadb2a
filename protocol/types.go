package protocol

// Side represents the order side (Bid/Ask).
type Side uint8

const (
	SideBid Side = 1
	SideAsk Side = 2
)

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// OrderType is the execution policy of an incoming order.
// The set is closed: the matching loop dispatches on it exhaustively.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeImmediateOrCancel
	OrderTypeFillOrKill
	OrderTypePostOnly
	OrderTypePostOnlySlide // post only, but slide behind the best opposing price instead of rejecting
	OrderTypeMarket
	OrderTypeOraclePegged
)

// AllowsResting reports whether an unmatched remainder may be posted to the book.
func (t OrderType) AllowsResting() bool {
	switch t {
	case OrderTypeLimit, OrderTypePostOnly, OrderTypePostOnlySlide, OrderTypeOraclePegged:
		return true
	default:
		return false
	}
}

// IsPostOnly reports whether the order must never take liquidity.
func (t OrderType) IsPostOnly() bool {
	return t == OrderTypePostOnly || t == OrderTypePostOnlySlide
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeImmediateOrCancel:
		return "ioc"
	case OrderTypeFillOrKill:
		return "fok"
	case OrderTypePostOnly:
		return "post_only"
	case OrderTypePostOnlySlide:
		return "post_only_slide"
	case OrderTypeMarket:
		return "market"
	case OrderTypeOraclePegged:
		return "oracle_pegged"
	default:
		return "unknown"
	}
}

// SelfTradeBehavior controls what happens when an incoming order would match
// against a resting order of the same owner.
type SelfTradeBehavior uint8

const (
	// SelfTradeDecrementTake cancels the overlapping quantity on both orders
	// without producing a trade. This is the default.
	SelfTradeDecrementTake SelfTradeBehavior = iota
	// SelfTradeCancelProvide cancels the resting order and keeps matching.
	SelfTradeCancelProvide
	// SelfTradeAbortTransaction rejects the whole request.
	SelfTradeAbortTransaction
)

func (b SelfTradeBehavior) String() string {
	switch b {
	case SelfTradeDecrementTake:
		return "decrement_take"
	case SelfTradeCancelProvide:
		return "cancel_provide"
	case SelfTradeAbortTransaction:
		return "abort_transaction"
	default:
		return "unknown"
	}
}
