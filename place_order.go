package clob

import (
	"context"

	"go.uber.org/zap"

	"github.com/orderbook-labs/clob/protocol"
)

// OrderOutcome reports what a place order call did. OrderID is set only when
// a remainder was posted to the book.
type OrderOutcome struct {
	OrderID *OrderID `json:"order_id,omitempty"`

	TotalBaseTakenNative  uint64 `json:"total_base_taken_native"`
	TotalQuoteTakenNative uint64 `json:"total_quote_taken_native"`
	PostedBaseNative      uint64 `json:"posted_base_native"`
	PostedQuoteNative     uint64 `json:"posted_quote_native"`
	TakerFeesNative       uint64 `json:"taker_fees_native"`
	MakerFeesNative       uint64 `json:"maker_fees_native"` // locked for the posted remainder
	DepositNative         uint64 `json:"deposit_native"`

	FilledBaseLots int64 `json:"filled_base_lots"`
}

// orderPlan is everything PlaceOrder computes before touching state: the
// match plan, the posting decision and the fully checked deposit math.
// Once the plan exists, the only fallible step left is the bridge transfer.
type orderPlan struct {
	match *matchPlan

	priceLots         int64
	postedBaseLots    int64
	postedBaseNative  uint64
	postedQuoteNative uint64
	postedFeeNative   uint64 // locked maker fee for the posted remainder

	requiredNative uint64
	freeUsedNative uint64
	depositNative  uint64

	// Deposit totals after commit, pre-checked for overflow.
	newBaseDepositTotal  uint64
	newQuoteDepositTotal uint64
}

// PlaceOrder runs the full order flow: validate, resolve the price, plan the
// match, move the deposit over the settlement bridge, then commit. State is
// mutated only after the transfer succeeds, so a failed call leaves the
// market exactly as it was.
func (r *MarketRuntime) PlaceOrder(ctx context.Context, req *protocol.PlaceOrderRequest) (*OrderOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}
	if r.market.IsExpired(now) {
		return nil, ErrMarketExpired
	}
	if req.Vault != "" && req.Vault != r.market.VaultBySide(req.Side) {
		return nil, ErrInvalidVault
	}
	if req.ExpiryTimestamp > 0 && req.ExpiryTimestamp <= now {
		// Already expired on arrival: nothing to do, mirror a zero fill.
		logger.Debug("order expired on arrival", marketField(r.market), zap.String("owner", req.Owner))
		return &OrderOutcome{}, nil
	}

	priceLots, err := r.resolvePrice(req)
	if err != nil {
		r.publishReject(req, err, now)
		return nil, err
	}

	order := &incomingOrder{
		owner:         req.Owner,
		side:          req.Side,
		orderType:     req.OrderType,
		priceLots:     priceLots,
		maxBaseLots:   req.MaxBaseLots,
		maxQuoteLots:  req.MaxQuoteLotsIncludingFees,
		clientOrderID: req.ClientOrderID,
		selfTrade:     req.SelfTradeBehavior,
		expiryTs:      req.ExpiryTimestamp,
	}
	if req.Side == protocol.SideBid {
		if order.maxQuoteLots, err = r.market.SubtractTakerFees(req.MaxQuoteLotsIncludingFees); err != nil {
			return nil, err
		}
	}

	plan, err := r.planOrder(order, now)
	if err != nil {
		r.publishReject(req, err, now)
		return nil, err
	}

	if plan.depositNative > 0 {
		amount := plan.depositNative
		if mint := r.market.MintBySide(req.Side); mint != "" {
			if amount, err = r.bridge.AmountWithFee(ctx, mint, plan.depositNative); err != nil {
				return nil, err
			}
		}
		err = r.bridge.Transfer(ctx, TransferRequest{
			From:      req.Owner,
			To:        r.market.VaultBySide(req.Side),
			Authority: req.Owner,
			Mint:      r.market.MintBySide(req.Side),
			Amount:    amount,
		})
		if err != nil {
			return nil, err
		}
	}

	return r.commitOrder(order, plan, now), nil
}

func validatePlaceOrder(req *protocol.PlaceOrderRequest) error {
	if req.Owner == "" {
		return ErrInvalidInput
	}
	if req.Side != protocol.SideBid && req.Side != protocol.SideAsk {
		return ErrInvalidInput
	}
	if req.OrderType > protocol.OrderTypeOraclePegged {
		return ErrInvalidInput
	}
	if req.SelfTradeBehavior > protocol.SelfTradeAbortTransaction {
		return ErrInvalidInput
	}
	if req.MaxBaseLots <= 0 || req.MaxQuoteLotsIncludingFees <= 0 {
		return ErrInvalidInput
	}
	return nil
}

// resolvePrice turns the request into a concrete limit price: market orders
// get the most permissive price, pegged orders derive from the oracle, and
// everything else is checked against the oracle price band.
func (r *MarketRuntime) resolvePrice(req *protocol.PlaceOrderRequest) (int64, error) {
	if req.OrderType == protocol.OrderTypeMarket {
		if req.Side == protocol.SideBid {
			return maxPriceLots, nil
		}
		return 1, nil
	}

	var view *OracleView
	needsOracle := req.OrderType == protocol.OrderTypeOraclePegged || r.cfg.PriceBandMultiple > 0
	if needsOracle {
		if r.oracle == nil {
			if req.OrderType == protocol.OrderTypeOraclePegged {
				return 0, ErrOracleUnavailable
			}
		} else {
			var err error
			view, err = snapshotOracle(r.oracle, r.market.LotParams, r.clock.Slot(), r.cfg.OracleMaxStalenessSlots)
			if err != nil {
				return 0, err
			}
		}
	}

	priceLots := req.PriceLots
	if req.OrderType == protocol.OrderTypeOraclePegged {
		priceLots = view.PriceLots + req.PegOffsetLots
		if req.PegLimitLots > 0 {
			if req.Side == protocol.SideBid && priceLots > req.PegLimitLots {
				priceLots = req.PegLimitLots
			}
			if req.Side == protocol.SideAsk && priceLots < req.PegLimitLots {
				priceLots = req.PegLimitLots
			}
		}
		if priceLots < 1 {
			return 0, ErrPriceOutOfRange
		}
	}

	if priceLots < 1 {
		return 0, ErrInvalidInput
	}
	if !view.withinBand(priceLots, r.cfg.PriceBandMultiple) {
		return 0, ErrPriceOutOfRange
	}

	// Post-only orders that would cross either reject or slide to the top
	// of their own side, one tick away from the best opposing price.
	if req.OrderType.IsPostOnly() && r.book.IsCrossed(req.Side, priceLots) {
		if req.OrderType == protocol.OrderTypePostOnly {
			return 0, ErrWouldMatch
		}
		if req.Side == protocol.SideBid {
			priceLots = r.book.BestAsk().PriceLots - 1
		} else {
			priceLots = r.book.BestBid().PriceLots + 1
		}
		if priceLots < 1 {
			return 0, ErrWouldMatch
		}
	}

	return priceLots, nil
}

// planOrder stages everything PlaceOrder will do, with every arithmetic step
// checked. A non-nil error here means nothing was mutated.
func (r *MarketRuntime) planOrder(order *incomingOrder, now int64) (*orderPlan, error) {
	iterLimit := r.cfg.IterationLimit
	if iterLimit <= 0 {
		iterLimit = DefaultConfig().IterationLimit
	}
	match, err := planMatch(r.market, r.book, order, now, iterLimit)
	if err != nil {
		return nil, err
	}
	if order.orderType == protocol.OrderTypeFillOrKill && match.remainingBaseLots > 0 {
		return nil, ErrWouldNotFill
	}

	plan := &orderPlan{match: match, priceLots: order.priceLots}

	// Post the remainder only when the walk stopped because prices no
	// longer cross. A remainder left by the iteration limit would cross
	// the book if posted, so it is dropped instead.
	if order.orderType.AllowsResting() && !match.limitExhausted && match.remainingBaseLots > 0 {
		plan.postedBaseLots = match.remainingBaseLots
		if order.side == protocol.SideBid {
			if byQuote := match.remainingQuoteLots / order.priceLots; byQuote < plan.postedBaseLots {
				plan.postedBaseLots = byQuote
			}
		}
	}

	pushes := match.eventCount()
	if plan.postedBaseLots > 0 {
		own := r.book.sideOf(order.side)
		if own.full() {
			worst := own.peekWorst()
			better := order.priceLots > worst.PriceLots
			if order.side == protocol.SideAsk {
				better = order.priceLots < worst.PriceLots
			}
			if !better {
				return nil, ErrOrderBookFull
			}
			pushes++ // the evicted order's out event
		}

		if plan.postedBaseNative, err = r.market.BaseNative(plan.postedBaseLots); err != nil {
			return nil, err
		}
		if plan.postedQuoteNative, err = r.market.QuoteNative(order.priceLots, plan.postedBaseLots); err != nil {
			return nil, err
		}
		if order.side == protocol.SideBid && r.market.MakerFeePpm > 0 {
			fee, err := r.market.MakerFeeNative(plan.postedQuoteNative)
			if err != nil {
				return nil, err
			}
			plan.postedFeeNative = uint64(fee)
		}
	}

	if err = planEventCapacity(r.events, order.owner, pushes); err != nil {
		return nil, err
	}

	// Deposit math per side. The trader's free balance is consumed first;
	// only the shortfall crosses the bridge.
	_, pos := r.ledger.Open(order.owner)
	var free uint64
	if order.side == protocol.SideBid {
		free = pos.QuoteFreeNative
		required := match.totalQuoteTakenNative
		for _, add := range []uint64{plan.postedQuoteNative, match.takerFeesNative, plan.postedFeeNative} {
			if required, err = addU64(required, add); err != nil {
				return nil, err
			}
		}
		plan.requiredNative = required
	} else {
		free = pos.BaseFreeNative
		if plan.requiredNative, err = addU64(match.totalBaseTakenNative, plan.postedBaseNative); err != nil {
			return nil, err
		}
	}

	plan.freeUsedNative = minU64(plan.requiredNative, free)
	plan.depositNative = plan.requiredNative - plan.freeUsedNative

	plan.newBaseDepositTotal = r.market.BaseDepositTotal
	plan.newQuoteDepositTotal = r.market.QuoteDepositTotal
	if order.side == protocol.SideBid {
		if plan.newQuoteDepositTotal, err = addU64(r.market.QuoteDepositTotal, plan.depositNative); err != nil {
			return nil, err
		}
	} else {
		if plan.newBaseDepositTotal, err = addU64(r.market.BaseDepositTotal, plan.depositNative); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// commitOrder applies a fully planned order. Infallible: every amount was
// checked while planning and capacity was verified, including evictions.
func (r *MarketRuntime) commitOrder(order *incomingOrder, plan *orderPlan, now int64) *OrderOutcome {
	match := plan.match

	// Taker fees accrue before the fill events are pushed: a forced
	// settlement of a rebate-carrying fill draws on them immediately.
	r.market.FeesAccrued += match.takerFeesNative

	commitMatch(r.market, r.book, r.events, r.ledger, order, match, now)

	_, pos := r.ledger.Open(order.owner)
	if order.side == protocol.SideBid {
		pos.QuoteFreeNative -= plan.freeUsedNative
		pos.QuoteLockedNative += plan.postedQuoteNative + plan.postedFeeNative
		pos.BaseFreeNative += match.totalBaseTakenNative
	} else {
		pos.BaseFreeNative -= plan.freeUsedNative
		pos.BaseLockedNative += plan.postedBaseNative
		pos.QuoteFreeNative += match.totalQuoteTakenNative - match.takerFeesNative
	}
	pos.TakerVolumeNative += match.totalQuoteTakenNative
	r.market.BaseDepositTotal = plan.newBaseDepositTotal
	r.market.QuoteDepositTotal = plan.newQuoteDepositTotal

	outcome := &OrderOutcome{
		TotalBaseTakenNative:  match.totalBaseTakenNative,
		TotalQuoteTakenNative: match.totalQuoteTakenNative,
		PostedBaseNative:      plan.postedBaseNative,
		PostedQuoteNative:     plan.postedQuoteNative,
		TakerFeesNative:       match.takerFeesNative,
		MakerFeesNative:       plan.postedFeeNative,
		DepositNative:         plan.depositNative,
		FilledBaseLots:        match.totalBaseTakenLots,
	}

	if plan.postedBaseLots > 0 {
		id := newOrderID(plan.priceLots, r.market.nextOrderSeq())
		_, evicted, err := r.book.insertOrEvict(RestingOrder{
			ID:              id,
			Owner:           order.owner,
			Side:            order.side,
			PriceLots:       plan.priceLots,
			BaseLots:        plan.postedBaseLots,
			ClientOrderID:   order.clientOrderID,
			Timestamp:       now,
			ExpiryTimestamp: order.expiryTs,
			LockedFeeNative: plan.postedFeeNative,
		})
		if err != nil {
			// Planning verified capacity or a strictly better price.
			logger.Error("post after match failed", marketField(r.market), zap.Error(err))
		} else {
			if evicted != nil {
				pushEvent(r.market, r.events, r.ledger, order.owner, Event{
					Type:             EventTypeOut,
					Timestamp:        now,
					Owner:            evicted.Owner,
					OrderID:          evicted.ID,
					Side:             evicted.Side,
					QtyLots:          evicted.BaseLots,
					OutPrice:         evicted.PriceLots,
					Reason:           OutReasonEvicted,
					OrderRemoved:     true,
					LockedFeeRelease: evicted.LockedFeeNative,
				})
				r.publishOut(evicted, OutReasonEvicted, now)
			}
			if order.side == protocol.SideBid {
				pos.BidsCount++
			} else {
				pos.AsksCount++
			}
			outcome.OrderID = &id
		}
	}

	// Growing the queue counts against the taker, mirroring the penalty on
	// traders whose events get force-settled.
	if match.eventCount() > 0 {
		pos.PenaltyCount++
	}

	r.publishOrder(order, plan, outcome, now)
	return outcome
}
