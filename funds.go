package clob

import (
	"context"

	"go.uber.org/zap"
)

// Deposit moves tokens from the owner into the market vaults and credits the
// owner's free balances. Totals are overflow-checked before the transfer so
// the bridge is never asked to move an amount the books cannot absorb.
func (r *MarketRuntime) Deposit(ctx context.Context, owner string, baseNative, quoteNative uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner == "" || (baseNative == 0 && quoteNative == 0) {
		return ErrInvalidInput
	}

	if baseNative > 0 {
		if err := r.depositOne(ctx, owner, r.market.BaseVault, r.market.BaseMint, baseNative, false); err != nil {
			return err
		}
	}
	if quoteNative > 0 {
		if err := r.depositOne(ctx, owner, r.market.QuoteVault, r.market.QuoteMint, quoteNative, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *MarketRuntime) depositOne(ctx context.Context, owner, vault, mint string, amount uint64, quote bool) error {
	total := r.market.BaseDepositTotal
	if quote {
		total = r.market.QuoteDepositTotal
	}
	newTotal, err := addU64(total, amount)
	if err != nil {
		return err
	}

	send := amount
	if mint != "" {
		if send, err = r.bridge.AmountWithFee(ctx, mint, amount); err != nil {
			return err
		}
	}
	err = r.bridge.Transfer(ctx, TransferRequest{
		From:      owner,
		To:        vault,
		Authority: owner,
		Mint:      mint,
		Amount:    send,
	})
	if err != nil {
		return err
	}

	_, pos := r.ledger.Open(owner)
	if quote {
		pos.QuoteFreeNative += amount
		r.market.QuoteDepositTotal = newTotal
	} else {
		pos.BaseFreeNative += amount
		r.market.BaseDepositTotal = newTotal
	}
	return nil
}

// Withdraw moves free balances from the market vaults back to the owner.
// Each asset settles independently: a failed quote transfer never unwinds a
// base transfer that already happened.
func (r *MarketRuntime) Withdraw(ctx context.Context, owner string, baseNative, quoteNative uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.withdrawLocked(ctx, owner, baseNative, quoteNative)
}

// SettleFunds withdraws the owner's entire free balance on both sides.
func (r *MarketRuntime) SettleFunds(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.ledger.Get(owner)
	if pos == nil {
		return ErrNotFound
	}
	return r.withdrawLocked(ctx, owner, pos.BaseFreeNative, pos.QuoteFreeNative)
}

func (r *MarketRuntime) withdrawLocked(ctx context.Context, owner string, baseNative, quoteNative uint64) error {
	if owner == "" {
		return ErrInvalidInput
	}
	pos := r.ledger.Get(owner)
	if pos == nil {
		return ErrNotFound
	}
	if baseNative > pos.BaseFreeNative || quoteNative > pos.QuoteFreeNative {
		return ErrInsufficientFunds
	}

	if baseNative > 0 {
		err := r.bridge.Transfer(ctx, TransferRequest{
			From:      r.market.BaseVault,
			To:        owner,
			Authority: r.market.BaseVault,
			Mint:      r.market.BaseMint,
			Amount:    baseNative,
		})
		if err != nil {
			return err
		}
		pos.BaseFreeNative -= baseNative
		r.market.BaseDepositTotal -= baseNative
	}

	if quoteNative > 0 {
		err := r.bridge.Transfer(ctx, TransferRequest{
			From:      r.market.QuoteVault,
			To:        owner,
			Authority: r.market.QuoteVault,
			Mint:      r.market.QuoteMint,
			Amount:    quoteNative,
		})
		if err != nil {
			return err
		}
		pos.QuoteFreeNative -= quoteNative
		r.market.QuoteDepositTotal -= quoteNative
	}

	return nil
}

// SweepFees transfers the sweepable accrued quote fees out of the market
// vault to the receiver. Rebates owed to makers of fills still in the event
// queue stay behind.
func (r *MarketRuntime) SweepFees(ctx context.Context, receiver string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if receiver == "" {
		return 0, ErrInvalidInput
	}
	amount := r.market.FeesAccrued - r.market.PendingRebates
	if amount == 0 {
		return 0, nil
	}

	err := r.bridge.Transfer(ctx, TransferRequest{
		From:      r.market.QuoteVault,
		To:        receiver,
		Authority: r.market.QuoteVault,
		Mint:      r.market.QuoteMint,
		Amount:    amount,
	})
	if err != nil {
		return 0, err
	}

	r.market.FeesAccrued -= amount
	r.market.QuoteDepositTotal -= amount
	logger.Info("fees swept", marketField(r.market), zap.Uint64("amount", amount), zap.String("receiver", receiver))
	return amount, nil
}
