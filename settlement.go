package clob

import (
	"context"
	"fmt"
	"sync"
)

// TransferRequest describes one token movement requested from the
// settlement bridge. Amount is in native units of the transferred token.
type TransferRequest struct {
	From      string
	To        string
	Authority string
	Mint      string // empty for plain assets
	Amount    uint64
	Decimals  uint8
}

// SettlementBridge executes the actual value movement once an accounting
// delta has been computed. The engine never calls it with an unchecked
// amount: all lot and fee arithmetic is resolved first.
type SettlementBridge interface {
	Transfer(ctx context.Context, req TransferRequest) error

	// AmountWithFee grosses up a requested amount for fee-on-transfer mints
	// so that the receiving vault nets exactly amount.
	AmountWithFee(ctx context.Context, mint string, amount uint64) (uint64, error)
}

// MemoryBridge is an in-process SettlementBridge keeping token balances in a
// map. It backs the test suites and doubles as a reference implementation of
// the bridge contract, including fee-on-transfer gross-up.
type MemoryBridge struct {
	mu       sync.Mutex
	balances map[string]uint64 // account -> native amount
	// transferFeePpm per mint; the fee is withheld from the transferred
	// amount, mimicking fee-on-transfer token programs.
	transferFeePpm map[string]uint64
}

func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{
		balances:       make(map[string]uint64),
		transferFeePpm: make(map[string]uint64),
	}
}

// Fund credits an account out of thin air. Test setup only.
func (b *MemoryBridge) Fund(account string, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
}

// SetTransferFee configures mint as fee-on-transfer with the given rate.
func (b *MemoryBridge) SetTransferFee(mint string, ppm uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transferFeePpm[mint] = ppm
}

// Balance returns the current holding of an account.
func (b *MemoryBridge) Balance(account string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// Transfer implements SettlementBridge.
func (b *MemoryBridge) Transfer(_ context.Context, req TransferRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.Amount == 0 {
		return nil
	}
	if b.balances[req.From] < req.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrTransferFailed, req.From, b.balances[req.From], req.Amount)
	}

	received := req.Amount
	if ppm := b.transferFeePpm[req.Mint]; ppm > 0 && req.Mint != "" {
		fee, err := mulDivCeilU64(req.Amount, ppm, FeeDenominator)
		if err != nil {
			return err
		}
		received = req.Amount - fee
	}

	b.balances[req.From] -= req.Amount
	b.balances[req.To] += received
	return nil
}

// AmountWithFee implements SettlementBridge: the smallest send amount whose
// net after the mint's transfer fee is at least amount.
func (b *MemoryBridge) AmountWithFee(_ context.Context, mint string, amount uint64) (uint64, error) {
	b.mu.Lock()
	ppm := b.transferFeePpm[mint]
	b.mu.Unlock()

	if ppm == 0 || amount == 0 {
		return amount, nil
	}
	if ppm >= FeeDenominator {
		return 0, ErrInvalidInput
	}

	gross, err := mulDivCeilU64(amount, FeeDenominator, FeeDenominator-ppm)
	if err != nil {
		return 0, err
	}
	// Ceil rounding of the fee on the gross amount can still undershoot by
	// one unit; bump until the net covers the request.
	for {
		fee, err := mulDivCeilU64(gross, ppm, FeeDenominator)
		if err != nil {
			return 0, err
		}
		if gross-fee >= amount {
			return gross, nil
		}
		gross++
	}
}
