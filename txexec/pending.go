// Package txexec drives submitted transactions through confirmation and
// reports each step through the notification port. Nothing here retries: a
// failed operation stays failed until the user triggers it again.
package txexec

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrReverted reports an on-chain revert.
	ErrReverted = errors.New("transaction reverted")
	// ErrTimedOut reports that the caller stopped waiting. The chain is
	// unaffected; the transaction may still land.
	ErrTimedOut = errors.New("transaction wait timed out")
)

// ReceiptSource is the node surface needed to observe inclusion.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// PendingOption customises a Pending handle.
type PendingOption func(*Pending)

// WithPollInterval sets how often the receipt is polled.
func WithPollInterval(interval time.Duration) PendingOption {
	return func(p *Pending) {
		if interval > 0 {
			p.pollInterval = interval
		}
	}
}

// WithConfirmations requires the receipt's block to be buried under depth
// additional blocks before Wait resolves.
func WithConfirmations(depth uint64) PendingOption {
	return func(p *Pending) {
		p.confirmations = depth
	}
}

// Pending is the handle returned by every mutating contract wrapper.
type Pending struct {
	hash          common.Hash
	source        ReceiptSource
	pollInterval  time.Duration
	confirmations uint64
}

// NewPending wraps a submitted transaction hash.
func NewPending(hash common.Hash, source ReceiptSource, opts ...PendingOption) *Pending {
	p := &Pending{
		hash:         hash,
		source:       source,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hash returns the transaction hash.
func (p *Pending) Hash() common.Hash {
	if p == nil {
		return common.Hash{}
	}
	return p.hash
}

// Wait blocks until the transaction is included (and optionally confirmed to
// the configured depth). A reverted receipt yields ErrReverted; context expiry
// yields ErrTimedOut.
func (p *Pending) Wait(ctx context.Context) (*types.Receipt, error) {
	if p == nil || p.source == nil {
		return nil, fmt.Errorf("pending transaction not initialised")
	}
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := p.source.TransactionReceipt(ctx, p.hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, p.hash.Hex())
			}
			if p.confirmations > 0 {
				buried, err := p.buriedDeepEnough(ctx, receipt)
				if err != nil {
					return nil, err
				}
				if !buried {
					break
				}
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			// Not yet mined, keep polling.
		case err != nil:
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrTimedOut, p.hash.Hex())
		case <-ticker.C:
		}
	}
}

func (p *Pending) buriedDeepEnough(ctx context.Context, receipt *types.Receipt) (bool, error) {
	header, err := p.source.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("fetch head: %w", err)
	}
	if header == nil || header.Number == nil || receipt.BlockNumber == nil {
		return false, fmt.Errorf("block metadata unavailable")
	}
	if header.Number.Cmp(receipt.BlockNumber) < 0 {
		return false, nil
	}
	confirmed := new(big.Int).Sub(header.Number, receipt.BlockNumber)
	confirmed.Add(confirmed, big.NewInt(1))
	return confirmed.Cmp(new(big.Int).SetUint64(p.confirmations)) >= 0, nil
}
