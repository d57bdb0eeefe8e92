package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"veloracloud/txexec"
	"veloracloud/units"
	"veloracloud/wallet"
)

// ErrInvalidInput is returned when an address or amount fails validation
// before any network call is attempted.
var ErrInvalidInput = errors.New("invalid input")

// Backend is the node surface a bound contract needs: reads, submission and
// receipt observation. wallet.Provider satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error)
	txexec.ReceiptSource
}

// SessionState is the slice of the wallet session the handles consult.
type SessionState interface {
	IsConnected() bool
	Account() (common.Address, bool)
}

// bound carries the pieces shared by every contract handle. Handle creation is
// local binding only; the first network failure surfaces on the first call.
type bound struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	session SessionState
}

func (b *bound) ready() error {
	if b == nil || b.backend == nil || b.session == nil {
		return wallet.ErrNotConnected
	}
	if !b.session.IsConnected() {
		return wallet.ErrNotConnected
	}
	return nil
}

func (b *bound) call(ctx context.Context, method string, args ...any) ([]any, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &b.address, Data: data}
	if account, ok := b.session.Account(); ok {
		msg.From = account
	}
	res, err := b.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := b.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return out, nil
}

func (b *bound) transact(ctx context.Context, value *big.Int, method string, args ...any) (*txexec.Pending, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	account, ok := b.session.Account()
	if !ok {
		return nil, wallet.ErrNotConnected
	}
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	hash, err := b.backend.SendTransaction(ctx, wallet.TxRequest{
		From:  account,
		To:    &b.address,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", method, err)
	}
	return txexec.NewPending(hash, b.backend), nil
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: malformed address %q", ErrInvalidInput, raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(raw string) (*big.Int, error) {
	value, err := units.ParsePositive(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return value, nil
}

func requireID(kind, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, kind)
	}
	return trimmed, nil
}

// toStruct copies an unpacked anonymous tuple into the typed representation.
func toStruct[T any](value any) T {
	return *abi.ConvertType(value, new(T)).(*T)
}
