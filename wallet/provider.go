// Package wallet owns the connection to a wallet provider: account and chain
// state, connect/disconnect/network-switch, and the provider event plumbing
// the rest of the client layer subscribes to.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxRequest mirrors the eth_sendTransaction parameter object. The provider
// owns nonce assignment, gas estimation and signing.
type TxRequest struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}

// NodeReader is the read-only node surface the contract and event layers use.
type NodeReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Provider is the wallet boundary, shaped after the EIP-1193 injected
// provider: account and chain management plus transaction submission, with
// listener registration for account and chain changes.
type Provider interface {
	NodeReader

	// RequestAccounts prompts for wallet authorization and returns the
	// accounts the user approved.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// ChainID reports the provider's active chain.
	ChainID(ctx context.Context) (uint64, error)
	// SwitchChain asks the provider to activate another chain. Providers
	// report unknown chains via ProviderError code 4902.
	SwitchChain(ctx context.Context, chainID uint64) error
	// SendTransaction signs and submits a transaction, returning its hash.
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)

	// OnAccountsChanged and OnChainChanged register change listeners and
	// return a removal func. An empty accounts slice means the wallet
	// revoked access.
	OnAccountsChanged(fn func(accounts []common.Address)) (remove func())
	OnChainChanged(fn func(chainID uint64)) (remove func())

	Close() error
}
