package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// nodeClient is the subset of ethclient.Client the provider relies on.
type nodeClient interface {
	NodeReader
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

type dialFunc func(ctx context.Context, endpoint string) (nodeClient, error)

func dialEthclient(ctx context.Context, endpoint string) (nodeClient, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// RPCProviderOption customises an RPCProvider.
type RPCProviderOption func(*RPCProvider)

// withDialFunc overrides how RPC endpoints are dialed (test only).
func withDialFunc(dial dialFunc) RPCProviderOption {
	return func(p *RPCProvider) {
		if dial != nil {
			p.dial = dial
		}
	}
}

// RPCProvider is a headless wallet provider: an RPC node client plus an
// in-process signing key. It fills the role the browser extension plays for
// the web dashboard, owning nonce assignment, gas estimation and signing.
// Chain switches re-dial the endpoint registered for the target chain.
type RPCProvider struct {
	key       *ecdsa.PrivateKey
	address   common.Address
	endpoints map[uint64]string
	dial      dialFunc

	mu      sync.Mutex
	client  nodeClient
	chainID uint64

	subMu     sync.Mutex
	nextSub   int
	chainSubs map[int]func(uint64)
	acctSubs  map[int]func([]common.Address)
}

// NewRPCProvider dials the endpoint registered for chainID and readies the
// provider for signing with key.
func NewRPCProvider(ctx context.Context, key *ecdsa.PrivateKey, chainID uint64, endpoints map[uint64]string, opts ...RPCProviderOption) (*RPCProvider, error) {
	if key == nil {
		return nil, fmt.Errorf("signing key required")
	}
	p := &RPCProvider{
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		endpoints: endpoints,
		dial:      dialEthclient,
		chainID:   chainID,
		chainSubs: make(map[int]func(uint64)),
		acctSubs:  make(map[int]func([]common.Address)),
	}
	for _, opt := range opts {
		opt(p)
	}
	endpoint, ok := endpoints[chainID]
	if !ok {
		return nil, fmt.Errorf("no RPC endpoint registered for chain %d", chainID)
	}
	client, err := p.dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	p.client = client
	return p, nil
}

// Address returns the signing account.
func (p *RPCProvider) Address() common.Address {
	return p.address
}

// RequestAccounts returns the signing account. A headless provider has no
// permission prompt to reject.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

// Accounts returns the signing account without prompting.
func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

// ChainID reports the active chain.
func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

// SwitchChain re-dials against the endpoint registered for the target chain
// and emits a chain-changed event. Unknown chains fail with the standard
// unrecognized-chain provider code.
func (p *RPCProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	endpoint, ok := p.endpoints[chainID]
	if !ok {
		return &ProviderError{Code: codeUnrecognizedChain, Message: fmt.Sprintf("chain %d has no registered endpoint", chainID)}
	}
	p.mu.Lock()
	if p.chainID == chainID {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	client, err := p.dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}

	p.mu.Lock()
	old := p.client
	p.client = client
	p.chainID = chainID
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}

	p.emitChainChanged(chainID)
	return nil
}

// SendTransaction assigns nonce and gas, signs with the provider key and
// submits the transaction.
func (p *RPCProvider) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	client, chainID, err := p.current()
	if err != nil {
		return common.Hash{}, err
	}
	if req.From != (common.Address{}) && req.From != p.address {
		return common.Hash{}, fmt.Errorf("cannot sign for %s", req.From.Hex())
	}
	nonce, err := client.PendingNonceAt(ctx, p.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit, err = client.EstimateGas(ctx, ethereum.CallMsg{
			From:  p.address,
			To:    req.To,
			Value: req.Value,
			Data:  req.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
		}
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       req.To,
		Value:    req.Value,
		Data:     req.Data,
	})
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	signed, err := types.SignTx(tx, signer, p.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash(), nil
}

func (p *RPCProvider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	client, _, err := p.current()
	if err != nil {
		return nil, err
	}
	return client.CallContract(ctx, msg, blockNumber)
}

func (p *RPCProvider) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	client, _, err := p.current()
	if err != nil {
		return nil, err
	}
	return client.FilterLogs(ctx, q)
}

func (p *RPCProvider) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	client, _, err := p.current()
	if err != nil {
		return nil, err
	}
	return client.SubscribeFilterLogs(ctx, q, ch)
}

func (p *RPCProvider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	client, _, err := p.current()
	if err != nil {
		return nil, err
	}
	return client.TransactionReceipt(ctx, txHash)
}

func (p *RPCProvider) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	client, _, err := p.current()
	if err != nil {
		return nil, err
	}
	return client.HeaderByNumber(ctx, number)
}

// OnAccountsChanged registers an account listener. A headless provider only
// emits account events on Close (access revocation has no analog here).
func (p *RPCProvider) OnAccountsChanged(fn func([]common.Address)) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.acctSubs[id] = fn
	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.acctSubs, id)
	}
}

// OnChainChanged registers a chain listener fired after SwitchChain.
func (p *RPCProvider) OnChainChanged(fn func(uint64)) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.chainSubs[id] = fn
	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.chainSubs, id)
	}
}

// Close tears down the node connection and signals access revocation to
// account listeners.
func (p *RPCProvider) Close() error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()
	if client != nil {
		client.Close()
	}

	p.subMu.Lock()
	fns := make([]func([]common.Address), 0, len(p.acctSubs))
	for _, fn := range p.acctSubs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(nil)
	}
	return nil
}

func (p *RPCProvider) current() (nodeClient, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil, 0, ErrProviderClosed
	}
	return p.client, p.chainID, nil
}

func (p *RPCProvider) emitChainChanged(chainID uint64) {
	p.subMu.Lock()
	fns := make([]func(uint64), 0, len(p.chainSubs))
	for _, fn := range p.chainSubs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(chainID)
	}
}
