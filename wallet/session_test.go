package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"veloracloud/notify"
)

type fakeProvider struct {
	accounts    []common.Address
	chainID     uint64
	requestErr  error
	switchErr   error
	requests    int
	switches    int
	acctHandler func([]common.Address)
	chainHand   func(uint64)
	acctRemoved bool
	chanRemoved bool
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.requests++
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return f.accounts, nil
}

func (f *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return f.accounts, nil
}

func (f *fakeProvider) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, nil
}

func (f *fakeProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	f.switches++
	if f.switchErr != nil {
		return f.switchErr
	}
	if f.chainHand != nil {
		f.chainHand(chainID)
	}
	return nil
}

func (f *fakeProvider) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	return common.Hash{}, nil
}

func (f *fakeProvider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeProvider) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeProvider) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, ethereum.NotFound
}

func (f *fakeProvider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeProvider) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return nil, nil
}

func (f *fakeProvider) OnAccountsChanged(fn func([]common.Address)) func() {
	f.acctHandler = fn
	return func() { f.acctRemoved = true }
}

func (f *fakeProvider) OnChainChanged(fn func(uint64)) func() {
	f.chainHand = fn
	return func() { f.chanRemoved = true }
}

func (f *fakeProvider) Close() error { return nil }

var (
	addrA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestConnectPopulatesSession(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 137}
	session := NewSession(provider)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	account, ok := session.Account()
	if !ok || account != addrA {
		t.Fatalf("unexpected account %s ok=%v", account.Hex(), ok)
	}
	if session.ChainID() != 137 {
		t.Fatalf("unexpected chain id %d", session.ChainID())
	}
	if !session.IsConnected() {
		t.Fatal("expected connected")
	}
	if session.Snapshot().Loading {
		t.Fatal("loading flag must clear after connect")
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	session := NewSession(nil)
	if err := session.Connect(context.Background()); err != ErrProviderNotFound {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestConnectNoAccountsLeavesStateUntouched(t *testing.T) {
	provider := &fakeProvider{chainID: 1}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != ErrNoAccounts {
		t.Fatalf("expected ErrNoAccounts, got %v", err)
	}
	if session.IsConnected() || session.ChainID() != 0 {
		t.Fatal("failed connect must not mutate session state")
	}
}

func TestConnectUserRejectedClassified(t *testing.T) {
	provider := &fakeProvider{requestErr: &ProviderError{Code: 4001, Message: "denied"}}
	session := NewSession(provider)
	err := session.Connect(context.Background())
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
	if session.IsConnected() {
		t.Fatal("session must stay disconnected after rejection")
	}
}

func TestReconnectReflectsLatestState(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 1}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	session.Disconnect()
	if session.IsConnected() || session.ChainID() != 0 {
		t.Fatal("disconnect must clear all fields")
	}

	provider.accounts = []common.Address{addrB}
	provider.chainID = 56
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	account, _ := session.Account()
	if account != addrB || session.ChainID() != 56 {
		t.Fatalf("stale state survived reconnect: %s / %d", account.Hex(), session.ChainID())
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	notified := 0
	center := notify.Func(func(notify.Notification) { notified++ })
	session := NewSession(&fakeProvider{accounts: []common.Address{addrA}, chainID: 1}, WithNotifier(center))
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	notified = 0
	session.Disconnect()
	session.Disconnect()
	if notified != 1 {
		t.Fatalf("expected exactly one disconnect notification, got %d", notified)
	}
}

func TestZeroAccountsEventDisconnectsOnce(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 1}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	changes := 0
	session.OnChange(func(Snapshot) { changes++ })

	provider.acctHandler(nil)
	if session.IsConnected() {
		t.Fatal("expected disconnected after zero-accounts event")
	}
	if account, ok := session.Account(); ok || account != (common.Address{}) {
		t.Fatal("expected fully cleared session")
	}
	provider.acctHandler(nil)
	if changes != 1 {
		t.Fatalf("expected exactly one transition, saw %d", changes)
	}
}

func TestAccountChangePreservesChain(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 137}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	provider.acctHandler([]common.Address{addrB})
	account, ok := session.Account()
	if !ok || account != addrB {
		t.Fatalf("account not updated: %s", account.Hex())
	}
	if session.ChainID() != 137 {
		t.Fatal("chain id must survive an account change")
	}
}

func TestChainChangeUpdatesChainOnly(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 1}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	provider.chainHand(56)
	if session.ChainID() != 56 {
		t.Fatalf("chain id not updated: %d", session.ChainID())
	}
	account, _ := session.Account()
	if account != addrA {
		t.Fatal("account must survive a chain change")
	}
}

func TestSwitchNetworkUnknownChain(t *testing.T) {
	provider := &fakeProvider{
		accounts:  []common.Address{addrA},
		chainID:   1,
		switchErr: &ProviderError{Code: 4902, Message: "unrecognized chain"},
	}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	err := session.SwitchNetwork(context.Background(), 999)
	if !errors.Is(err, ErrChainNotRegistered) {
		t.Fatalf("expected ErrChainNotRegistered, got %v", err)
	}
}

func TestSwitchNetworkRejectedClassified(t *testing.T) {
	provider := &fakeProvider{
		accounts:  []common.Address{addrA},
		chainID:   1,
		switchErr: &ProviderError{Code: 4001, Message: "denied"},
	}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	err := session.SwitchNetwork(context.Background(), 137)
	if !errors.Is(err, ErrSwitchRejected) {
		t.Fatalf("expected ErrSwitchRejected, got %v", err)
	}
}

func TestSwitchNetworkRequiresConnection(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 1}
	session := NewSession(provider)
	if err := session.SwitchNetwork(context.Background(), 137); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if provider.switches != 0 {
		t.Fatal("no provider call expected while disconnected")
	}
}

func TestTryResumeSilentWhenUnauthorized(t *testing.T) {
	provider := &fakeProvider{chainID: 1}
	session := NewSession(provider)
	resumed, err := session.TryResume(context.Background())
	if err != nil || resumed {
		t.Fatalf("expected silent no-op, got resumed=%v err=%v", resumed, err)
	}
	if provider.requests != 0 {
		t.Fatal("resume must not prompt")
	}
}

func TestTryResumeConnectsAuthorizedWallet(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 1}
	session := NewSession(provider)
	resumed, err := session.TryResume(context.Background())
	if err != nil || !resumed {
		t.Fatalf("expected resume, got resumed=%v err=%v", resumed, err)
	}
	if !session.IsConnected() {
		t.Fatal("expected connected session")
	}
}

func TestDisposeRemovesProviderListeners(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrA}, chainID: 1}
	session := NewSession(provider)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	session.Dispose()
	if !provider.acctRemoved || !provider.chanRemoved {
		t.Fatal("dispose must unregister provider listeners")
	}
	if session.IsConnected() {
		t.Fatal("dispose must clear the session")
	}
}
