package contracts

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"veloracloud/wallet"
)

var (
	account   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient = common.HexToAddress("0xabcabcabcabcabcabcabcabcabcabcabcabcabca")
	testAddrs = Addresses{
		Token:         common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Marketplace:   common.HexToAddress("0x0000000000000000000000000000000000000002"),
		StorageEscrow: common.HexToAddress("0x0000000000000000000000000000000000000003"),
		Staking:       common.HexToAddress("0x0000000000000000000000000000000000000004"),
	}
)

type fakeSession struct {
	connected bool
	account   common.Address
	subs      []func(wallet.Snapshot)
}

func (f *fakeSession) IsConnected() bool { return f.connected }

func (f *fakeSession) Account() (common.Address, bool) { return f.account, f.connected }

func (f *fakeSession) Snapshot() wallet.Snapshot {
	return wallet.Snapshot{Account: f.account, Connected: f.connected}
}

func (f *fakeSession) OnChange(fn func(wallet.Snapshot)) func() {
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeSession) update(connected bool, account common.Address) {
	f.connected = connected
	f.account = account
	for _, fn := range f.subs {
		fn(f.Snapshot())
	}
}

type fakeBackend struct {
	calls       int
	callResults map[string][]byte // keyed by 4-byte selector hex
	sends       []wallet.TxRequest
	sendHash    common.Hash
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if len(msg.Data) < 4 {
		return nil, errors.New("malformed calldata")
	}
	res, ok := f.callResults[hex.EncodeToString(msg.Data[:4])]
	if !ok {
		return nil, errors.New("unexpected call")
	}
	return res, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	f.calls++
	f.sends = append(f.sends, req)
	return f.sendHash, nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return nil, nil
}

func connectedRegistry(backend *fakeBackend) (*Registry, *fakeSession) {
	session := &fakeSession{connected: true, account: account}
	return NewRegistry(session, backend, testAddrs), session
}

func TestTransferConvertsToBaseUnits(t *testing.T) {
	backend := &fakeBackend{sendHash: common.HexToHash("0x01")}
	registry, _ := connectedRegistry(backend)

	pending, err := registry.Token().Transfer(context.Background(), recipient.Hex(), "12.5")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if pending.Hash() != backend.sendHash {
		t.Fatal("pending handle must carry the submitted hash")
	}
	if len(backend.sends) != 1 {
		t.Fatalf("expected one submission, got %d", len(backend.sends))
	}
	req := backend.sends[0]
	if req.From != account || *req.To != testAddrs.Token {
		t.Fatalf("unexpected addressing %+v", req)
	}
	args, err := TokenABI.Methods["transfer"].Inputs.Unpack(req.Data[4:])
	if err != nil {
		t.Fatalf("unpack calldata: %v", err)
	}
	if args[0].(common.Address) != recipient {
		t.Fatalf("unexpected recipient %v", args[0])
	}
	want, _ := new(big.Int).SetString("12500000000000000000", 10)
	if args[1].(*big.Int).Cmp(want) != 0 {
		t.Fatalf("amount = %s, want %s", args[1], want)
	}
}

func TestMutatingWrappersRequireConnection(t *testing.T) {
	backend := &fakeBackend{}
	registry, session := connectedRegistry(backend)
	session.update(false, common.Address{})

	if registry.Token() != nil || registry.Marketplace() != nil || registry.Staking() != nil || registry.StorageEscrow() != nil {
		t.Fatal("handles must be nil while disconnected")
	}

	// A stale handle held across a disconnect must refuse to run.
	session.update(true, account)
	token := registry.Token()
	session.update(false, common.Address{})
	if _, err := token.Transfer(context.Background(), recipient.Hex(), "1"); !errors.Is(err, wallet.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if backend.calls != 0 {
		t.Fatalf("expected zero network calls, saw %d", backend.calls)
	}
}

func TestInvalidInputNeverReachesNetwork(t *testing.T) {
	backend := &fakeBackend{}
	registry, _ := connectedRegistry(backend)
	token := registry.Token()

	cases := []struct {
		name string
		run  func() error
	}{
		{"malformed address", func() error {
			_, err := token.Transfer(context.Background(), "not-an-address", "1")
			return err
		}},
		{"malformed amount", func() error {
			_, err := token.Transfer(context.Background(), recipient.Hex(), "12.5.5")
			return err
		}},
		{"zero amount", func() error {
			_, err := registry.Staking().Stake(context.Background(), "0")
			return err
		}},
		{"empty node id", func() error {
			_, err := registry.Marketplace().RentNode(context.Background(), "  ", 24, "1")
			return err
		}},
		{"zero duration", func() error {
			_, err := registry.Marketplace().RentNode(context.Background(), "node-1", 0, "1")
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.run(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
	if backend.calls != 0 {
		t.Fatalf("expected zero network calls, saw %d", backend.calls)
	}
}

func TestRentNodeAttachesValue(t *testing.T) {
	backend := &fakeBackend{sendHash: common.HexToHash("0x02")}
	registry, _ := connectedRegistry(backend)

	if _, err := registry.Marketplace().RentNode(context.Background(), "node-1", 24, "2.5"); err != nil {
		t.Fatalf("rent: %v", err)
	}
	req := backend.sends[0]
	wantValue, _ := new(big.Int).SetString("2500000000000000000", 10)
	if req.Value == nil || req.Value.Cmp(wantValue) != 0 {
		t.Fatalf("attached value = %v, want %s", req.Value, wantValue)
	}
	args, err := MarketplaceABI.Methods["rentNode"].Inputs.Unpack(req.Data[4:])
	if err != nil {
		t.Fatalf("unpack calldata: %v", err)
	}
	if args[0].(string) != "node-1" {
		t.Fatalf("unexpected node id %v", args[0])
	}
	if args[1].(*big.Int).Cmp(big.NewInt(24)) != 0 {
		t.Fatalf("unexpected duration %v", args[1])
	}
}

func TestBalanceOfDecodesToDecimalString(t *testing.T) {
	method := TokenABI.Methods["balanceOf"]
	raw, _ := new(big.Int).SetString("12500000000000000000", 10)
	encoded, err := method.Outputs.Pack(raw)
	if err != nil {
		t.Fatalf("pack result: %v", err)
	}
	backend := &fakeBackend{callResults: map[string][]byte{
		hex.EncodeToString(method.ID): encoded,
	}}
	registry, _ := connectedRegistry(backend)

	balance, err := registry.Token().BalanceOf(context.Background(), account.Hex())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != "12.5" {
		t.Fatalf("balance = %q, want 12.5", balance)
	}
}

func TestNodeInfoDecodesTuple(t *testing.T) {
	method := MarketplaceABI.Methods["getNodeInfo"]
	price, _ := new(big.Int).SetString("1500000000000000000", 10)
	encoded, err := method.Outputs.Pack(rawNodeInfo{
		Provider:     recipient,
		PricePerHour: price,
		Available:    true,
		Reputation:   big.NewInt(97),
	})
	if err != nil {
		t.Fatalf("pack result: %v", err)
	}
	backend := &fakeBackend{callResults: map[string][]byte{
		hex.EncodeToString(method.ID): encoded,
	}}
	registry, _ := connectedRegistry(backend)

	info, err := registry.Marketplace().NodeInfo(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("node info: %v", err)
	}
	if info.Provider != recipient || info.PricePerHour != "1.5" || !info.Available || info.Reputation.Int64() != 97 {
		t.Fatalf("unexpected node info %+v", info)
	}
}

func TestCreateStorageOrderAttachesPayment(t *testing.T) {
	backend := &fakeBackend{sendHash: common.HexToHash("0x03")}
	registry, _ := connectedRegistry(backend)

	_, err := registry.StorageEscrow().CreateStorageOrder(context.Background(), "Qmfilehash", 30, recipient.Hex(), "0.75")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	req := backend.sends[0]
	wantValue, _ := new(big.Int).SetString("750000000000000000", 10)
	if req.Value == nil || req.Value.Cmp(wantValue) != 0 {
		t.Fatalf("attached value = %v, want %s", req.Value, wantValue)
	}
	if *req.To != testAddrs.StorageEscrow {
		t.Fatalf("unexpected target %s", req.To.Hex())
	}
}

func TestHandlesRebuildOnSessionChange(t *testing.T) {
	backend := &fakeBackend{}
	registry, session := connectedRegistry(backend)

	first := registry.Token()
	if first == nil {
		t.Fatal("expected live handle while connected")
	}
	other := common.HexToAddress("0x5555555555555555555555555555555555555555")
	session.update(true, other)
	second := registry.Token()
	if second == first {
		t.Fatal("handles must be recreated, not mutated, on session change")
	}
}
