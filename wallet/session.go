package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"veloracloud/notify"
)

// Snapshot is a point-in-time copy of the session state handed to change
// subscribers and the gateway.
type Snapshot struct {
	Account   common.Address
	ChainID   uint64
	Connected bool
	Loading   bool
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithNotifier routes session notifications to the given sink.
func WithNotifier(n notify.Notifier) SessionOption {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session is the process-wide wallet session. One active session exists at a
// time; contract handles and event subscriptions derive from it and are
// rebuilt through the change callbacks whenever it moves.
type Session struct {
	provider Provider
	notifier notify.Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	account   common.Address
	chainID   uint64
	connected bool
	loading   bool

	listenersBound    bool
	removeAccountsSub func()
	removeChainSub    func()

	nextSub int
	subs    map[int]func(Snapshot)
}

// NewSession wraps a provider. A nil provider is legal; Connect then reports
// ErrProviderNotFound, mirroring an environment without a wallet extension.
func NewSession(provider Provider, opts ...SessionOption) *Session {
	s := &Session{
		provider: provider,
		notifier: notify.Discard,
		logger:   slog.Default(),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect authorizes the wallet and populates account and chain state. On any
// failure the session is left exactly as it was before the call.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		s.notifier.Notify(notify.Error("Wallet Not Found", "install a wallet provider to connect"))
		return ErrProviderNotFound
	}

	s.setLoading(true)
	defer s.setLoading(false)

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		err = classifyRequestErr(err)
		s.logger.Error("wallet connect failed", "err", err)
		s.notifier.Notify(notify.Error("Connection Failed", err.Error()))
		return err
	}
	if len(accounts) == 0 {
		s.notifier.Notify(notify.Error("No Accounts", "authorize at least one account in your wallet"))
		return ErrNoAccounts
	}
	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		err = fmt.Errorf("query chain id: %w", err)
		s.logger.Error("wallet connect failed", "err", err)
		s.notifier.Notify(notify.Error("Connection Failed", err.Error()))
		return err
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.chainID = chainID
	s.connected = true
	s.bindProviderListenersLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("wallet connected", "account", snapshot.Account.Hex(), "chain_id", snapshot.ChainID)
	s.notifier.Notify(notify.Success("Wallet Connected", "connected to "+shortAddress(snapshot.Account)))
	s.fanOut(snapshot)
	return nil
}

// TryResume connects silently when the wallet already authorized accounts.
// It never prompts; when nothing is authorized it reports false without error.
func (s *Session) TryResume(ctx context.Context) (bool, error) {
	if s.provider == nil {
		return false, nil
	}
	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		return false, fmt.Errorf("query accounts: %w", err)
	}
	if len(accounts) == 0 {
		return false, nil
	}
	if err := s.Connect(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Disconnect clears the session. Idempotent: disconnecting a disconnected
// session is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.account = common.Address{}
	s.chainID = 0
	s.connected = false
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("wallet disconnected")
	s.notifier.Notify(notify.Info("Wallet Disconnected", "your wallet has been disconnected"))
	s.fanOut(snapshot)
}

// SwitchNetwork asks the provider to activate the target chain. The session's
// chain id updates through the provider's chain-changed event, not here.
func (s *Session) SwitchNetwork(ctx context.Context, chainID uint64) error {
	if s.provider == nil {
		return ErrProviderNotFound
	}
	if !s.IsConnected() {
		return ErrNotConnected
	}
	if err := s.provider.SwitchChain(ctx, chainID); err != nil {
		err = classifySwitchErr(err)
		s.logger.Error("network switch failed", "chain_id", chainID, "err", err)
		s.notifier.Notify(notify.Error("Network Switch Failed", err.Error()))
		return err
	}
	return nil
}

// OnChange registers a callback invoked with a fresh snapshot whenever the
// session state moves. The returned func removes the registration.
func (s *Session) OnChange(fn func(Snapshot)) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Account returns the active account; ok is false when disconnected.
func (s *Session) Account() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, s.connected
}

// ChainID returns the active chain id, zero when disconnected.
func (s *Session) ChainID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID
}

// IsConnected reports whether a wallet is connected.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Snapshot returns a copy of the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Provider exposes the underlying provider for the contract and event layers.
func (s *Session) Provider() Provider {
	return s.provider
}

// Dispose unregisters the provider listeners and clears the session. The
// session must not be reused afterwards.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.removeAccountsSub != nil {
		s.removeAccountsSub()
		s.removeAccountsSub = nil
	}
	if s.removeChainSub != nil {
		s.removeChainSub()
		s.removeChainSub = nil
	}
	s.listenersBound = false
	wasConnected := s.connected
	s.account = common.Address{}
	s.chainID = 0
	s.connected = false
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if wasConnected {
		s.fanOut(snapshot)
	}
}

func (s *Session) bindProviderListenersLocked() {
	if s.listenersBound || s.provider == nil {
		return
	}
	s.removeAccountsSub = s.provider.OnAccountsChanged(s.handleAccountsChanged)
	s.removeChainSub = s.provider.OnChainChanged(s.handleChainChanged)
	s.listenersBound = true
}

// handleAccountsChanged applies a provider account event: zero accounts is
// equivalent to Disconnect, otherwise only the account moves.
func (s *Session) handleAccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		s.Disconnect()
		return
	}
	s.mu.Lock()
	if !s.connected || s.account == accounts[0] {
		s.mu.Unlock()
		return
	}
	s.account = accounts[0]
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("wallet account changed", "account", snapshot.Account.Hex())
	s.fanOut(snapshot)
}

func (s *Session) handleChainChanged(chainID uint64) {
	s.mu.Lock()
	if !s.connected || s.chainID == chainID {
		s.mu.Unlock()
		return
	}
	s.chainID = chainID
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("wallet chain changed", "chain_id", chainID)
	s.fanOut(snapshot)
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Account:   s.account,
		ChainID:   s.chainID,
		Connected: s.connected,
		Loading:   s.loading,
	}
}

func (s *Session) fanOut(snapshot Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

func shortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
