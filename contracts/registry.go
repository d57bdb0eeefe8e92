package contracts

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"veloracloud/wallet"
)

// Addresses holds the deployed contract addresses for the active chain.
type Addresses struct {
	Token         common.Address
	Marketplace   common.Address
	StorageEscrow common.Address
	Staking       common.Address
}

// SessionSource is the session surface the registry binds to.
type SessionSource interface {
	SessionState
	Snapshot() wallet.Snapshot
	OnChange(fn func(wallet.Snapshot)) (remove func())
}

// Registry exposes the four contract handles. Handles are a pure function of
// the session: rebuilt whenever the session changes, nil while disconnected,
// never mutated in place.
type Registry struct {
	session SessionSource
	backend Backend
	addrs   Addresses

	mu            sync.RWMutex
	token         *Token
	marketplace   *Marketplace
	storageEscrow *StorageEscrow
	staking       *Staking

	removeOnChange func()
}

// NewRegistry binds the registry to the session and starts tracking changes.
func NewRegistry(session SessionSource, backend Backend, addrs Addresses) *Registry {
	r := &Registry{
		session: session,
		backend: backend,
		addrs:   addrs,
	}
	r.rebuild(session.Snapshot())
	r.removeOnChange = session.OnChange(r.rebuild)
	return r
}

// Token returns the token handle, nil while disconnected.
func (r *Registry) Token() *Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

// Marketplace returns the node-marketplace handle, nil while disconnected.
func (r *Registry) Marketplace() *Marketplace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.marketplace
}

// StorageEscrow returns the storage-escrow handle, nil while disconnected.
func (r *Registry) StorageEscrow() *StorageEscrow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.storageEscrow
}

// Staking returns the staking handle, nil while disconnected.
func (r *Registry) Staking() *Staking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.staking
}

// Addresses returns the configured contract addresses.
func (r *Registry) Addresses() Addresses {
	return r.addrs
}

// Close stops tracking session changes.
func (r *Registry) Close() {
	if r.removeOnChange != nil {
		r.removeOnChange()
		r.removeOnChange = nil
	}
}

func (r *Registry) rebuild(snapshot wallet.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !snapshot.Connected {
		r.token = nil
		r.marketplace = nil
		r.storageEscrow = nil
		r.staking = nil
		return
	}
	r.token = &Token{bound: bound{address: r.addrs.Token, abi: TokenABI, backend: r.backend, session: r.session}}
	r.marketplace = &Marketplace{bound: bound{address: r.addrs.Marketplace, abi: MarketplaceABI, backend: r.backend, session: r.session}}
	r.storageEscrow = &StorageEscrow{bound: bound{address: r.addrs.StorageEscrow, abi: StorageEscrowABI, backend: r.backend, session: r.session}}
	r.staking = &Staking{bound: bound{address: r.addrs.Staking, abi: StakingABI, backend: r.backend, session: r.session}}
}
