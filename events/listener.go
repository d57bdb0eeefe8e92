package events

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"veloracloud/contracts"
	"veloracloud/notify"
	"veloracloud/observability/metrics"
	"veloracloud/units"
	"veloracloud/wallet"
)

const tokenSymbol = "VLR"

// SessionSource is the session surface the listener binds to.
type SessionSource interface {
	Snapshot() wallet.Snapshot
	OnChange(fn func(wallet.Snapshot)) (remove func())
}

// Subscriber is the node surface needed for live log subscriptions and the
// one-shot history queries that seed the feed on wire-up. wallet.Provider
// satisfies it.
type Subscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Archive persists records beyond the in-memory feed. Implemented by the
// storage package; nil disables archiving.
type Archive interface {
	Save(ctx context.Context, rec Record) error
}

// backfillBlocks bounds how far back the history query reaches when a new
// account wires up.
const backfillBlocks = 5000

// Listener subscribes to the contract events that concern the connected
// account and turns matching logs into feed records and notifications. Each
// wire-up also replays recent history into the feed, without notifications.
// It rewires its subscriptions whenever the session changes and tears them
// all down on disconnect or Close.
type Listener struct {
	session SessionSource
	node    Subscriber
	addrs   contracts.Addresses
	feed    *Feed

	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Web3Metrics
	archive  Archive
	now      func() time.Time

	mu             sync.Mutex
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	removeOnChange func()
	closed         bool
}

// ListenerOption customises a Listener.
type ListenerOption func(*Listener)

// WithNotifier routes one notification per matched log through n.
func WithNotifier(n notify.Notifier) ListenerOption {
	return func(l *Listener) { l.notifier = n }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

// WithMetrics records per-type event counters.
func WithMetrics(m *metrics.Web3Metrics) ListenerOption {
	return func(l *Listener) { l.metrics = m }
}

// WithArchive persists every accepted record through a.
func WithArchive(a Archive) ListenerOption {
	return func(l *Listener) { l.archive = a }
}

func withClock(now func() time.Time) ListenerOption {
	return func(l *Listener) { l.now = now }
}

// NewListener builds a listener over the given session and node. Call Start
// to begin receiving events.
func NewListener(session SessionSource, node Subscriber, addrs contracts.Addresses, feed *Feed, opts ...ListenerOption) *Listener {
	l := &Listener{
		session: session,
		node:    node,
		addrs:   addrs,
		feed:    feed,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start wires subscriptions for the current session state and keeps them in
// sync with session changes until Close.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.removeOnChange != nil {
		return
	}
	l.rewireLocked(l.session.Snapshot())
	l.removeOnChange = l.session.OnChange(func(s wallet.Snapshot) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			return
		}
		l.rewireLocked(s)
	})
}

// Close tears down all subscriptions. No callbacks fire after it returns.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.removeOnChange != nil {
		l.removeOnChange()
		l.removeOnChange = nil
	}
	l.stopLocked()
}

func (l *Listener) stopLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.wg.Wait()
}

func (l *Listener) rewireLocked(s wallet.Snapshot) {
	l.stopLocked()
	if !s.Connected {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	accountTopic := common.BytesToHash(s.Account.Bytes())
	subs := []subSpec{
		{
			// Sent and received need separate filters: a single query cannot
			// match the account topic in either position. Both feed the same
			// decode path and the feed dedups a self-transfer matching both.
			query: ethereum.FilterQuery{
				Addresses: []common.Address{l.addrs.Token},
				Topics:    [][]common.Hash{{contracts.TokenABI.Events["Transfer"].ID}, {accountTopic}},
			},
			decode: l.decodeTransfer(s.Account),
		},
		{
			query: ethereum.FilterQuery{
				Addresses: []common.Address{l.addrs.Token},
				Topics:    [][]common.Hash{{contracts.TokenABI.Events["Transfer"].ID}, nil, {accountTopic}},
			},
			decode: l.decodeTransfer(s.Account),
		},
		{
			query: ethereum.FilterQuery{
				Addresses: []common.Address{l.addrs.Marketplace},
				Topics:    [][]common.Hash{{contracts.MarketplaceABI.Events["NodeRented"].ID}, nil, {accountTopic}},
			},
			decode: l.decodeNodeRented,
		},
		{
			query: ethereum.FilterQuery{
				Addresses: []common.Address{l.addrs.Staking},
				Topics:    [][]common.Hash{{contracts.StakingABI.Events["Staked"].ID}, {accountTopic}},
			},
			decode: l.decodeStaked,
		},
		{
			query: ethereum.FilterQuery{
				Addresses: []common.Address{l.addrs.Staking},
				Topics:    [][]common.Hash{{contracts.StakingABI.Events["RewardsClaimed"].ID}, {accountTopic}},
			},
			decode: l.decodeRewardsClaimed,
		},
	}
	for _, spec := range subs {
		ch := make(chan types.Log, 16)
		sub, err := l.node.SubscribeFilterLogs(ctx, spec.query, ch)
		if err != nil {
			l.logger.Error("event subscription failed", "error", err)
			continue
		}
		l.wg.Add(1)
		go l.pump(ctx, sub, ch, spec.decode)
	}
	l.wg.Add(1)
	go l.backfill(ctx, subs)
}

type subSpec struct {
	query  ethereum.FilterQuery
	decode func(types.Log) (Record, bool)
}

// backfill replays recent history into the feed. Replayed records skip
// notifications so reconnecting does not re-announce old activity.
func (l *Listener) backfill(ctx context.Context, specs []subSpec) {
	defer l.wg.Done()
	head, err := l.node.HeaderByNumber(ctx, nil)
	if err != nil {
		l.logger.Warn("resolve head for backfill", "error", err)
		return
	}
	from := new(big.Int).Sub(head.Number, big.NewInt(backfillBlocks))
	if from.Sign() < 0 {
		from.SetInt64(0)
	}
	for _, spec := range specs {
		q := spec.query
		q.FromBlock = from
		q.ToBlock = head.Number
		logs, err := l.node.FilterLogs(ctx, q)
		if err != nil {
			l.logger.Warn("backfill query failed", "error", err)
			continue
		}
		for _, lg := range logs {
			if rec, ok := spec.decode(lg); ok {
				l.deliver(ctx, rec, false)
			}
		}
	}
}

func (l *Listener) pump(ctx context.Context, sub ethereum.Subscription, ch chan types.Log, decode func(types.Log) (Record, bool)) {
	defer l.wg.Done()
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				l.logger.Warn("event subscription dropped", "error", err)
			}
			return
		case lg := <-ch:
			rec, ok := decode(lg)
			if !ok {
				continue
			}
			l.deliver(ctx, rec, true)
		}
	}
}

func (l *Listener) deliver(ctx context.Context, rec Record, live bool) {
	if !l.feed.Add(rec) {
		return
	}
	l.metrics.ObserveEvent(string(rec.Type))
	if l.archive != nil {
		if err := l.archive.Save(ctx, rec); err != nil {
			l.logger.Warn("archive event", "id", rec.ID, "error", err)
		}
	}
	if live && l.notifier != nil {
		n := notify.Info(rec.Title, rec.Message)
		n.TxHash = rec.TxHash.Hex()
		l.notifier.Notify(n)
	}
}

func (l *Listener) decodeTransfer(account common.Address) func(types.Log) (Record, bool) {
	return func(lg types.Log) (Record, bool) {
		if len(lg.Topics) < 3 {
			return Record{}, false
		}
		from := common.BytesToAddress(lg.Topics[1].Bytes())
		to := common.BytesToAddress(lg.Topics[2].Bytes())
		if from != account && to != account {
			return Record{}, false
		}
		value, ok := l.unpackAmount(contracts.TokenABI, "Transfer", lg.Data, 0)
		if !ok {
			return Record{}, false
		}
		rec := newRecord(TypeTransfer, lg, l.now())
		amount := units.FormatFixed(value, 4)
		if to == account {
			rec.Title = "Tokens Received"
			rec.Message = fmt.Sprintf("Received %s %s from %s", amount, tokenSymbol, shortAddr(from))
		} else {
			rec.Title = "Tokens Sent"
			rec.Message = fmt.Sprintf("Sent %s %s to %s", amount, tokenSymbol, shortAddr(to))
		}
		rec.Payload = map[string]string{
			"from":  from.Hex(),
			"to":    to.Hex(),
			"value": units.Format(value),
		}
		return rec, true
	}
}

func (l *Listener) decodeNodeRented(lg types.Log) (Record, bool) {
	out, err := contracts.MarketplaceABI.Unpack("NodeRented", lg.Data)
	if err != nil || len(out) < 2 {
		return Record{}, false
	}
	duration, ok := out[0].(*big.Int)
	if !ok {
		return Record{}, false
	}
	totalCost, ok := out[1].(*big.Int)
	if !ok {
		return Record{}, false
	}
	rec := newRecord(TypeNodeRented, lg, l.now())
	rec.Title = "Node Rented"
	rec.Message = fmt.Sprintf("Rented a compute node for %sh at %s %s", duration, units.FormatFixed(totalCost, 4), tokenSymbol)
	rec.Payload = map[string]string{
		"duration":  duration.String(),
		"totalCost": units.Format(totalCost),
	}
	return rec, true
}

func (l *Listener) decodeStaked(lg types.Log) (Record, bool) {
	amount, ok := l.unpackAmount(contracts.StakingABI, "Staked", lg.Data, 0)
	if !ok {
		return Record{}, false
	}
	rec := newRecord(TypeStaked, lg, l.now())
	rec.Title = "Tokens Staked"
	rec.Message = fmt.Sprintf("Staked %s %s", units.FormatFixed(amount, 4), tokenSymbol)
	rec.Payload = map[string]string{"amount": units.Format(amount)}
	return rec, true
}

func (l *Listener) decodeRewardsClaimed(lg types.Log) (Record, bool) {
	amount, ok := l.unpackAmount(contracts.StakingABI, "RewardsClaimed", lg.Data, 0)
	if !ok {
		return Record{}, false
	}
	rec := newRecord(TypeRewardsClaimed, lg, l.now())
	rec.Title = "Rewards Claimed"
	rec.Message = fmt.Sprintf("Claimed %s %s in rewards", units.FormatFixed(amount, 4), tokenSymbol)
	rec.Payload = map[string]string{"amount": units.Format(amount)}
	return rec, true
}

func (l *Listener) unpackAmount(contractABI abi.ABI, name string, data []byte, index int) (*big.Int, bool) {
	out, err := contractABI.Unpack(name, data)
	if err != nil || len(out) <= index {
		l.logger.Warn("decode event", "event", name, "error", err)
		return nil, false
	}
	value, ok := out[index].(*big.Int)
	return value, ok
}
