package txexec

import (
	"context"
	"log/slog"

	"veloracloud/notify"
	"veloracloud/observability/metrics"
	"veloracloud/wallet"
)

// SessionState is the slice of the wallet session the executor consults.
type SessionState interface {
	IsConnected() bool
}

// Thunk submits an operation and returns its pending-transaction handle.
type Thunk func(ctx context.Context) (*Pending, error)

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches transaction instrumentation.
func WithMetrics(m *metrics.Web3Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// Executor runs a wrapped operation through submit, wait-for-confirmation and
// user notification. Callers disable their own affordance while an action is
// pending; the executor itself does not serialize.
type Executor struct {
	session  SessionState
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Web3Metrics
}

// NewExecutor wires the executor to the session and notification port.
func NewExecutor(session SessionState, notifier notify.Notifier, opts ...ExecutorOption) *Executor {
	if notifier == nil {
		notifier = notify.Discard
	}
	e := &Executor{
		session:  session,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute submits the operation and follows it to a terminal state. Every
// exit path produces exactly one terminal notification; no path retries.
func (e *Executor) Execute(ctx context.Context, label string, thunk Thunk) error {
	if e.session == nil || !e.session.IsConnected() {
		e.notifier.Notify(notify.Error("Wallet Not Connected", "connect your wallet first"))
		return wallet.ErrNotConnected
	}

	pending, err := thunk(ctx)
	if err != nil {
		e.metrics.ObserveFailed(label)
		e.logger.Error("transaction submit failed", "action", label, "err", err)
		e.notifier.Notify(notify.Error("Transaction Failed", failureMessage(label, err)))
		return err
	}

	hash := pending.Hash()
	e.metrics.ObserveSubmitted(label)
	e.logger.Info("transaction submitted", "action", label, "tx", hash.Hex())
	submitted := notify.Info("Transaction Submitted", "transaction hash: "+shortHash(hash.Hex()))
	submitted.TxHash = hash.Hex()
	e.notifier.Notify(submitted)

	if _, err := pending.Wait(ctx); err != nil {
		e.metrics.ObserveFailed(label)
		e.logger.Error("transaction failed", "action", label, "tx", hash.Hex(), "err", err)
		failed := notify.Error("Transaction Failed", failureMessage(label, err))
		failed.TxHash = hash.Hex()
		e.notifier.Notify(failed)
		return err
	}

	e.metrics.ObserveConfirmed(label)
	e.logger.Info("transaction confirmed", "action", label, "tx", hash.Hex())
	confirmed := notify.Success("Transaction Confirmed", label+" completed successfully")
	confirmed.TxHash = hash.Hex()
	e.notifier.Notify(confirmed)
	return nil
}

func failureMessage(label string, err error) string {
	if err == nil || err.Error() == "" {
		return label + " failed"
	}
	return err.Error()
}

func shortHash(hex string) string {
	if len(hex) <= 10 {
		return hex
	}
	return hex[:10] + "..."
}
