// Package metrics exposes Prometheus instrumentation for the Web3 client
// layer. Counters are registered once on first use; callers may hold a nil
// receiver to disable instrumentation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Web3Metrics struct {
	txSubmitted    *prometheus.CounterVec
	txConfirmed    *prometheus.CounterVec
	txFailed       *prometheus.CounterVec
	eventsReceived *prometheus.CounterVec
	sessionState   prometheus.Gauge
}

var (
	web3Once     sync.Once
	web3Registry *Web3Metrics
)

func Web3() *Web3Metrics {
	web3Once.Do(func() {
		web3Registry = &Web3Metrics{
			txSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "velora_tx_submitted_total",
				Help: "Count of transactions submitted per action.",
			}, []string{"action"}),
			txConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "velora_tx_confirmed_total",
				Help: "Count of transactions confirmed on-chain per action.",
			}, []string{"action"}),
			txFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "velora_tx_failed_total",
				Help: "Count of transactions that failed or reverted per action.",
			}, []string{"action"}),
			eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "velora_contract_events_total",
				Help: "Count of decoded contract log events by type.",
			}, []string{"type"}),
			sessionState: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "velora_wallet_connected",
				Help: "Whether a wallet session is currently connected.",
			}),
		}
		prometheus.MustRegister(
			web3Registry.txSubmitted,
			web3Registry.txConfirmed,
			web3Registry.txFailed,
			web3Registry.eventsReceived,
			web3Registry.sessionState,
		)
	})
	return web3Registry
}

func (m *Web3Metrics) ObserveSubmitted(action string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.txSubmitted.WithLabelValues(action).Inc()
}

func (m *Web3Metrics) ObserveConfirmed(action string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.txConfirmed.WithLabelValues(action).Inc()
}

func (m *Web3Metrics) ObserveFailed(action string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.txFailed.WithLabelValues(action).Inc()
}

func (m *Web3Metrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsReceived.WithLabelValues(eventType).Inc()
}

func (m *Web3Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.sessionState.Set(1)
		return
	}
	m.sessionState.Set(0)
}
