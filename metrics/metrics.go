// Package metrics exposes node activity as Prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powchain"

type Metrics struct {
	ChainHeight     prometheus.Gauge
	PendingTxs      prometheus.Gauge
	Peers           prometheus.Gauge
	BlocksMined     prometheus.Counter
	StaleProofs     prometheus.Counter
	MiningDuration  prometheus.Histogram
	ConsensusRounds *prometheus.CounterVec
	PeerFailures    prometheus.Counter
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ChainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_height",
			Help:      "Number of blocks in the local chain.",
		}),
		PendingTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_transactions",
			Help:      "Transactions waiting for the next block.",
		}),
		Peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers",
			Help:      "Registered peers.",
		}),
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_mined_total",
			Help:      "Blocks mined and sealed by this node.",
		}),
		StaleProofs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_proofs_total",
			Help:      "Proofs discarded because the tip moved during the search.",
		}),
		MiningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mining_duration_seconds",
			Help:      "Time to mine and seal one block.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		ConsensusRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_rounds_total",
			Help:      "Consensus rounds by outcome.",
		}, []string{"outcome"}),
		PeerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_fetch_failures_total",
			Help:      "Chain fetches that failed and yielded no candidate.",
		}),
	}

	err := errors.Join(
		reg.Register(m.ChainHeight),
		reg.Register(m.PendingTxs),
		reg.Register(m.Peers),
		reg.Register(m.BlocksMined),
		reg.Register(m.StaleProofs),
		reg.Register(m.MiningDuration),
		reg.Register(m.ConsensusRounds),
		reg.Register(m.PeerFailures),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveMined records one sealed block
func (m *Metrics) ObserveMined(elapsed time.Duration, stale int) {
	m.BlocksMined.Inc()
	m.StaleProofs.Add(float64(stale))
	m.MiningDuration.Observe(elapsed.Seconds())
}

// ObserveRound records the outcome of a consensus round
func (m *Metrics) ObserveRound(outcome string, failedPeers int) {
	m.ConsensusRounds.WithLabelValues(outcome).Inc()
	m.PeerFailures.Add(float64(failedPeers))
}

// SetState updates the gauges describing the ledger and registry
func (m *Metrics) SetState(height, pending, peers int) {
	m.ChainHeight.Set(float64(height))
	m.PendingTxs.Set(float64(pending))
	m.Peers.Set(float64(peers))
}
