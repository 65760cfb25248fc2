// Package metrics exposes Prometheus instrumentation for the node.
// Only the node facade writes measurements, through the Recorder
// interface; the chain, mempool and gossip packages never import the
// prometheus client, so the metrics surface stays swappable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics surface the rest of the node writes through.
type Recorder interface {
	SetChainHeight(height uint64)
	SetMempoolSize(n int)
	SetPeerCount(n int)
	IncBlocksMined()
}

// Prometheus implements Recorder with a fixed set of gauges and a
// counter, registered against a private registry so the node can run
// more than one instance in a test process without collector
// collisions.
type Prometheus struct {
	registry     *prometheus.Registry
	chainHeight  prometheus.Gauge
	mempoolSize  prometheus.Gauge
	peerCount    prometheus.Gauge
	blocksMined  prometheus.Counter
}

// NewPrometheus builds a Recorder backed by a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		chainHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nanochain_chain_height",
			Help: "Index of the local chain's head block.",
		}),
		mempoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nanochain_mempool_size",
			Help: "Number of transactions currently pooled.",
		}),
		peerCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nanochain_peer_count",
			Help: "Number of live peer sessions.",
		}),
		blocksMined: factory.NewCounter(prometheus.CounterOpts{
			Name: "nanochain_blocks_mined_total",
			Help: "Total blocks this node has successfully mined and accepted.",
		}),
	}
}

// Registry exposes the private registry for an HTTP handler to serve.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

func (p *Prometheus) SetChainHeight(height uint64) { p.chainHeight.Set(float64(height)) }
func (p *Prometheus) SetMempoolSize(n int)         { p.mempoolSize.Set(float64(n)) }
func (p *Prometheus) SetPeerCount(n int)           { p.peerCount.Set(float64(n)) }
func (p *Prometheus) IncBlocksMined()              { p.blocksMined.Inc() }

// Noop discards every measurement. Useful for tests and for running
// the node with metrics disabled.
type Noop struct{}

func (Noop) SetChainHeight(uint64) {}
func (Noop) SetMempoolSize(int)    {}
func (Noop) SetPeerCount(int)      {}
func (Noop) IncBlocksMined()       {}
