package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spectra_svm_solver",
			Name:      "rpc_requests_total",
			Help:      "RPC requests by procedure and result code.",
		},
		[]string{"procedure", "code"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spectra_svm_solver",
			Name:      "rpc_duration_seconds",
			Help:      "RPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)
	composedSwaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spectra_svm_solver",
			Name:      "composed_swaps_total",
			Help:      "Envelopes composed by dex and pool.",
		},
		[]string{"dex", "pool"},
	)
)

func init() {
	prometheus.MustRegister(rpcRequests, rpcDuration, composedSwaps)
}
