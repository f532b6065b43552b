// Package metrics defines the prometheus metrics that the pipeline package
// updates as batches are sent and their responses are received.
//
// When defining new operations or metrics, these are helpful values to track:
//  - things coming into or go out of the system: batches, ops, bytes.
//  - the success or error status of any of the above.
//  - the distribution of processing latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpsTotal counts completed operations by wire command and result
	// status, so a caller can distinguish "server returned KeyNotFound"
	// from "transport failed" in aggregate.
	//
	// Provides metrics:
	//   rioc_batch_ops_total{command="Get",status="Success"}
	OpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rioc_batch_ops_total",
			Help: "Operations completed, by command and result status.",
		},
		[]string{"command", "status"})

	// BytesSent tracks the total bytes written to the transport across all
	// batch submissions.
	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rioc_batch_bytes_sent_total",
			Help: "Bytes written to the transport across all batch submissions.",
		})

	// BytesReceived tracks the total bytes read from the transport across
	// all response streams.
	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rioc_batch_bytes_received_total",
			Help: "Bytes read from the transport across all response streams.",
		})

	// BatchSubmitLatency tracks the time from submit to the receiver
	// observing COMPLETE, successful or not.
	BatchSubmitLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rioc_batch_submit_latency_seconds",
			Help:    "Latency from batch submission to tracker completion.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 20),
		})
)
