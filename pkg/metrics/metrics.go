// Package metrics exposes Prometheus instrumentation for dataset loading,
// source availability checks and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2ledger_dataset_loads_total",
			Help: "Dataset load attempts by outcome status",
		},
		[]string{"dataset", "status"},
	)

	DatasetLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "co2ledger_dataset_load_duration_seconds",
			Help:    "Time spent fetching and parsing one dataset",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dataset"},
	)

	DatasetRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "co2ledger_dataset_records",
			Help: "Records held for each dataset in the current snapshot",
		},
		[]string{"dataset"},
	)

	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2ledger_snapshot_records",
			Help: "Total records in the current snapshot",
		},
	)

	SnapshotLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2ledger_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the current snapshot was loaded",
		},
	)

	SourceCheckStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "co2ledger_source_check_http_status",
			Help: "HTTP status of the last availability check (0 on network error)",
		},
		[]string{"dataset"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2ledger_api_requests_total",
			Help: "API requests by route and status code",
		},
		[]string{"route", "code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "co2ledger_api_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	EndpointCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2ledger_endpoint_calls_total",
			Help: "Endpoint calls by transport and outcome (ok, bad_request, error)",
		},
		[]string{"endpoint", "transport", "outcome"},
	)
)

// RecordDatasetLoad records one dataset load.
func RecordDatasetLoad(dataset, status string, d time.Duration) {
	DatasetLoads.WithLabelValues(dataset, status).Inc()
	DatasetLoadDuration.WithLabelValues(dataset).Observe(d.Seconds())
}

// RecordAPIRequest records one served API request.
func RecordAPIRequest(route string, code int, d time.Duration) {
	APIRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	APIRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordEndpointCall records one endpoint call, whichever transport served it.
func RecordEndpointCall(endpoint, transport, outcome string) {
	EndpointCalls.WithLabelValues(endpoint, transport, outcome).Inc()
}
