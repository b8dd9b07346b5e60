package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Operations counts auction operations by name and result
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brane_auction_operations_total",
			Help: "Total number of auction operations by outcome",
		},
		[]string{"operation", "result"},
	)

	// OperationDuration covers the whole optimistic transaction, retries included
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brane_auction_operation_duration_seconds",
			Help:    "Duration of auction operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CurationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brane_auction_curation_outcomes_total",
			Help: "Per-submission results of curation votes",
		},
		[]string{"outcome"},
	)

	PendingAuctions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "brane_auction_pending_auctions",
			Help: "Number of accepted submissions waiting to go live",
		},
	)

	OpenSubmissions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "brane_auction_open_submissions",
			Help: "Number of submissions in curation",
		},
	)

	PublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brane_auction_publish_failures_total",
			Help: "Events that could not be published",
		},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(Operations)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(CurationOutcomes)
	prometheus.MustRegister(PendingAuctions)
	prometheus.MustRegister(OpenSubmissions)
	prometheus.MustRegister(PublishFailures)
}

// Result labels an operation outcome
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
