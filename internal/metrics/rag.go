package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline Prometheus metrics.
var (
	IngestedSegmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "ingested_segments_total",
			Help:      "Total number of segments inserted into the vector index",
		},
	)

	IngestedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "ingested_documents_total",
			Help:      "Total number of document ingest operations",
		},
		[]string{"status"},
	)

	RetrievalMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Name:      "retrieval_matches",
			Help:      "Number of matches returned per retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "completion_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Name:      "completion_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "completion_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)
)

var ragMetricsRegistered bool

// RegisterRAGMetrics registers Prometheus RAG pipeline metrics. Must be called once from main.
func RegisterRAGMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestedSegmentsTotal)
	prometheus.MustRegister(IngestedDocumentsTotal)
	prometheus.MustRegister(RetrievalMatches)
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(CompletionRequestDuration)
	prometheus.MustRegister(CompletionTokensTotal)
	ragMetricsRegistered = true
}
