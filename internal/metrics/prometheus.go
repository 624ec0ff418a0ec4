package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Exchange metrics
	ExchangeAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_exchange_api_calls_total",
			Help: "Total number of exchange API calls",
		},
		[]string{"endpoint", "status"}, // status: success|error
	)

	ExchangeAPIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_exchange_api_errors_total",
			Help: "Total number of exchange API errors by exchange code",
		},
		[]string{"endpoint", "code"},
	)

	ExchangeAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinm_exchange_api_latency_seconds",
			Help:    "Exchange API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	ExchangeUsedWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coinm_exchange_used_weight",
			Help: "Last request weight / order count reported by the exchange headers",
		},
		[]string{"header"},
	)

	ExchangeClockOffset = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coinm_exchange_clock_offset_ms",
			Help: "Server time minus local time in milliseconds, as of the last sync",
		},
	)

	// Order id metrics
	ClientOrderIDsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_client_order_ids_generated_total",
			Help: "Client order ids generated locally",
		},
		[]string{"category"},
	)

	ClientOrderIDWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_client_order_id_prefix_warnings_total",
			Help: "Caller supplied client order ids without the expected prefix",
		},
		[]string{"category", "property"},
	)

	// Batch metrics
	BatchOrderResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_batch_order_results_total",
			Help: "Per element outcome of batch order requests",
		},
		[]string{"operation", "status"}, // status: accepted|rejected
	)

	// Journal / events
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)

	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinm_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// User data stream
	UserDataConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coinm_userdata_connections",
			Help: "Current number of active user data stream connections",
		},
	)

	UserDataListenKeyRenewals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinm_userdata_listenkey_renewals_total",
			Help: "Total number of listenKey renewal operations",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with the default Prometheus registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ExchangeAPICalls,
			ExchangeAPIErrors,
			ExchangeAPILatency,
			ExchangeUsedWeight,
			ExchangeClockOffset,
			ClientOrderIDsGenerated,
			ClientOrderIDWarnings,
			BatchOrderResults,
			KafkaMessages,
			DBQueries,
			DBQueryDuration,
			UserDataConnections,
			UserDataListenKeyRenewals,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordExchangeAPICall records an exchange API call. code is the exchange error code, 0 when unknown.
func RecordExchangeAPICall(endpoint string, latency time.Duration, err error, code string) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ExchangeAPICalls.WithLabelValues(endpoint, status).Inc()
	ExchangeAPILatency.WithLabelValues(endpoint).Observe(latency.Seconds())

	if err != nil {
		if code == "" {
			code = "unknown"
		}
		ExchangeAPIErrors.WithLabelValues(endpoint, code).Inc()
	}
}

// RecordBatchResults records accepted and rejected element counts of one batch call
func RecordBatchResults(operation string, accepted, rejected int) {
	if accepted > 0 {
		BatchOrderResults.WithLabelValues(operation, "accepted").Add(float64(accepted))
	}
	if rejected > 0 {
		BatchOrderResults.WithLabelValues(operation, "rejected").Add(float64(rejected))
	}
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records one produced message
func RecordKafkaMessage(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, status).Inc()
}
