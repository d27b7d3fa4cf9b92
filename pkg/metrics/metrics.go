package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the sorter station metrics. Every vector carries a service
// label so dashboards shared with other WMS services keep working.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Upstream (WMS) calls
	UpstreamRequests        *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Sorter business metrics
	ScansTotal           *prometheus.CounterVec
	ScanRejections       *prometheus.CounterVec
	GridsCompleted       prometheus.Counter
	WavesCompleted       prometheus.Counter
	SourceContainersDone prometheus.Counter
	SnapshotRebuilds     *prometheus.CounterVec
	SnapshotDropped      prometheus.Counter
	StationGeneration    prometheus.Gauge
	GridsByStatus        *prometheus.GaugeVec
	FeedbackTotal        *prometheus.CounterVec
	Resynchronizations   *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	service := prometheus.Labels{"service": config.ServiceName}
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service", "method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: service,
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "kafka_events_published_total",
		Help:      "Total number of Kafka events published",
	}, []string{"service", "topic", "event_type", "status"})

	m.KafkaPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "kafka_publish_duration_seconds",
		Help:      "Kafka publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "topic"})

	m.MongoDBOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "mongodb_operations_total",
		Help:      "Total number of MongoDB operations",
	}, []string{"service", "collection", "operation", "status"})

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "mongodb_operation_duration_seconds",
		Help:      "MongoDB operation duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"service", "collection", "operation"})

	m.UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sorter_upstream_requests_total",
		Help:      "Calls made to the upstream WMS API",
	}, []string{"service", "endpoint", "status"})

	m.UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "sorter_upstream_request_duration_seconds",
		Help:      "Upstream WMS API call duration in seconds",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service", "endpoint"})

	m.ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sorter_scans_total",
		Help:      "Operator scans by kind and outcome",
	}, []string{"service", "kind", "result"})

	m.ScanRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sorter_scan_rejections_total",
		Help:      "Rejected scans by reason",
	}, []string{"service", "reason"})

	m.GridsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "sorter_grids_completed_total",
		Help:        "Grids whose order was fully sorted",
		ConstLabels: service,
	})

	m.WavesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "sorter_waves_completed_total",
		Help:        "Waves whose every order was fully sorted",
		ConstLabels: service,
	})

	m.SourceContainersDone = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "sorter_source_containers_completed_total",
		Help:        "Source containers fully worked",
		ConstLabels: service,
	})

	m.SnapshotRebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sorter_snapshot_rebuilds_total",
		Help:      "Station rebuilds from an upstream snapshot",
	}, []string{"service", "status"})

	m.SnapshotDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "sorter_snapshot_dropped_orders_total",
		Help:        "Orders ignored because their grid record already had one",
		ConstLabels: service,
	})

	m.StationGeneration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "sorter_station_generation",
		Help:        "Current station data generation",
		ConstLabels: service,
	})

	m.GridsByStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "sorter_grids",
		Help:      "Grids by status in the current generation",
	}, []string{"service", "status"})

	m.FeedbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sorter_feedback_total",
		Help:      "Feedback reports sent upstream",
	}, []string{"service", "kind", "status"})

	m.Resynchronizations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sorter_resynchronizations_total",
		Help:      "Full refreshes forced by a failed feedback report",
	}, []string{"service", "kind", "status"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"service", "name"})

	m.CircuitBreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	}, []string{"service", "name"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.UpstreamRequests,
		m.UpstreamRequestDuration,
		m.ScansTotal,
		m.ScanRejections,
		m.GridsCompleted,
		m.WavesCompleted,
		m.SourceContainersDone,
		m.SnapshotRebuilds,
		m.SnapshotDropped,
		m.StationGeneration,
		m.GridsByStatus,
		m.FeedbackTotal,
		m.Resynchronizations,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementHTTPRequestsInFlight() { m.HTTPRequestsInFlight.Inc() }
func (m *Metrics) DecrementHTTPRequestsInFlight() { m.HTTPRequestsInFlight.Dec() }

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one call to the WMS API
func (m *Metrics) RecordUpstreamRequest(endpoint string, success bool, duration time.Duration) {
	m.UpstreamRequests.WithLabelValues(m.serviceName, endpoint, statusLabel(success)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(m.serviceName, endpoint).Observe(duration.Seconds())
}

// RecordScan records an accepted scan of the given kind (sku, container)
func (m *Metrics) RecordScan(kind string) {
	m.ScansTotal.WithLabelValues(m.serviceName, kind, "accepted").Inc()
}

// RecordScanRejected records a refused scan
func (m *Metrics) RecordScanRejected(kind, reason string) {
	m.ScansTotal.WithLabelValues(m.serviceName, kind, "rejected").Inc()
	m.ScanRejections.WithLabelValues(m.serviceName, reason).Inc()
}

func (m *Metrics) RecordGridCompleted()            { m.GridsCompleted.Inc() }
func (m *Metrics) RecordWaveCompleted()            { m.WavesCompleted.Inc() }
func (m *Metrics) RecordSourceContainerCompleted() { m.SourceContainersDone.Inc() }

// RecordSnapshotRebuild records a rebuild attempt and, on success, the new
// generation and grid occupancy.
func (m *Metrics) RecordSnapshotRebuild(success bool, generation uint64, dropped int) {
	m.SnapshotRebuilds.WithLabelValues(m.serviceName, statusLabel(success)).Inc()
	if !success {
		return
	}
	m.StationGeneration.Set(float64(generation))
	if dropped > 0 {
		m.SnapshotDropped.Add(float64(dropped))
	}
}

// SetGridsByStatus publishes the grid occupancy gauge
func (m *Metrics) SetGridsByStatus(counts map[string]int) {
	for status, n := range counts {
		m.GridsByStatus.WithLabelValues(m.serviceName, status).Set(float64(n))
	}
}

// RecordFeedback records one feedback report sent upstream
func (m *Metrics) RecordFeedback(kind string, success bool) {
	m.FeedbackTotal.WithLabelValues(m.serviceName, kind, statusLabel(success)).Inc()
}

// RecordResynchronization records a refresh forced by a failed feedback of kind
func (m *Metrics) RecordResynchronization(kind string, success bool) {
	m.Resynchronizations.WithLabelValues(m.serviceName, kind, statusLabel(success)).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
