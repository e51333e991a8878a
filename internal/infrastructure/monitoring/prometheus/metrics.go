package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Resolver Layer (upstream compound data sources)
	ResolverRequestsTotal    CounterVec
	ResolverRequestDuration  HistogramVec
	ResolverThrottleDuration HistogramVec

	// Classification Layer
	ClassificationsTotal   CounterVec
	ClassificationDuration HistogramVec
	StructureParseFailures CounterVec
	FingerprintDuration    HistogramVec

	// Sorting Layer
	SortRunsTotal                CounterVec
	SortRunDuration              HistogramVec
	SortBatchSize                HistogramVec
	PlacementsTotal              CounterVec
	CustomGroupsCreatedTotal     CounterVec
	CompatibilityRejectionsTotal CounterVec

	// Storage Layer
	StorageGroupCount GaugeVec

	// Search Layer
	StatementSearchDuration  HistogramVec
	SimilaritySearchDuration HistogramVec

	// Infrastructure Layer
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessageQueueDepth      GaugeVec
	MessageProcessDuration HistogramVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultResolverDurationBuckets = []float64{.1, .25, .5, 1, 2, 5, 10, 30}
	DefaultSortDurationBuckets     = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultGRPCDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	DefaultSizeBuckets             = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultBatchSizeBuckets        = []float64{1, 5, 10, 25, 50, 100, 250, 500}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultSizeBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Resolver
	m.ResolverRequestsTotal = collector.RegisterCounter("resolver_requests_total", "Upstream resolver requests", "source", "operation", "status")
	m.ResolverRequestDuration = collector.RegisterHistogram("resolver_request_duration_seconds", "Upstream resolver request duration", DefaultResolverDurationBuckets, "source", "operation")
	m.ResolverThrottleDuration = collector.RegisterHistogram("resolver_throttle_duration_seconds", "Time spent waiting on the resolver rate limiter", DefaultResolverDurationBuckets, "source")

	// Classification
	m.ClassificationsTotal = collector.RegisterCounter("classifications_total", "Acid/base classifications", "classification")
	m.ClassificationDuration = collector.RegisterHistogram("classification_duration_seconds", "Acid/base classification duration", DefaultDBDurationBuckets)
	m.StructureParseFailures = collector.RegisterCounter("structure_parse_failures_total", "SMILES parse failures", "source")
	m.FingerprintDuration = collector.RegisterHistogram("fingerprint_duration_seconds", "Fingerprint generation duration", DefaultDBDurationBuckets, "type")

	// Sorting
	m.SortRunsTotal = collector.RegisterCounter("sort_runs_total", "Storage sort runs", "status")
	m.SortRunDuration = collector.RegisterHistogram("sort_run_duration_seconds", "Storage sort run duration", DefaultSortDurationBuckets, "trigger")
	m.SortBatchSize = collector.RegisterHistogram("sort_batch_size", "Compounds per sort run", DefaultBatchSizeBuckets, "trigger")
	m.PlacementsTotal = collector.RegisterCounter("placements_total", "Compound placements", "group", "state")
	m.CustomGroupsCreatedTotal = collector.RegisterCounter("custom_groups_created_total", "Overflow custom storage groups created")
	m.CompatibilityRejectionsTotal = collector.RegisterCounter("compatibility_rejections_total", "Placements rejected by a compatibility rule", "rule")

	// Storage
	m.StorageGroupCount = collector.RegisterGauge("storage_group_count", "Registered storage groups", "kind")

	// Search
	m.StatementSearchDuration = collector.RegisterHistogram("statement_search_duration_seconds", "Hazard statement search duration", DefaultHTTPDurationBuckets, "index")
	m.SimilaritySearchDuration = collector.RegisterHistogram("similarity_search_duration_seconds", "Fingerprint similarity search duration", DefaultHTTPDurationBuckets, "collection")

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessageQueueDepth = collector.RegisterGauge("mq_depth", "Message queue depth", "queue")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "queue", "message_type")

	// System Health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RegisterAppMetrics is an alias for NewAppMetrics.
func RegisterAppMetrics(collector MetricsCollector) *AppMetrics {
	return NewAppMetrics(collector)
}

// GRPCMetrics holds metrics for the gRPC interface.
type GRPCMetrics struct {
	UnaryRequestsTotal    CounterVec
	UnaryRequestDuration  HistogramVec
	StreamRequestsTotal   CounterVec
	StreamRequestDuration HistogramVec
}

// NewGRPCMetrics registers gRPC server metrics.
func NewGRPCMetrics(collector MetricsCollector) *GRPCMetrics {
	return &GRPCMetrics{
		UnaryRequestsTotal:    collector.RegisterCounter("grpc_unary_requests_total", "Unary gRPC requests", "service", "method", "code"),
		UnaryRequestDuration:  collector.RegisterHistogram("grpc_unary_request_duration_seconds", "Unary gRPC request duration", DefaultGRPCDurationBuckets, "service", "method"),
		StreamRequestsTotal:   collector.RegisterCounter("grpc_stream_requests_total", "Streaming gRPC requests", "service", "method", "code"),
		StreamRequestDuration: collector.RegisterHistogram("grpc_stream_request_duration_seconds", "Streaming gRPC request duration", DefaultGRPCDurationBuckets, "service", "method"),
	}
}

// RecordUnaryRequest records one completed unary gRPC call.
func (m *GRPCMetrics) RecordUnaryRequest(service, method, code string, duration time.Duration) {
	m.UnaryRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.UnaryRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordStreamRequest records one completed streaming gRPC call.
func (m *GRPCMetrics) RecordStreamRequest(service, method, code string, duration time.Duration) {
	m.StreamRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.StreamRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

func RecordResolverRequest(metrics *AppMetrics, source, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.ResolverRequestsTotal.WithLabelValues(source, operation, status).Inc()
	metrics.ResolverRequestDuration.WithLabelValues(source, operation).Observe(duration.Seconds())
}

func RecordClassification(metrics *AppMetrics, classification string, duration time.Duration) {
	metrics.ClassificationsTotal.WithLabelValues(classification).Inc()
	metrics.ClassificationDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordSortRun(metrics *AppMetrics, trigger string, success bool, batchSize int, customCreated int, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.SortRunsTotal.WithLabelValues(status).Inc()
	metrics.SortRunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	metrics.SortBatchSize.WithLabelValues(trigger).Observe(float64(batchSize))
	if customCreated > 0 {
		metrics.CustomGroupsCreatedTotal.WithLabelValues().Add(float64(customCreated))
	}
}

func RecordPlacement(metrics *AppMetrics, group, state string) {
	metrics.PlacementsTotal.WithLabelValues(group, state).Inc()
}

func RecordCompatibilityRejection(metrics *AppMetrics, rule string) {
	metrics.CompatibilityRejectionsTotal.WithLabelValues(rule).Inc()
}

func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error", "error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}

//Personal.AI order the ending
