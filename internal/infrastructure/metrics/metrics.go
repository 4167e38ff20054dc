package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Diagrams
	DiagramsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_diagrams_created_total",
			Help: "Diagrams persisted by source",
		},
		[]string{"source"}, // source: description|chat|specification|hcl
	)
	GenerationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archdiagram_generation_duration_seconds",
			Help:    "End-to-end duration of description to diagram generation",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s..128s
		},
	)

	// Rendering
	RenderRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_render_runs_total",
			Help: "Number of render runs by result",
		},
		[]string{"result"}, // result: ok|unknown_type|error
	)
	RenderDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archdiagram_render_duration_seconds",
			Help:    "Duration of render runs",
			Buckets: prometheus.DefBuckets,
		},
	)
	SkippedConnections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archdiagram_render_skipped_connections_total",
			Help: "Connections skipped at render time because an endpoint was missing",
		},
	)

	// LLM
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_llm_requests_total",
			Help: "Number of LLM requests by model",
		},
		[]string{"model"},
	)

	// Storage
	RepositoryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_repository_ops_total",
			Help: "Diagram repository operations performed",
		},
		[]string{"backend", "op"}, // op: save|get|list|delete
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_cache_lookups_total",
			Help: "Diagram cache lookups by result",
		},
		[]string{"result"}, // result: hit|miss
	)
	ImageOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_image_ops_total",
			Help: "Image store operations performed",
		},
		[]string{"store", "op"}, // op: publish|open|delete
	)

	// Agents / sessions
	AgentsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "archdiagram_agents_in_flight",
			Help: "Agents currently executing a request",
		},
	)
	ChatSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "archdiagram_chat_sessions",
			Help: "Current number of open chat sessions",
		},
	)

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_http_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)
	HTTPDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archdiagram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archdiagram_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Diagrams
		DiagramsCreated,
		GenerationDurationSeconds,
		// Rendering
		RenderRuns,
		RenderDurationSeconds,
		SkippedConnections,
		// LLM
		LLMRequests,
		// Storage
		RepositoryOps,
		CacheLookups,
		ImageOps,
		// Agents / sessions
		AgentsInFlight,
		ChatSessions,
		// HTTP
		HTTPRequests,
		HTTPDurationSeconds,
		// Errors
		Errors,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer serves /metrics on a dedicated listener.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}

// Diagrams
func IncDiagramsCreated(source string) {
	DiagramsCreated.WithLabelValues(source).Inc()
}

func ObserveGenerationDuration(d time.Duration) {
	GenerationDurationSeconds.Observe(d.Seconds())
}

// Rendering
func IncRenderRun(result string) {
	RenderRuns.WithLabelValues(result).Inc()
}

func ObserveRenderDuration(d time.Duration) {
	RenderDurationSeconds.Observe(d.Seconds())
}

func AddSkippedConnections(n int) {
	SkippedConnections.Add(float64(n))
}

// LLM
func IncLLMRequest(model string) {
	LLMRequests.WithLabelValues(model).Inc()
}

// Storage
func IncRepositoryOp(backend, op string) {
	RepositoryOps.WithLabelValues(backend, op).Inc()
}

func IncCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

func IncImageOp(store, op string) {
	ImageOps.WithLabelValues(store, op).Inc()
}

// Agents / sessions
func IncAgentsInFlight() { AgentsInFlight.Inc() }
func DecAgentsInFlight() { AgentsInFlight.Dec() }

func IncChatSessions() { ChatSessions.Inc() }
func DecChatSessions() { ChatSessions.Dec() }

// HTTP
func ObserveHTTPRequest(method, path, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, path, status).Inc()
	HTTPDurationSeconds.WithLabelValues(method, path).Observe(d.Seconds())
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
