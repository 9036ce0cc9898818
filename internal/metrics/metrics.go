// Registers:
//
//	#niftyflow_runs_total
//	#niftyflow_rows_fetched_total
//	#niftyflow_rows_dropped_total
//	#niftyflow_deliveries_total
//	#niftyflow_cache_writes_total
//	#niftyflow_log_issues_total
//	#niftyflow_run_duration_seconds
//	#go_* and process_* system metrics
//
// on a dedicated registry that the trigger server exposes on /metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"niftyflow/logger"
)

const namespace = "niftyflow"

var (
	once     sync.Once
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	rowsFetched    *prometheus.CounterVec
	rowsDropped    *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	cacheWrites    *prometheus.CounterVec
	logIssues      *prometheus.CounterVec
	runDurationSec *prometheus.HistogramVec
)

// Init builds the registry once and hooks warning/error logs into it.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by source and final status",
			},
			[]string{"source", "status"},
		)
		rowsFetched = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_fetched_total",
				Help:      "Strike rows returned by the option chain source",
			},
			[]string{"source"},
		)
		rowsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_dropped_total",
				Help:      "Strike rows discarded during delta computation",
			},
			[]string{"source"},
		)
		deliveries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Telegram messages by delivery result",
			},
			[]string{"result"},
		)
		cacheWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_writes_total",
				Help:      "Snapshot cache writes by result",
			},
			[]string{"result"},
		)
		logIssues = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_issues_total",
				Help:      "Warnings and errors logged per component",
			},
			[]string{"level", "component"},
		)
		runDurationSec = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a pipeline run",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"source"},
		)

		registry.MustRegister(
			runsTotal, rowsFetched, rowsDropped, deliveries,
			cacheWrites, logIssues, runDurationSec,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		logger.SetIssueRecorder(func(level, component string) {
			logIssues.WithLabelValues(level, component).Inc()
		})
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// RecordRun counts a finished run and observes its duration.
func RecordRun(source, status string, duration time.Duration) {
	Init()
	runsTotal.WithLabelValues(source, status).Inc()
	runDurationSec.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordRows(source string, fetched, dropped int) {
	Init()
	if fetched > 0 {
		rowsFetched.WithLabelValues(source).Add(float64(fetched))
	}
	if dropped > 0 {
		rowsDropped.WithLabelValues(source).Add(float64(dropped))
	}
}

func RecordDelivery(ok bool) {
	Init()
	deliveries.WithLabelValues(result(ok)).Inc()
}

func RecordCacheWrite(ok bool) {
	Init()
	cacheWrites.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
