// Package metrics provides Prometheus collectors for the funding platform,
// covering HTTP, database and the business counters of the capital core.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// Metrics is the collector set of the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration prometheus.Histogram

	DBQueriesTotal  prometheus.Counter
	DBQueryDuration prometheus.Histogram

	InvestmentsIssuedTotal  prometheus.Counter
	InvestmentsIssuedAmount prometheus.Counter
	PayoutRunsTotal         prometheus.Counter
	PayoutFailuresTotal     prometheus.Counter
	PayoutDistributedAmount prometheus.Counter
	SchedulesDue            prometheus.Gauge
	ScenarioRunsTotal       prometheus.Counter
	CopyReplicationsTotal   prometheus.Counter
	CopyReplicationFailures prometheus.Counter
	StopLossBreachesTotal   prometheus.Counter
}

// New creates the collector set namespaced under the service name.
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		InvestmentsIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "investments_issued_total",
			Help:      "Total investments issued on SPVs",
		}),
		InvestmentsIssuedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "investments_issued_amount",
			Help:      "Cumulative cash contributed through issuance",
		}),
		PayoutRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "payout_runs_total",
			Help:      "Total completed distribution runs",
		}),
		PayoutFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "payout_failures_total",
			Help:      "Total failed distribution attempts",
		}),
		PayoutDistributedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "payout_distributed_amount",
			Help:      "Cumulative cash distributed to shareholders",
		}),
		SchedulesDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "payout_schedules_due",
			Help:      "Schedules due at the last tick",
		}),
		ScenarioRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "scenario_runs_total",
			Help:      "Total completed scenario simulations",
		}),
		CopyReplicationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "copy_replications_total",
			Help:      "Total trader actions replicated into follower portfolios",
		}),
		CopyReplicationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "copy_replication_failures_total",
			Help:      "Total per-follower replication failures",
		}),
		StopLossBreachesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "copy_stop_loss_breaches_total",
			Help:      "Total copy followings auto-paused by stop loss",
		}),
	}
}

// Register registers every collector with the default registerer.
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.InvestmentsIssuedTotal,
		m.InvestmentsIssuedAmount,
		m.PayoutRunsTotal,
		m.PayoutFailuresTotal,
		m.PayoutDistributedAmount,
		m.SchedulesDue,
		m.ScenarioRunsTotal,
		m.CopyReplicationsTotal,
		m.CopyReplicationFailures,
		m.StopLossBreachesTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "metrics registered")
	return nil
}

// StartHTTPServer exposes the Prometheus handler on its own port.
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "starting metrics server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "metrics server failed", "error", err)
		}
	}()
}
