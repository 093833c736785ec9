// Package metrics exposes Prometheus collectors for the anomaly check path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace 指标前缀
const Namespace = "loganomaly"

// Verdict label values.
const (
	VerdictNormal    = "normal"
	VerdictAnomalous = "anomalous"
	VerdictError     = "error"
)

// Collector 指标收集器，使用独立的Registry
type Collector struct {
	registry *prometheus.Registry

	checksTotal         *prometheus.CounterVec
	upstreamErrorsTotal *prometheus.CounterVec
	checkDuration       prometheus.Histogram
	baselinePoints      prometheus.Gauge
}

// NewCollector 创建并注册全部指标
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "checks_total",
			Help:      "Total number of log checks by verdict",
		},
		[]string{"verdict"},
	)

	c.upstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_errors_total",
			Help:      "Embedding and vector store failures by error code",
		},
		[]string{"code"},
	)

	c.checkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "check_duration_seconds",
			Help:      "Latency of a log check including embedding and search",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.baselinePoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "baseline_points",
			Help:      "Number of baseline points indexed at startup",
		},
	)

	c.registry.MustRegister(
		c.checksTotal,
		c.upstreamErrorsTotal,
		c.checkDuration,
		c.baselinePoints,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveCheck 记录一次检查的结果与耗时
func (c *Collector) ObserveCheck(verdict string, duration time.Duration) {
	c.checksTotal.WithLabelValues(verdict).Inc()
	c.checkDuration.Observe(duration.Seconds())
}

// UpstreamError 记录上游错误
func (c *Collector) UpstreamError(code string) {
	c.upstreamErrorsTotal.WithLabelValues(code).Inc()
}

// SetBaselinePoints 记录基线点数量
func (c *Collector) SetBaselinePoints(n int) {
	c.baselinePoints.Set(float64(n))
}

// Registry 返回底层Registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回Prometheus指标的HTTP处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
