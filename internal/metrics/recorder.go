package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 预测来源标签值。
const (
	SourceComputed = "computed"
	SourceCache    = "cache"
)

// Recorder 汇总引擎与外围组件的 Prometheus 指标。
// 允许 nil 接收者，测试中可直接传 nil 关闭采集。
type Recorder struct {
	forecastsTotal  *prometheus.CounterVec
	ephemErrors     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	forecastSeconds *prometheus.HistogramVec
}

// New 注册全部指标。reg 为 nil 时使用默认注册表。
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		forecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "muhurta_forecasts_total",
				Help: "Session forecasts served, by market and source",
			},
			[]string{"market", "source"},
		),
		ephemErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "muhurta_ephemeris_errors_total",
				Help: "Moon position lookups that failed, by source",
			},
			[]string{"source"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "muhurta_notifications_total",
				Help: "Notification deliveries, by channel and status",
			},
			[]string{"channel", "status"},
		),
		forecastSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "muhurta_forecast_duration_seconds",
				Help:    "Wall time of full session forecast computation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"market"},
		),
	}
}

// RecordForecast 统计一次预测请求的出口（计算或缓存命中）。
func (r *Recorder) RecordForecast(market, source string) {
	if r == nil {
		return
	}
	r.forecastsTotal.WithLabelValues(market, source).Inc()
}

// RecordEphemerisError 统计星历源失败。
func (r *Recorder) RecordEphemerisError(source string) {
	if r == nil {
		return
	}
	r.ephemErrors.WithLabelValues(source).Inc()
}

// RecordNotification 统计一次通知投递结果。
func (r *Recorder) RecordNotification(channel, status string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(channel, status).Inc()
}

// ObserveForecastDuration 记录整场推演耗时（秒）。
func (r *Recorder) ObserveForecastDuration(market string, seconds float64) {
	if r == nil {
		return
	}
	r.forecastSeconds.WithLabelValues(market).Observe(seconds)
}
