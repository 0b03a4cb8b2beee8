// Package metrics 汇总 locality-hub 的 Prometheus 指标，统一在启动阶段
// 注册一次，由注册表与路由层共享同一实例。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set 持有全部指标句柄。
type Set struct {
	ReportsReceived    *prometheus.CounterVec
	DecodeFailures     prometheus.Counter
	StatsParseFailures prometheus.Counter
	LocationReplaced   prometheus.Counter
	LocationKept       prometheus.Counter
	TrackedFiles       prometheus.Gauge
	TrackedExecutors   prometheus.Gauge
}

// New 创建并注册全部指标。重复注册同名指标会 panic，调用方应保证
// 每个 Registerer 只初始化一次。
func New(reg prometheus.Registerer) *Set {
	reportsReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locality_hub_reports_received_total",
		Help: "Total worker reports received, by kind",
	}, []string{"kind"})

	decodeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locality_hub_status_decode_failures_total",
		Help: "Total fiber-status payloads rejected by the codec",
	})

	statsParseFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locality_hub_stats_parse_failures_total",
		Help: "Total cache-stats payloads discarded after a parse failure",
	})

	locationReplaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locality_hub_location_replaced_total",
		Help: "File location entries inserted or replaced by a more complete report",
	})

	locationKept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locality_hub_location_kept_total",
		Help: "Reports discarded because an equal-or-better record already existed",
	})

	trackedFiles := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "locality_hub_tracked_files",
		Help: "Distinct files with a known cache location",
	})

	trackedExecutors := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "locality_hub_tracked_executors",
		Help: "Distinct executors with reported cache stats",
	})

	reg.MustRegister(
		reportsReceived,
		decodeFailures,
		statsParseFailures,
		locationReplaced,
		locationKept,
		trackedFiles,
		trackedExecutors,
	)

	return &Set{
		ReportsReceived:    reportsReceived,
		DecodeFailures:     decodeFailures,
		StatsParseFailures: statsParseFailures,
		LocationReplaced:   locationReplaced,
		LocationKept:       locationKept,
		TrackedFiles:       trackedFiles,
		TrackedExecutors:   trackedExecutors,
	}
}
