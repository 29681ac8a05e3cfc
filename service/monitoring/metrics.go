/*
 * @module service/monitoring/metrics
 * @description 运行指标：分析运行计数与各阶段耗时直方图，经/metrics暴露
 * @architecture 监控层 - prometheus默认注册表
 * @stateFlow 管线各阶段打点 -> 默认注册表 -> promhttp导出
 * @rules 指标注册一次性发生在包初始化，阶段标签使用图节点名
 * @dependencies github.com/prometheus/client_golang
 * @refs service/pipeline/pipeline.go, main.go
 */

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal 分析运行计数，按结果状态区分
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recomind_analysis_runs_total",
		Help: "分析运行总数",
	}, []string{"status"})

	// StageDuration 各阶段耗时直方图
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recomind_stage_duration_seconds",
		Help:    "管线阶段耗时",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})

	// IngestionsTotal 结构采集计数
	IngestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recomind_schema_ingestions_total",
		Help: "租户结构采集总数",
	}, []string{"status"})

	// QueueDepth 队列中等待的任务数
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recomind_task_queue_depth",
		Help: "任务队列深度",
	})
)

// ObserveStage 记录单个阶段耗时
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
