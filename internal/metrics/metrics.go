// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/roster/pkg/adjust"
	"github.com/paiban/roster/pkg/scheduler"
)

// Registry 应用自己的指标注册表，不使用全局默认注册表
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// =============================================================================
// HTTP
// =============================================================================

// HTTPRequestsTotal HTTP请求总数
var HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roster",
	Name:      "http_requests_total",
	Help:      "HTTP请求总数",
}, []string{"method", "path", "status"})

// HTTPRequestDuration HTTP请求延迟
var HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "roster",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP请求延迟",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
}, []string{"method", "path"})

// =============================================================================
// 排班流程
// =============================================================================

// ScheduleGenerationTotal 排班生成次数
var ScheduleGenerationTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roster",
	Name:      "schedule_generation_total",
	Help:      "排班生成次数",
}, []string{"source", "status"})

// ScheduleGenerationDuration 排班生成耗时
var ScheduleGenerationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "roster",
	Name:      "schedule_generation_duration_seconds",
	Help:      "排班生成耗时",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
}, []string{"source"})

// ShortfallsTotal 初始排班中无法满足的时段数
var ShortfallsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "roster",
	Name:      "shortfalls_total",
	Help:      "初始排班无法满足的 (天, 时段, 岗位) 数",
})

// UnderstaffedHours 最近一次排班的缺口人时
var UnderstaffedHours = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "roster",
	Name:      "understaffed_hours",
	Help:      "最近一次排班的缺口人时",
})

// OptimizerIterations 退火迭代次数
var OptimizerIterations = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "roster",
	Name:      "optimizer_iterations",
	Help:      "每次排班的退火迭代次数",
	Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
})

// OptimizerMovesTotal 退火候选按结果分类
var OptimizerMovesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roster",
	Name:      "optimizer_moves_total",
	Help:      "退火候选移动数，按结果分类",
}, []string{"result"})

// SolutionCost 最近一次排班的最终成本
var SolutionCost = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roster",
	Name:      "solution_cost",
	Help:      "最近一次排班的成本，按分项",
}, []string{"component"})

// CoverageRate 最近一次排班的覆盖率 (%)
var CoverageRate = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "roster",
	Name:      "coverage_rate",
	Help:      "最近一次排班的覆盖率",
})

// FairnessGini 最近一次排班的基尼系数
var FairnessGini = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roster",
	Name:      "fairness_gini",
	Help:      "最近一次排班的公平性基尼系数",
}, []string{"metric_type"})

// AdjustmentsTotal 调整操作按结果分类
var AdjustmentsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roster",
	Name:      "adjustments_total",
	Help:      "排班调整操作数，按结果分类",
}, []string{"status"})

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScheduleGeneration 记录排班生成指标
func RecordScheduleGeneration(source string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ScheduleGenerationTotal.WithLabelValues(source, status).Inc()
	ScheduleGenerationDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordPlan 记录一次排班流程的结果，plan 为 nil 时只记录失败
func RecordPlan(source string, plan *scheduler.Plan, err error) {
	if plan == nil {
		RecordScheduleGeneration(source, false, 0)
		return
	}
	RecordScheduleGeneration(source, err == nil, plan.Duration)

	ShortfallsTotal.Add(float64(len(plan.Shortfalls)))
	if plan.Report != nil {
		UnderstaffedHours.Set(float64(plan.Report.UnderstaffedHours))
	}
	if st := plan.Optimization; st != nil {
		OptimizerIterations.Observe(float64(st.Iterations))
		OptimizerMovesTotal.WithLabelValues("accepted").Add(float64(st.Accepted))
		OptimizerMovesTotal.WithLabelValues("rejected").Add(float64(st.Rejected))
		OptimizerMovesTotal.WithLabelValues("improved").Add(float64(st.Improvements))
		OptimizerMovesTotal.WithLabelValues("discarded").Add(float64(st.Discarded))
	}

	SetSolutionCost("labor", plan.Cost.Labor)
	SetSolutionCost("fairness", plan.Cost.Fairness)
	SetSolutionCost("preference", plan.Cost.Preference)
	SetSolutionCost("total", plan.Cost.Total)

	if plan.Coverage != nil {
		SetCoverageRate(plan.Coverage.OverallCoverage)
	}
	if plan.Fairness != nil {
		SetFairnessGini("workload", plan.Fairness.WorkloadGini)
		SetFairnessGini("late", plan.Fairness.LateShiftGini)
		SetFairnessGini("weekend", plan.Fairness.WeekendShiftGini)
	}
	if plan.Correction != nil {
		RecordAdjustments(plan.Correction.Repaired)
		RecordAdjustments(plan.Correction.Unresolved)
	}
}

// RecordAdjustments 记录调整结果
func RecordAdjustments(outcomes []adjust.Outcome) {
	for _, o := range outcomes {
		AdjustmentsTotal.WithLabelValues(string(o.Status)).Inc()
	}
}

// SetSolutionCost 设置成本分项
func SetSolutionCost(component string, value float64) {
	SolutionCost.WithLabelValues(component).Set(value)
}

// SetFairnessGini 设置公平性基尼系数
func SetFairnessGini(metricType string, gini float64) {
	FairnessGini.WithLabelValues(metricType).Set(gini)
}

// SetCoverageRate 设置覆盖率
func SetCoverageRate(rate float64) {
	CoverageRate.Set(rate)
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
