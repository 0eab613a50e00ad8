// Package scheduler 串联排班流程：初始排班、退火优化、岗位修复、可行性审计
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/roster/pkg/adjust"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/cost"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
	"github.com/paiban/roster/pkg/validator"
)

// Options 流程选项，nil 使用默认值
type Options struct {
	Optimizer      *optimizer.OptimizationConfig `json:"optimizer,omitempty"`
	SkipOptimize   bool                          `json:"skip_optimize,omitempty"`
	SkipCorrection bool                          `json:"skip_correction,omitempty"` // 默认执行岗位修复
	Detector       *validator.DetectorConfig     `json:"-"`
}

// DefaultOptions 默认选项
func DefaultOptions() *Options {
	return &Options{Optimizer: optimizer.DefaultOptConfig()}
}

// Plan 一次排班的完整结果
type Plan struct {
	ID           uuid.UUID              `json:"id"`
	Schedule     model.WeekSchedule     `json:"schedule"`
	Shortfalls   []solver.Shortfall     `json:"shortfalls,omitempty"`
	Build        *solver.Statistics     `json:"build"`
	Optimization *optimizer.Stats       `json:"optimization,omitempty"`
	InitialCost  float64                `json:"initial_cost"`
	Cost         cost.Breakdown         `json:"cost"`
	Correction   *adjust.Correction     `json:"correction,omitempty"`
	Report       *validator.Report      `json:"report"`
	Coverage     *stats.CoverageMetrics `json:"coverage"`
	Fairness     *stats.FairnessMetrics `json:"fairness"`
	Weights      model.Weights          `json:"weights"`
	Seed         int64                  `json:"seed"`
	CreatedAt    time.Time              `json:"created_at"`
	Duration     time.Duration          `json:"duration"`
}

// Partial 是否存在人手缺口
func (p *Plan) Partial() bool {
	return p.Report != nil && p.Report.UnderstaffedHours > 0
}

// Evaluation 对已有排班的评估
type Evaluation struct {
	Cost     cost.Breakdown         `json:"cost"`
	Report   *validator.Report      `json:"report"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
	Fairness *stats.FairnessMetrics `json:"fairness"`
}

// Apply 用评估结果刷新方案中的成本、审计和统计
func (ev *Evaluation) Apply(plan *Plan) {
	plan.Cost = ev.Cost
	plan.Report = ev.Report
	plan.Coverage = ev.Coverage
	plan.Fairness = ev.Fairness
}

// Engine 排班引擎，无状态，可并发使用
type Engine struct {
	logger *logger.SchedulerLogger
}

// NewEngine 创建排班引擎
func NewEngine() *Engine {
	return &Engine{logger: logger.NewSchedulerLogger("engine")}
}

// Run 执行完整流程：初始排班 -> 退火优化 -> 岗位修复 -> 审计 -> 最终成本
// 被取消时返回截至当时的最优排班（已审计）和 CANCELED 错误
func (e *Engine) Run(ctx context.Context, setup *model.Setup, weights model.Weights, opts *Options) (*Plan, error) {
	if setup == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "缺少排班配置")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	optConfig := opts.Optimizer
	if optConfig == nil {
		optConfig = optimizer.DefaultOptConfig()
	}

	start := time.Now()
	c := constraint.NewContext(setup)
	evaluator := cost.NewEvaluator(c, weights)

	plan := &Plan{
		ID:        uuid.New(),
		Weights:   evaluator.Weights(),
		Seed:      optConfig.Seed,
		CreatedAt: start,
	}

	built, runErr := solver.NewInitialBuilder().Build(ctx, c)
	if built == nil {
		return nil, runErr
	}
	plan.Schedule = built.Schedule
	plan.Shortfalls = built.Shortfalls
	plan.Build = built.Statistics

	initial, err := evaluator.Total(plan.Schedule)
	if err != nil {
		return nil, err
	}
	plan.InitialCost = initial

	if runErr == nil && !opts.SkipOptimize {
		res, err := optimizer.NewMultiChainOptimizer(optConfig, c, evaluator).Optimize(ctx, plan.Schedule)
		if res != nil {
			plan.Schedule = res.Best
			plan.Optimization = &res.Stats
		}
		if err != nil {
			if res == nil {
				return nil, err
			}
			runErr = err
		}
	}

	if runErr == nil && !opts.SkipCorrection {
		correction, err := adjust.NewAdjuster(c).CorrectRoles(plan.Schedule)
		if err != nil {
			return nil, err
		}
		plan.Correction = correction
	}

	if err := e.finish(c, evaluator, opts.Detector, plan); err != nil {
		return nil, err
	}
	plan.Duration = time.Since(start)

	logger.Info().
		Str("plan_id", plan.ID.String()).
		Int("assignments", plan.Schedule.Len()).
		Int("understaffed_hours", plan.Report.UnderstaffedHours).
		Bool("feasible", plan.Report.Feasible()).
		Float64("initial_cost", plan.InitialCost).
		Float64("final_cost", plan.Cost.Total).
		Dur("duration", plan.Duration).
		Msg("排班流程完成")

	if runErr != nil {
		e.logger.Warn("排班流程提前结束", runErr)
	}
	return plan, runErr
}

// finish 审计并计算最终成本
func (e *Engine) finish(c *constraint.Context, evaluator *cost.Evaluator, detector *validator.DetectorConfig, plan *Plan) error {
	report, err := validator.NewAuditor(c, detector).Audit(plan.Schedule)
	if err != nil {
		return err
	}
	breakdown, err := evaluator.Evaluate(plan.Schedule)
	if err != nil {
		return err
	}
	plan.Report = report
	plan.Cost = breakdown
	plan.Coverage = stats.NewCoverageAnalyzer(c).Analyze(plan.Schedule)
	plan.Fairness = stats.NewFairnessAnalyzer().Analyze(plan.Schedule, c.Workers)
	return nil
}

// Evaluate 对已有排班计算成本并审计，不修改排班
func (e *Engine) Evaluate(setup *model.Setup, s model.WeekSchedule, weights model.Weights) (*Evaluation, error) {
	c := constraint.NewContext(setup)
	return evaluate(c, s, weights)
}

func evaluate(c *constraint.Context, s model.WeekSchedule, weights model.Weights) (*Evaluation, error) {
	breakdown, err := cost.NewEvaluator(c, weights).Evaluate(s)
	if err != nil {
		return nil, err
	}
	report, err := validator.NewAuditor(c, nil).Audit(s)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Cost:     breakdown,
		Report:   report,
		Coverage: stats.NewCoverageAnalyzer(c).Analyze(s),
		Fairness: stats.NewFairnessAnalyzer().Analyze(s, c.Workers),
	}, nil
}

// Adjust 在排班的拷贝上执行人工指定，可选地随后修复岗位，返回新排班及其评估
func (e *Engine) Adjust(setup *model.Setup, s model.WeekSchedule, overrides []adjust.Override, correct bool, weights model.Weights) (model.WeekSchedule, []adjust.Outcome, *Evaluation, error) {
	c := constraint.NewContext(setup)
	adjuster := adjust.NewAdjuster(c)

	next := s.Clone()
	outcomes, err := adjuster.Apply(next, overrides)
	if err != nil {
		return nil, outcomes, nil, err
	}
	if correct {
		correction, err := adjuster.CorrectRoles(next)
		if err != nil {
			return nil, outcomes, nil, err
		}
		outcomes = append(outcomes, correction.Repaired...)
		outcomes = append(outcomes, correction.Unresolved...)
	}

	eval, err := evaluate(c, next, weights)
	if err != nil {
		return nil, outcomes, nil, err
	}
	return next, outcomes, eval, nil
}

// Recommend 列出可接手某时段的员工
func (e *Engine) Recommend(setup *model.Setup, s model.WeekSchedule, day model.Day, slot model.Slot, role string, limit int) ([]adjust.Recommendation, error) {
	return adjust.NewRecommender(constraint.NewContext(setup)).Recommend(s, day, slot, role, limit)
}
