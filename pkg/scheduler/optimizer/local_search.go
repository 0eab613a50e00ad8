// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/cost"
)

// Optimizer 优化器接口
type Optimizer interface {
	Optimize(ctx context.Context, initial model.WeekSchedule) (*Result, error)
}

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	InitialTemp   float64    `json:"initial_temp" validate:"gte=0"`               // 初始温度
	CoolingRate   float64    `json:"cooling_rate" validate:"gt=0,lt=1"`           // 每次迭代的降温系数 (0, 1)
	MaxIterations int        `json:"max_iterations" validate:"gte=0,lte=1000000"` // 固定迭代次数，不提前停止
	Seed          int64      `json:"seed"`                                        // 随机种子，相同种子结果相同
	Chains        int        `json:"chains" validate:"gte=0,lte=32"`              // 独立退火链数量
	Moves         []MoveType `json:"moves,omitempty" validate:"omitempty,dive,gte=0,lte=4"`
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		InitialTemp:   1000,
		CoolingRate:   0.995,
		MaxIterations: 10000,
		Seed:          1,
		Chains:        1,
	}
}

// Stats 优化统计
type Stats struct {
	Iterations   int            `json:"iterations"`
	Accepted     int            `json:"accepted"`
	Rejected     int            `json:"rejected"`
	Improvements int            `json:"improvements"`
	Discarded    int            `json:"discarded"` // 违反硬约束被丢弃的候选
	NoOps        int            `json:"no_ops"`    // 前置条件不满足的移动
	FinalTemp    float64        `json:"final_temp"`
	MoveCounts   map[string]int `json:"move_counts"`
}

// Result 优化结果
type Result struct {
	Best        model.WeekSchedule `json:"best"`
	BestCost    float64            `json:"best_cost"`
	InitialCost float64            `json:"initial_cost"`
	Chain       int                `json:"chain"`
	Stats       Stats              `json:"stats"`
	Duration    time.Duration      `json:"duration"`
}

// AcceptanceProbability Metropolis 准则：更优解为 1，否则为 exp((current - candidate) / T)
// 温度不大于 0 时不接受更差的解
func AcceptanceProbability(current, candidate, temperature float64) float64 {
	if candidate < current {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp((current - candidate) / temperature)
}

// Accept 按接受概率决定是否接受候选；只有在候选不更优时才消耗随机数
func Accept(rng *rand.Rand, current, candidate, temperature float64) bool {
	if candidate < current {
		return true
	}
	return rng.Float64() < AcceptanceProbability(current, candidate, temperature)
}

// LocalSearchOptimizer 模拟退火优化器，单线程，每次运行独占自己的排班拷贝
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	c         *constraint.Context
	evaluator *cost.Evaluator
	logger    *logger.SchedulerLogger
}

// NewLocalSearchOptimizer 创建模拟退火优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, c *constraint.Context, evaluator *cost.Evaluator) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &LocalSearchOptimizer{
		config:    config,
		c:         c,
		evaluator: evaluator,
		logger:    logger.NewSchedulerLogger("optimizer"),
	}
}

// Optimize 从 initial 出发退火，返回整个过程中见过的最优解
// 每次迭代检查一次取消；取消时返回当前最优解和错误
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial model.WeekSchedule) (*Result, error) {
	return o.run(ctx, initial, o.config.Seed, 0)
}

func (o *LocalSearchOptimizer) run(ctx context.Context, initial model.WeekSchedule, seed int64, chain int) (*Result, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(seed))
	neighbors := NewNeighborhoodGenerator(o.c, rng, o.config.Moves)

	current := initial.Clone()
	currentCost, err := o.evaluator.Total(current)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Best:        current,
		BestCost:    currentCost,
		InitialCost: currentCost,
		Chain:       chain,
		Stats:       Stats{MoveCounts: make(map[string]int)},
	}
	temperature := o.config.InitialTemp

	o.logger.StartOptimize(seed, o.config.MaxIterations, temperature, currentCost)

	finish := func() {
		result.Stats.FinalTemp = temperature
		result.Duration = time.Since(start)
		o.logger.OptimizeComplete(result.InitialCost, result.BestCost, result.Stats.Iterations, result.Duration)
	}

	for i := 0; i < o.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			finish()
			return result, apperrors.Wrap(err, apperrors.CodeCanceled, "优化被取消")
		}

		candidate, move := neighbors.GenerateNeighbor(current)
		result.Stats.Iterations++
		result.Stats.MoveCounts[move.Type.String()]++

		switch {
		case !move.Applied:
			result.Stats.NoOps++
		case !neighbors.feasible(current, candidate, move):
			result.Stats.Discarded++
			result.Stats.Rejected++
		default:
			candidateCost, err := o.evaluator.Total(candidate)
			if err != nil {
				finish()
				return result, err
			}

			if Accept(rng, currentCost, candidateCost, temperature) {
				current, currentCost = candidate, candidateCost
				result.Stats.Accepted++
			} else {
				result.Stats.Rejected++
			}

			// 最优解的更新与是否接受无关
			if candidateCost < result.BestCost {
				result.Best = candidate
				result.BestCost = candidateCost
				result.Stats.Improvements++
				o.logger.Improvement(i, candidateCost)
			}
		}

		temperature *= o.config.CoolingRate
	}

	finish()
	return result, nil
}
