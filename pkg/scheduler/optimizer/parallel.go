// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"sync"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/cost"
)

// MultiChainOptimizer 多链并行退火
// 每条链使用 seed+i 独立运行，互不共享排班；最终取成本最低者（平局取编号小的链）
type MultiChainOptimizer struct {
	config *OptimizationConfig
	single *LocalSearchOptimizer
}

// NewMultiChainOptimizer 创建多链优化器
func NewMultiChainOptimizer(config *OptimizationConfig, c *constraint.Context, evaluator *cost.Evaluator) *MultiChainOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &MultiChainOptimizer{
		config: config,
		single: NewLocalSearchOptimizer(config, c, evaluator),
	}
}

// chainResult 单条链的结果
type chainResult struct {
	result *Result
	err    error
}

// Optimize 并行运行所有链；只有一条链时直接在当前协程运行
func (m *MultiChainOptimizer) Optimize(ctx context.Context, initial model.WeekSchedule) (*Result, error) {
	chains := m.config.Chains
	if chains <= 1 {
		return m.single.Optimize(ctx, initial)
	}

	results := make([]chainResult, chains)
	var wg sync.WaitGroup
	for i := 0; i < chains; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := m.single.run(ctx, initial, m.config.Seed+int64(idx), idx)
			results[idx] = chainResult{result: res, err: err}
		}(i)
	}
	wg.Wait()

	var best *Result
	var firstErr error
	for _, r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		if r.result == nil {
			continue
		}
		if best == nil || r.result.BestCost < best.BestCost {
			best = r.result
		}
	}

	if best != nil {
		logger.Info().
			Int("chains", chains).
			Int("best_chain", best.Chain).
			Float64("best_cost", best.BestCost).
			Msg("多链退火完成")
	}
	return best, firstErr
}
