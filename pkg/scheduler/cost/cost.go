// Package cost 计算排班方案的加权成本
package cost

import (
	"math"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// Breakdown 成本明细
type Breakdown struct {
	Labor      float64       `json:"labor"`      // 人工成本：岗位时薪 × 小时
	Fairness   float64       `json:"fairness"`   // 全体员工工时的总体方差
	Preference float64       `json:"preference"` // Σ|实际工时 - 期望工时|
	Total      float64       `json:"total"`
	Weights    model.Weights `json:"weights"`
	Hours      map[int]int   `json:"hours"` // 每个员工的总工时
}

// Evaluator 成本评估器，纯函数，不修改排班
type Evaluator struct {
	c       *constraint.Context
	weights model.Weights
}

// NewEvaluator 创建成本评估器；未提供的权重按 1 处理
func NewEvaluator(c *constraint.Context, weights model.Weights) *Evaluator {
	if weights == nil {
		weights = model.DefaultWeights()
	}
	return &Evaluator{c: c, weights: weights}
}

// Weights 返回使用的权重
func (e *Evaluator) Weights() model.Weights {
	return e.weights
}

// Evaluate 计算成本明细；排班中出现目录外的员工或岗位时返回 INVALID_REFERENCE 错误
func (e *Evaluator) Evaluate(s model.WeekSchedule) (Breakdown, error) {
	b := Breakdown{Weights: e.weights, Hours: make(map[int]int, len(e.c.Workers))}

	for _, day := range model.Week {
		for _, a := range s[day] {
			if _, err := e.c.Worker(a.WorkerID); err != nil {
				return Breakdown{}, err
			}
			role, err := e.c.Role(a.Role)
			if err != nil {
				return Breakdown{}, err
			}
			hours := a.Slot.Hours()
			b.Labor += float64(role.HourlyRate * hours)
			b.Hours[a.WorkerID] += hours
		}
	}

	b.Fairness = variance(e.c.Workers, b.Hours)

	for _, w := range e.c.Workers {
		b.Preference += math.Abs(float64(b.Hours[w.ID] - w.PreferredHours))
	}

	b.Total = e.weights.Of(model.WeightLaborCost)*b.Labor +
		e.weights.Of(model.WeightFairness)*b.Fairness +
		e.weights.Of(model.WeightPreference)*b.Preference
	return b, nil
}

// Total 只返回总成本
func (e *Evaluator) Total(s model.WeekSchedule) (float64, error) {
	b, err := e.Evaluate(s)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// variance 总体方差，未排班的员工按 0 小时计
func variance(workers []*model.Worker, hours map[int]int) float64 {
	if len(workers) == 0 {
		return 0
	}
	var sum float64
	for _, w := range workers {
		sum += float64(hours[w.ID])
	}
	mean := sum / float64(len(workers))

	var sq float64
	for _, w := range workers {
		d := float64(hours[w.ID]) - mean
		sq += d * d
	}
	return sq / float64(len(workers))
}
