package adjust

import (
	"fmt"
	"sort"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// Recommendation 替换推荐
type Recommendation struct {
	WorkerID       int     `json:"worker_id"`
	Score          float64 `json:"score"` // 0-100
	HoursAfter     int     `json:"hours_after"`
	PreferredHours int     `json:"preferred_hours"`
	Reason         string  `json:"reason"`
	Rank           int     `json:"rank"`
}

// Recommender 替换推荐器：列出所有可接手某时段的员工并按期望工时差距排序
type Recommender struct {
	c *constraint.Context
}

// NewRecommender 创建推荐器
func NewRecommender(c *constraint.Context) *Recommender {
	return &Recommender{c: c}
}

// Recommend 推荐可接手 (day, slot, role) 的员工，最多 limit 个（<=0 表示不限）
func (r *Recommender) Recommend(s model.WeekSchedule, day model.Day, slot model.Slot, role string, limit int) ([]Recommendation, error) {
	if _, err := r.c.Role(role); err != nil {
		return nil, err
	}

	var recs []Recommendation
	for _, w := range r.c.Workers {
		if !w.CanPerform(role) || !r.c.CanWork(s, w, day, slot) {
			continue
		}
		after := s.WorkerHours(w.ID) + slot.Hours()
		recs = append(recs, Recommendation{
			WorkerID:       w.ID,
			Score:          score(after, w.PreferredHours),
			HoursAfter:     after,
			PreferredHours: w.PreferredHours,
			Reason:         reason(after, w),
		})
	}

	// 同分时保持目录顺序
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs, nil
}

// score 工时越接近期望得分越高；仍低于期望的员工额外加分
func score(after, preferred int) float64 {
	diff := after - preferred
	s := 100.0
	if diff > 0 {
		s -= float64(diff) * 10
	} else {
		s -= float64(-diff) * 2
		s += 5
	}
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}

func reason(after int, w *model.Worker) string {
	switch {
	case after <= w.PreferredHours:
		return fmt.Sprintf("接手后 %d 小时，未超过期望的 %d 小时", after, w.PreferredHours)
	case after <= w.MaxHours:
		return fmt.Sprintf("接手后 %d 小时，超过期望但在上限 %d 小时内", after, w.MaxHours)
	default:
		return fmt.Sprintf("接手后 %d 小时", after)
	}
}
