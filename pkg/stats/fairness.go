package stats

import (
	"math"
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 工时公平性
	WorkloadGini        float64 `json:"workload_gini"`          // 工时基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadVariance    float64 `json:"workload_variance"`      // 工时方差
	WorkloadStdDev      float64 `json:"workload_std_dev"`       // 工时标准差
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 人均工时
	MaxHours            float64 `json:"max_hours"`              // 最大工时
	MinHours            float64 `json:"min_hours"`              // 最小工时
	HoursRange          float64 `json:"hours_range"`            // 工时极差

	// 期望工时
	PreferenceGap int `json:"preference_gap"` // 所有员工 |排班工时 - 期望工时| 之和

	// 时段类型公平性
	DayPartDistribution map[string]float64 `json:"day_part_distribution"` // 各时段类型分布 (%)
	LateShiftGini       float64            `json:"late_shift_gini"`       // 夜间时段分配基尼系数
	WeekendShiftGini    float64            `json:"weekend_shift_gini"`    // 周末时段分配基尼系数

	// 员工级别统计
	EmployeeStats []EmployeeStat `json:"employee_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// EmployeeStat 员工统计
type EmployeeStat struct {
	WorkerID       int     `json:"worker_id"`
	TotalHours     int     `json:"total_hours"`
	PreferredHours int     `json:"preferred_hours"`
	SlotCount      int     `json:"slot_count"`
	LateSlots      int     `json:"late_slots"`
	WeekendSlots   int     `json:"weekend_slots"`
	OvertimeHours  int     `json:"overtime_hours"` // 超出期望工时的部分
	Deviation      float64 `json:"deviation"`      // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	lateStart int // 夜间时段开始（小时）
	lateEnd   int // 夜间时段结束（小时）
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{
		lateStart: 22,
		lateEnd:   6,
	}
}

// Analyze 分析排班公平性；目录中没有分配的员工按 0 工时计入
func (f *FairnessAnalyzer) Analyze(s model.WeekSchedule, workers []*model.Worker) *FairnessMetrics {
	if len(workers) == 0 {
		return &FairnessMetrics{
			DayPartDistribution:  make(map[string]float64),
			OverallFairnessScore: 100,
		}
	}

	employeeStats := f.calculateEmployeeStats(s, workers)

	hours := make([]float64, len(employeeStats))
	late := make([]float64, len(employeeStats))
	weekend := make([]float64, len(employeeStats))
	gap := 0
	for i, stat := range employeeStats {
		hours[i] = float64(stat.TotalHours)
		late[i] = float64(stat.LateSlots)
		weekend[i] = float64(stat.WeekendSlots)
		gap += abs(stat.TotalHours - stat.PreferredHours)
	}

	avgHours := calculateMean(hours)
	variance := calculateVariance(hours, avgHours)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := calculateRange(hours)

	for i := range employeeStats {
		if avgHours > 0 {
			employeeStats[i].Deviation = (float64(employeeStats[i].TotalHours) - avgHours) / avgHours * 100
		}
	}

	workloadGini := calculateGini(hours)
	lateGini := calculateGini(late)
	weekendGini := calculateGini(weekend)

	return &FairnessMetrics{
		WorkloadGini:         workloadGini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgHoursPerEmployee:  avgHours,
		MaxHours:             maxHours,
		MinHours:             minHours,
		HoursRange:           maxHours - minHours,
		PreferenceGap:        gap,
		DayPartDistribution:  f.calculateDayPartDistribution(s),
		LateShiftGini:        lateGini,
		WeekendShiftGini:     weekendGini,
		EmployeeStats:        employeeStats,
		OverallFairnessScore: f.calculateOverallScore(workloadGini, lateGini, weekendGini, stdDev, avgHours),
	}
}

// calculateEmployeeStats 按目录顺序统计每个员工
func (f *FairnessAnalyzer) calculateEmployeeStats(s model.WeekSchedule, workers []*model.Worker) []EmployeeStat {
	index := make(map[int]int, len(workers))
	stats := make([]EmployeeStat, len(workers))
	for i, w := range workers {
		index[w.ID] = i
		stats[i] = EmployeeStat{WorkerID: w.ID, PreferredHours: w.PreferredHours}
	}

	for _, a := range s.All() {
		i, ok := index[a.WorkerID]
		if !ok {
			continue
		}
		st := &stats[i]
		st.TotalHours += a.Slot.Hours()
		st.SlotCount++
		if f.isLate(a.Slot) {
			st.LateSlots++
		}
		if isWeekend(a.Day) {
			st.WeekendSlots++
		}
	}

	for i := range stats {
		if over := stats[i].TotalHours - stats[i].PreferredHours; over > 0 {
			stats[i].OvertimeHours = over
		}
	}
	return stats
}

// isLate 时段开始时间是否落在夜间
func (f *FairnessAnalyzer) isLate(slot model.Slot) bool {
	h := slot.Start % 24
	return h >= f.lateStart || h < f.lateEnd
}

func isWeekend(day model.Day) bool {
	return day == model.Saturday || day == model.Sunday
}

// calculateDayPartDistribution 计算时段类型分布
func (f *FairnessAnalyzer) calculateDayPartDistribution(s model.WeekSchedule) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, a := range s.All() {
		counts[classifyDayPart(a.Slot)]++
		total++
	}

	distribution := make(map[string]float64)
	if total > 0 {
		for part, count := range counts {
			distribution[part] = float64(count) / float64(total) * 100
		}
	}
	return distribution
}

// classifyDayPart 按开始时间分类
func classifyDayPart(slot model.Slot) string {
	startHour := slot.Start % 24
	switch {
	case startHour >= 6 && startHour < 14:
		return "morning"
	case startHour >= 14 && startHour < 22:
		return "afternoon"
	default:
		return "night"
	}
}

// calculateOverallScore 计算综合公平性评分
func (f *FairnessAnalyzer) calculateOverallScore(workloadGini, lateGini, weekendGini, stdDev, avgHours float64) float64 {
	const (
		workloadWeight = 0.4
		lateWeight     = 0.25
		weekendWeight  = 0.25
		stdDevWeight   = 0.1
	)

	// 基尼系数转换为分数 (0=100分, 1=0分)
	workloadScore := (1 - workloadGini) * 100
	lateScore := (1 - lateGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := workloadWeight*workloadScore +
		lateWeight*lateScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}

// CompareSchedules 比较两个排班方案的公平性
func (f *FairnessAnalyzer) CompareSchedules(before, after model.WeekSchedule, workers []*model.Worker) map[string]float64 {
	m1 := f.Analyze(before, workers)
	m2 := f.Analyze(after, workers)

	return map[string]float64{
		"workload_gini_diff":      m2.WorkloadGini - m1.WorkloadGini,
		"late_gini_diff":          m2.LateShiftGini - m1.LateShiftGini,
		"weekend_gini_diff":       m2.WeekendShiftGini - m1.WeekendShiftGini,
		"preference_gap_diff":     float64(m2.PreferenceGap - m1.PreferenceGap),
		"overall_score_diff":      m2.OverallFairnessScore - m1.OverallFairnessScore,
		"schedule1_overall_score": m1.OverallFairnessScore,
		"schedule2_overall_score": m2.OverallFairnessScore,
	}
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 总体方差
func calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
