// Package stats 提供排班统计分析功能
package stats

import (
	"fmt"
	"strings"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	RequiredHours   int     `json:"required_hours"`   // 按客流和最少人数要求的总人时
	CoveredHours    int     `json:"covered_hours"`    // 满足要求的人时（超出部分不计）
	ScheduledHours  int     `json:"scheduled_hours"`  // 实际排班人时
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 按天统计
	DailyCoverage []DayCoverage `json:"daily_coverage"`

	// 按岗位统计
	RoleCoverage map[string]float64 `json:"role_coverage"`

	// 按小时统计（0-23），合并一周
	HourlyCoverage map[int]float64 `json:"hourly_coverage"`

	// 问题识别
	Understaffed []UnderstaffedPeriod `json:"understaffed"` // 人手不足时段
	Overstaffed  []UnderstaffedPeriod `json:"overstaffed"`  // 人手多于要求的时段
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          model.Day `json:"day"`
	Required     int       `json:"required"`
	Covered      int       `json:"covered"`
	CoverageRate float64   `json:"coverage_rate"`
	StaffCount   int       `json:"staff_count"` // 当天上班的员工数
	TotalHours   int       `json:"total_hours"`
}

// UnderstaffedPeriod 人手偏差时段
type UnderstaffedPeriod struct {
	Day      model.Day  `json:"day"`
	Slot     model.Slot `json:"slot"`
	Role     string     `json:"role"`
	Required int        `json:"required"`
	Assigned int        `json:"assigned"`
	Shortage int        `json:"shortage"` // 负数表示多出的人数
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	c *constraint.Context
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(c *constraint.Context) *CoverageAnalyzer {
	return &CoverageAnalyzer{c: c}
}

type tally struct {
	required, covered int
}

func (t *tally) add(required, assigned int) {
	t.required += required
	t.covered += min(required, assigned)
}

func (t tally) rate() float64 {
	if t.required == 0 {
		return 100
	}
	return float64(t.covered) / float64(t.required) * 100
}

// Analyze 按 (天, 时段, 岗位) 比较要求人数和实际人数
func (a *CoverageAnalyzer) Analyze(s model.WeekSchedule) *CoverageMetrics {
	m := &CoverageMetrics{
		ScheduledHours: 0,
		RoleCoverage:   make(map[string]float64),
		HourlyCoverage: make(map[int]float64),
	}

	var total tally
	byRole := make(map[string]*tally)
	byHour := make(map[int]*tally)

	for _, day := range a.c.Days() {
		var dayTally tally
		for _, slot := range a.c.SlotsFor(day) {
			for _, role := range a.c.Roles() {
				req := a.c.RequirementFor(day, slot, role)
				assigned := s.Count(day, slot, role.Name)

				total.add(req.Required, assigned)
				dayTally.add(req.Required, assigned)
				if byRole[role.Name] == nil {
					byRole[role.Name] = &tally{}
				}
				byRole[role.Name].add(req.Required, assigned)
				if byHour[slot.Start%24] == nil {
					byHour[slot.Start%24] = &tally{}
				}
				byHour[slot.Start%24].add(req.Required, assigned)

				period := UnderstaffedPeriod{
					Day:      day,
					Slot:     slot,
					Role:     role.Name,
					Required: req.Required,
					Assigned: assigned,
					Shortage: req.Required - assigned,
				}
				switch {
				case assigned < req.Required:
					m.Understaffed = append(m.Understaffed, period)
				case assigned > req.Required:
					m.Overstaffed = append(m.Overstaffed, period)
				}
			}
		}

		hours := 0
		staff := make(map[int]bool)
		for _, as := range s[day] {
			hours += as.Slot.Hours()
			staff[as.WorkerID] = true
		}
		m.DailyCoverage = append(m.DailyCoverage, DayCoverage{
			Day:          day,
			Required:     dayTally.required,
			Covered:      dayTally.covered,
			CoverageRate: dayTally.rate(),
			StaffCount:   len(staff),
			TotalHours:   hours,
		})
	}

	for _, as := range s.All() {
		m.ScheduledHours += as.Slot.Hours()
	}
	for role, t := range byRole {
		m.RoleCoverage[role] = t.rate()
	}
	for hour, t := range byHour {
		m.HourlyCoverage[hour] = t.rate()
	}
	m.RequiredHours = total.required
	m.CoveredHours = total.covered
	m.OverallCoverage = total.rate()
	return m
}

// GenerateCoverageReport 生成覆盖率报告
func (a *CoverageAnalyzer) GenerateCoverageReport(m *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")

	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  要求人时: %d\n", m.RequiredHours)
	fmt.Fprintf(&b, "  满足人时: %d\n", m.CoveredHours)
	fmt.Fprintf(&b, "  排班人时: %d\n", m.ScheduledHours)
	fmt.Fprintf(&b, "  覆盖率: %.1f%%\n\n", m.OverallCoverage)

	if len(m.DailyCoverage) > 0 {
		b.WriteString("【每日覆盖】\n")
		for _, d := range m.DailyCoverage {
			fmt.Fprintf(&b, "  - %s: %.1f%% (%d/%d 人时, %d 人上班)\n",
				d.Day, d.CoverageRate, d.Covered, d.Required, d.StaffCount)
		}
		b.WriteString("\n")
	}

	if len(m.Understaffed) > 0 {
		b.WriteString("【人手不足时段】\n")
		for _, p := range m.Understaffed {
			fmt.Fprintf(&b, "  - %s %s %s (需要%d人，仅有%d人，缺%d人)\n",
				p.Day, p.Slot, p.Role, p.Required, p.Assigned, p.Shortage)
		}
	}

	return b.String()
}
