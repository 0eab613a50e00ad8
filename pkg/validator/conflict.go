// Package validator 提供排班验证功能
package validator

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap      ConflictType = "overlap"       // 时间重叠
	ConflictRestTime     ConflictType = "rest_time"     // 休息时间不足
	ConflictMaxHours     ConflictType = "max_hours"     // 超过周工时上限
	ConflictConsecutive  ConflictType = "consecutive"   // 连续天数过多
	ConflictSkill        ConflictType = "skill"         // 岗位能力不符
	ConflictAvailability ConflictType = "availability"  // 不可用
	ConflictOutsideHours ConflictType = "outside_hours" // 不在营业时间内
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	WorkerID int          `json:"worker_id"`
	Day      model.Day    `json:"day,omitempty"`
	Slot     *model.Slot  `json:"slot,omitempty"`
	Role     string       `json:"role,omitempty"`
	Message  string       `json:"message"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	c      *constraint.Context
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MaxConsecutiveDays  int  // 最大连续工作天数，0 表示不检查
	CheckSkills         bool // 是否检查岗位能力
	CheckAvailability   bool // 是否检查可用性
	CheckOperatingHours bool // 是否检查营业时间
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckSkills:         true,
		CheckAvailability:   true,
		CheckOperatingHours: true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(c *constraint.Context, config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{c: c, config: config}
}

// DetectAll 检测所有冲突，按周顺序输出；目录外的员工跳过
func (d *ConflictDetector) DetectAll(s model.WeekSchedule) []Conflict {
	var conflicts []Conflict

	for _, day := range model.Week {
		for _, a := range s[day] {
			conflicts = append(conflicts, d.detectAssignment(a)...)
		}
	}
	conflicts = append(conflicts, d.detectBreaks(s.All())...)

	hours := s.HoursByWorker()
	for _, w := range d.c.Workers {
		if hours[w.ID] > w.MaxHours {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictMaxHours,
				Severity: "error",
				WorkerID: w.ID,
				Message:  fmt.Sprintf("员工 %d 周工作 %d 小时，超过上限 %d 小时", w.ID, hours[w.ID], w.MaxHours),
			})
		}
		conflicts = append(conflicts, d.detectConsecutiveDays(s, w.ID)...)
	}

	return conflicts
}

// DetectForAssignment 检测单个分配以及它与同一员工当天其他分配之间的冲突
func (d *ConflictDetector) DetectForAssignment(s model.WeekSchedule, a model.Assignment) []Conflict {
	conflicts := d.detectAssignment(a)
	conflicts = append(conflicts, d.detectBreaks(s.WorkerDay(a.Day, a.WorkerID))...)

	if w, err := d.c.Worker(a.WorkerID); err == nil {
		if hours := s.WorkerHours(a.WorkerID); hours > w.MaxHours {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictMaxHours,
				Severity: "error",
				WorkerID: w.ID,
				Message:  fmt.Sprintf("员工 %d 周工作 %d 小时，超过上限 %d 小时", w.ID, hours, w.MaxHours),
			})
		}
	}
	return conflicts
}

// detectAssignment 检测单个分配的岗位能力、可用性和营业时间
func (d *ConflictDetector) detectAssignment(a model.Assignment) []Conflict {
	w, err := d.c.Worker(a.WorkerID)
	if err != nil {
		return nil
	}

	var conflicts []Conflict
	slot := a.Slot
	if d.config.CheckSkills && !w.CanPerform(a.Role) {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictSkill,
			Severity: "error",
			WorkerID: w.ID,
			Day:      a.Day,
			Slot:     &slot,
			Role:     a.Role,
			Message:  fmt.Sprintf("员工 %d 不能胜任岗位 %s", w.ID, a.Role),
		})
	}
	if d.config.CheckAvailability && !constraint.IsAvailableFor(w, a.Day, a.Slot) {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictAvailability,
			Severity: "error",
			WorkerID: w.ID,
			Day:      a.Day,
			Slot:     &slot,
			Role:     a.Role,
			Message:  fmt.Sprintf("员工 %d 在 %s %s 不可用（%s）", w.ID, a.Day, a.Slot, w.AvailabilityOn(a.Day)),
		})
	}
	if d.config.CheckOperatingHours && !d.c.IsOperating(a.Day, a.Slot) {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictOutsideHours,
			Severity: "warning",
			WorkerID: w.ID,
			Day:      a.Day,
			Slot:     &slot,
			Role:     a.Role,
			Message:  fmt.Sprintf("%s %s 不在营业时间内", a.Day, a.Slot),
		})
	}
	return conflicts
}

// detectBreaks 时间重叠和休息不足
func (d *ConflictDetector) detectBreaks(assignments []model.Assignment) []Conflict {
	var conflicts []Conflict
	for _, v := range d.c.BreakViolations(assignments) {
		second := v.Second
		c := Conflict{
			Type:     ConflictRestTime,
			Severity: "error",
			WorkerID: v.WorkerID,
			Day:      v.Day,
			Slot:     &second,
			Message:  fmt.Sprintf("员工 %d 在 %s 的 %s 与 %s 之间休息仅 %d 小时", v.WorkerID, v.Day, v.First, v.Second, v.Gap),
		}
		if v.Gap < 0 {
			c.Type = ConflictOverlap
			c.Message = fmt.Sprintf("员工 %d 在 %s 的 %s 与 %s 时间重叠", v.WorkerID, v.Day, v.First, v.Second)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts
}

// detectConsecutiveDays 按周顺序统计连续工作天数
func (d *ConflictDetector) detectConsecutiveDays(s model.WeekSchedule, workerID int) []Conflict {
	if d.config.MaxConsecutiveDays <= 0 {
		return nil
	}

	consecutive, maxConsecutive := 0, 0
	var startDay, maxStart model.Day
	for _, day := range model.Week {
		if len(s.WorkerDay(day, workerID)) == 0 {
			consecutive = 0
			continue
		}
		if consecutive == 0 {
			startDay = day
		}
		consecutive++
		if consecutive > maxConsecutive {
			maxConsecutive = consecutive
			maxStart = startDay
		}
	}

	if maxConsecutive <= d.config.MaxConsecutiveDays {
		return nil
	}
	return []Conflict{{
		Type:     ConflictConsecutive,
		Severity: "warning",
		WorkerID: workerID,
		Day:      maxStart,
		Message:  fmt.Sprintf("员工 %d 连续工作 %d 天，超过限制 %d 天", workerID, maxConsecutive, d.config.MaxConsecutiveDays),
	}}
}
