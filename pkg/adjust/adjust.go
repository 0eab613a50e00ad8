// Package adjust 提供人工调整和岗位修复功能
package adjust

import (
	"fmt"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/validator"
)

// Status 调整结果状态
type Status string

const (
	StatusApplied      Status = "applied"        // 已替换
	StatusSlotNotFound Status = "slot_not_found" // 当天没有该时段的分配
	StatusNoCandidate  Status = "no_candidate"   // 找不到可替换的员工
	StatusUnchanged    Status = "unchanged"      // 员工和岗位与原分配相同
)

// Outcome 一次调整的结果
type Outcome struct {
	Status    Status               `json:"status"`
	Day       model.Day            `json:"day"`
	Slot      model.Slot           `json:"slot"`
	Role      string               `json:"role"`
	Previous  *model.Assignment    `json:"previous,omitempty"`
	Current   *model.Assignment    `json:"current,omitempty"`
	Conflicts []validator.Conflict `json:"conflicts,omitempty"` // 调整后该分配仍存在的冲突
	Message   string               `json:"message,omitempty"`
}

// Succeeded 是否实际修改了排班
func (o *Outcome) Succeeded() bool {
	return o.Status == StatusApplied
}

// Override 一条人工指定
type Override struct {
	Day      model.Day  `json:"day" validate:"required"`
	Slot     model.Slot `json:"slot"`
	WorkerID int        `json:"worker_id" validate:"required"`
	Role     string     `json:"role" validate:"required"`
}

// Correction 岗位修复结果
type Correction struct {
	Repaired   []Outcome `json:"repaired"`
	Unresolved []Outcome `json:"unresolved"`
}

// Adjuster 调整引擎，直接修改传入的排班
type Adjuster struct {
	c        *constraint.Context
	detector *validator.ConflictDetector
	logger   *logger.SchedulerLogger
}

// NewAdjuster 创建调整引擎
func NewAdjuster(c *constraint.Context) *Adjuster {
	return &Adjuster{
		c:        c,
		detector: validator.NewConflictDetector(c, nil),
		logger:   logger.NewSchedulerLogger("adjust"),
	}
}

// ManualOverride 把某天某时段的分配替换为指定员工和岗位
// 优先匹配 (时段, 岗位)，否则取该时段的第一个分配；员工和岗位同时替换。
// 员工或岗位不在目录中时返回 INVALID_REFERENCE 错误。
func (a *Adjuster) ManualOverride(s model.WeekSchedule, day model.Day, slot model.Slot, workerID int, role string) (*Outcome, error) {
	if _, err := a.c.Worker(workerID); err != nil {
		return nil, err
	}
	if _, err := a.c.Role(role); err != nil {
		return nil, err
	}

	idx := s.Find(day, slot, role)
	if idx < 0 {
		idx = s.FindSlot(day, slot)
	}
	if idx < 0 {
		out := &Outcome{
			Status:  StatusSlotNotFound,
			Day:     day,
			Slot:    slot,
			Role:    role,
			Message: fmt.Sprintf("%s 没有 %s 的分配", day, slot),
		}
		a.logger.Adjustment("override", string(day), slot.String(), role, workerID, string(out.Status))
		return out, nil
	}

	out := a.overrideAt(s, day, idx, workerID, role)
	a.logger.Adjustment("override", string(day), slot.String(), role, workerID, string(out.Status))
	return out, nil
}

// overrideAt 替换指定下标的分配
func (a *Adjuster) overrideAt(s model.WeekSchedule, day model.Day, idx int, workerID int, role string) *Outcome {
	prev := s[day][idx]
	out := &Outcome{Day: day, Slot: prev.Slot, Role: role, Previous: &prev}

	if prev.WorkerID == workerID && prev.Role == role {
		out.Status = StatusUnchanged
		out.Current = &prev
		return out
	}

	next := model.Assignment{Day: day, Slot: prev.Slot, WorkerID: workerID, Role: role}
	s[day][idx] = next
	out.Status = StatusApplied
	out.Current = &next
	out.Conflicts = a.detector.DetectForAssignment(s, next)
	out.Message = fmt.Sprintf("员工 %d (%s) 替换为员工 %d (%s)", prev.WorkerID, prev.Role, workerID, role)
	return out
}

// FindReplacement 按目录顺序为某时段某岗位寻找第一个合适的员工并替换
// 要求：能胜任岗位、时段开始时可用、该时段未被占用、休息间隔满足、不超过周工时上限
func (a *Adjuster) FindReplacement(s model.WeekSchedule, day model.Day, slot model.Slot, role string) (*Outcome, error) {
	if _, err := a.c.Role(role); err != nil {
		return nil, err
	}

	idx := s.Find(day, slot, role)
	if idx < 0 {
		idx = s.FindSlot(day, slot)
	}
	if idx < 0 {
		return &Outcome{Status: StatusSlotNotFound, Day: day, Slot: slot, Role: role,
			Message: fmt.Sprintf("%s 没有 %s 的分配", day, slot)}, nil
	}

	out := a.replaceAt(s, day, idx, role)
	a.logger.Adjustment("replace", string(day), slot.String(), role, workerOf(out), string(out.Status))
	return out, nil
}

// replaceAt 为指定下标的分配寻找替换员工
func (a *Adjuster) replaceAt(s model.WeekSchedule, day model.Day, idx int, role string) *Outcome {
	target := s[day][idx]
	if w := a.candidate(s, day, target.Slot, role); w != nil {
		return a.overrideAt(s, day, idx, w.ID, role)
	}
	prev := target
	return &Outcome{
		Status:   StatusNoCandidate,
		Day:      day,
		Slot:     target.Slot,
		Role:     role,
		Previous: &prev,
		Message:  fmt.Sprintf("%s %s 找不到可胜任 %s 的员工", day, target.Slot, role),
	}
}

// candidate 目录顺序中第一个合适的员工
func (a *Adjuster) candidate(s model.WeekSchedule, day model.Day, slot model.Slot, role string) *model.Worker {
	for _, w := range a.c.Workers {
		if !w.CanPerform(role) || !constraint.IsAvailable(w, day, slot.Start) {
			continue
		}
		if s.WorkerBusy(day, slot, w.ID) {
			continue
		}
		if s.WorkerHours(w.ID)+slot.Hours() > w.MaxHours {
			continue
		}
		probe := model.Assignment{Day: day, Slot: slot, WorkerID: w.ID, Role: role}
		if !a.c.BreaksValid(append(s.WorkerDay(day, w.ID), probe)) {
			continue
		}
		return w
	}
	return nil
}

// CorrectRoles 扫描全部分配，员工不能胜任岗位的逐个寻找替换
// 找不到替换的分配保持原样，列入 Unresolved，下次审计仍会报告
func (a *Adjuster) CorrectRoles(s model.WeekSchedule) (*Correction, error) {
	result := &Correction{}
	for _, day := range model.Week {
		for idx := range s[day] {
			as := s[day][idx]
			w, err := a.c.Worker(as.WorkerID)
			if err != nil {
				return result, err
			}
			if w.CanPerform(as.Role) {
				continue
			}
			if _, err := a.c.Role(as.Role); err != nil {
				return result, err
			}

			out := a.replaceAt(s, day, idx, as.Role)
			a.logger.Adjustment("correct", string(day), as.Slot.String(), as.Role, workerOf(out), string(out.Status))
			if out.Succeeded() {
				result.Repaired = append(result.Repaired, *out)
			} else {
				result.Unresolved = append(result.Unresolved, *out)
			}
		}
	}
	return result, nil
}

// Apply 依次执行多条人工指定；遇到无效引用时停止并返回已完成的结果
func (a *Adjuster) Apply(s model.WeekSchedule, overrides []Override) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(overrides))
	for _, o := range overrides {
		out, err := a.ManualOverride(s, o.Day, o.Slot, o.WorkerID, o.Role)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, *out)
	}
	return outcomes, nil
}

func workerOf(o *Outcome) int {
	if o.Current != nil {
		return o.Current.WorkerID
	}
	return 0
}
