package validator

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// Understaffed 人手不足的时段
type Understaffed struct {
	Day      model.Day  `json:"day"`
	Slot     model.Slot `json:"slot"`
	Role     string     `json:"role"`
	Required int        `json:"required"`
	Assigned int        `json:"assigned"`
}

// Missing 缺口人数
func (u Understaffed) Missing() int {
	return u.Required - u.Assigned
}

// MissingRole 某天完全没有出现的必需岗位
type MissingRole struct {
	Day  model.Day `json:"day"`
	Role string    `json:"role"`
}

// Report 可行性审计报告
type Report struct {
	ScheduledHours        int                         `json:"scheduled_hours"`
	DesiredHours          int                         `json:"desired_hours"`
	HoursDifference       int                         `json:"hours_difference"` // 排班工时 - 期望工时
	MandatoryRolesMet     bool                        `json:"mandatory_roles_met"`
	MandatoryByDay        map[model.Day]bool          `json:"mandatory_by_day"`
	MissingMandatory      []MissingRole               `json:"missing_mandatory,omitempty"`
	OverScheduled         []int                       `json:"over_scheduled_employees"`
	BreaksEnforced        bool                        `json:"breaks_enforced"`
	BreakViolations       []constraint.BreakViolation `json:"break_violations,omitempty"`
	Understaffed          []Understaffed              `json:"understaffed,omitempty"`
	UnderstaffedHours     int                         `json:"understaffed_hours"`
	RoleMismatches        []Conflict                  `json:"role_mismatches,omitempty"`
	AvailabilityConflicts []Conflict                  `json:"availability_conflicts,omitempty"`
	Conflicts             []Conflict                  `json:"conflicts,omitempty"`
}

// Feasible 所有硬约束都满足且没有人手缺口
func (r *Report) Feasible() bool {
	return r.MandatoryRolesMet && r.BreaksEnforced && len(r.OverScheduled) == 0 &&
		r.UnderstaffedHours == 0 && len(r.RoleMismatches) == 0 && len(r.AvailabilityConflicts) == 0
}

// Auditor 可行性审计，只读，不修复任何问题
type Auditor struct {
	c        *constraint.Context
	detector *ConflictDetector
}

// NewAuditor 创建审计器
func NewAuditor(c *constraint.Context, config *DetectorConfig) *Auditor {
	return &Auditor{c: c, detector: NewConflictDetector(c, config)}
}

// Audit 审计排班；排班中出现目录外的员工或岗位时返回 INVALID_REFERENCE 错误
func (a *Auditor) Audit(s model.WeekSchedule) (*Report, error) {
	for _, as := range s.All() {
		if _, err := a.c.Worker(as.WorkerID); err != nil {
			return nil, err
		}
		if _, err := a.c.Role(as.Role); err != nil {
			return nil, err
		}
	}

	r := &Report{MandatoryByDay: make(map[model.Day]bool)}

	hours := s.HoursByWorker()
	for _, w := range a.c.Workers {
		r.DesiredHours += w.PreferredHours
		if hours[w.ID] > w.MaxHours {
			r.OverScheduled = append(r.OverScheduled, w.ID)
		}
	}
	for _, h := range hours {
		r.ScheduledHours += h
	}
	r.HoursDifference = r.ScheduledHours - r.DesiredHours
	sort.Ints(r.OverScheduled)

	a.auditMandatory(s, r)

	r.BreakViolations = a.c.BreakViolations(s.All())
	r.BreaksEnforced = len(r.BreakViolations) == 0

	a.auditStaffing(s, r)

	r.Conflicts = a.detector.DetectAll(s)
	for _, c := range r.Conflicts {
		switch c.Type {
		case ConflictSkill:
			r.RoleMismatches = append(r.RoleMismatches, c)
		case ConflictAvailability, ConflictOutsideHours:
			r.AvailabilityConflicts = append(r.AvailabilityConflicts, c)
		}
	}

	return r, nil
}

// auditMandatory 每个营业日，声明了最少人数的岗位至少出现一次
func (a *Auditor) auditMandatory(s model.WeekSchedule, r *Report) {
	r.MandatoryRolesMet = true
	for _, day := range a.c.Days() {
		met := true
		for _, role := range a.c.Roles() {
			if !role.HasMinimum() {
				continue
			}
			found := false
			for _, as := range s[day] {
				if as.Role == role.Name {
					found = true
					break
				}
			}
			if !found {
				met = false
				r.MissingMandatory = append(r.MissingMandatory, MissingRole{Day: day, Role: role.Name})
			}
		}
		r.MandatoryByDay[day] = met
		if !met {
			r.MandatoryRolesMet = false
		}
	}
}

// auditStaffing 按客流和最少人数核对每个营业小时的人手
func (a *Auditor) auditStaffing(s model.WeekSchedule, r *Report) {
	for _, day := range a.c.Days() {
		for _, slot := range a.c.SlotsFor(day) {
			for _, role := range a.c.Roles() {
				req := a.c.RequirementFor(day, slot, role)
				if req.Required == 0 {
					continue
				}
				assigned := s.Count(day, slot, role.Name)
				if assigned >= req.Required {
					continue
				}
				u := Understaffed{Day: day, Slot: slot, Role: role.Name, Required: req.Required, Assigned: assigned}
				r.Understaffed = append(r.Understaffed, u)
				r.UnderstaffedHours += u.Missing()
			}
		}
	}
}
