// Package solver 提供初始排班构造器
package solver

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// Solver 求解器接口
type Solver interface {
	// Solve 生成排班方案
	Solve(ctx context.Context, c *constraint.Context) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Pass 构造阶段
type Pass string

const (
	PassDayFill    Pass = "day_fill"   // 按岗位优先级逐天填充
	PassMandatory  Pass = "mandatory"  // 必需岗位全时段覆盖
	PassTraffic    Pass = "traffic"    // 按客流补足人手
	PassPreference Pass = "preference" // 按期望工时补充
)

// Shortfall 无法填满的时段，属于可接受的不可行，不是错误
type Shortfall struct {
	Day      model.Day  `json:"day"`
	Slot     model.Slot `json:"slot"`
	Role     string     `json:"role"`
	Required int        `json:"required"`
	Assigned int        `json:"assigned"`
	Pass     Pass       `json:"pass"`
}

// Result 求解结果
type Result struct {
	Schedule   model.WeekSchedule `json:"schedule"`
	Shortfalls []Shortfall        `json:"shortfalls"`
	Statistics *Statistics        `json:"statistics"`
	Duration   time.Duration      `json:"duration"`
}

// Statistics 排班统计
type Statistics struct {
	TotalAssignments  int          `json:"total_assignments"`
	TotalHours        int          `json:"total_hours"`
	Shortfalls        int          `json:"shortfalls"`
	ActiveWorkers     int          `json:"active_workers"`
	AvgHoursPerWorker float64      `json:"avg_hours_per_worker"`
	ByPass            map[Pass]int `json:"by_pass"`
}

// InitialBuilder 贪心初始排班构造器
// 先按岗位优先级逐天填充，再依次执行必需岗位、客流、期望工时三轮补充。
// 不回溯：较早的分配可能挤占后续时段，这只是退火的起点。
type InitialBuilder struct {
	logger *logger.SchedulerLogger
}

// NewInitialBuilder 创建初始排班构造器
func NewInitialBuilder() *InitialBuilder {
	return &InitialBuilder{logger: logger.NewSchedulerLogger("solver")}
}

// Name 返回求解器名称
func (b *InitialBuilder) Name() string {
	return "InitialBuilder"
}

// Solve 实现 Solver 接口
func (b *InitialBuilder) Solve(ctx context.Context, c *constraint.Context) (*Result, error) {
	return b.Build(ctx, c)
}

type shortfallKey struct {
	day  model.Day
	slot model.Slot
	role string
}

// build 一次构造的内部状态
type build struct {
	c          *constraint.Context
	schedule   model.WeekSchedule
	shortfalls map[shortfallKey]*Shortfall
	byPass     map[Pass]int
}

// Build 生成初始排班；被取消时返回已构造的部分结果和错误
func (b *InitialBuilder) Build(ctx context.Context, c *constraint.Context) (*Result, error) {
	startTime := time.Now()
	b.logger.StartBuild(len(c.Workers), len(c.RoleNames()), len(c.Days()))

	st := &build{
		c:          c,
		schedule:   model.NewWeekSchedule(),
		shortfalls: make(map[shortfallKey]*Shortfall),
		byPass:     make(map[Pass]int),
	}

	var err error
	for _, step := range []struct {
		pass Pass
		run  func(day model.Day)
	}{
		{PassDayFill, st.dayFill},
		{PassMandatory, st.mandatoryCoverage},
		{PassTraffic, st.trafficStaffing},
	} {
		if err = st.eachDay(ctx, step.run); err != nil {
			break
		}
	}
	if err == nil {
		err = st.preferenceTopUp(ctx)
	}

	result := st.result()
	result.Duration = time.Since(startTime)
	for _, sf := range result.Shortfalls {
		b.logger.Shortfall(string(sf.Pass), string(sf.Day), sf.Slot.String(), sf.Role, sf.Required, sf.Assigned)
	}
	b.logger.BuildComplete(result.Statistics.TotalAssignments, len(result.Shortfalls), result.Duration)

	if err != nil {
		return result, apperrors.Wrap(err, apperrors.CodeCanceled, "初始排班被取消")
	}
	return result, nil
}

// eachDay 按周顺序遍历营业日，每天检查一次取消
func (st *build) eachDay(ctx context.Context, fn func(day model.Day)) error {
	for _, day := range st.c.Days() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(day)
	}
	return nil
}

// dayFill 岗位按最少人数降序处理，每个时段补到岗位最少人数
func (st *build) dayFill(day model.Day) {
	roles := st.c.Roles()
	sort.SliceStable(roles, func(i, j int) bool {
		mi, mj := roles[i].Required(false), roles[j].Required(false)
		if mi != mj {
			return mi > mj
		}
		return roles[i].Name < roles[j].Name
	})

	for _, role := range roles {
		for _, slot := range st.c.SlotsFor(day) {
			need := role.Required(st.c.IsPeak(day, slot.Start))
			if need <= 0 {
				continue
			}
			st.fill(PassDayFill, day, slot, role.Name, need)
		}
	}
}

// mandatoryCoverage 声明了最少人数的岗位在每个营业小时至少一人
func (st *build) mandatoryCoverage(day model.Day) {
	for _, role := range st.c.Roles() {
		if !role.HasMinimum() {
			continue
		}
		for _, slot := range st.c.SlotsFor(day) {
			req := st.c.RequirementFor(day, slot, role)
			st.fill(PassMandatory, day, slot, role.Name, req.Minimum)
		}
	}
}

// trafficStaffing 按客流 ceil(guests / maxGuests) 补足人手
func (st *build) trafficStaffing(day model.Day) {
	for _, role := range st.c.Roles() {
		for _, slot := range st.c.SlotsFor(day) {
			req := st.c.RequirementFor(day, slot, role)
			if req.Traffic <= 0 {
				continue
			}
			st.fill(PassTraffic, day, slot, role.Name, req.Traffic)
		}
	}
}

// preferenceTopUp 按目录顺序为员工补充工时，直到达到期望工时
// 只填该员工岗位仍无人的营业时段
func (st *build) preferenceTopUp(ctx context.Context) error {
	for _, w := range st.c.Workers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.schedule.WorkerHours(w.ID) >= w.PreferredHours {
			continue
		}
	days:
		for _, day := range st.c.Days() {
			for _, slot := range st.c.SlotsFor(day) {
				if st.schedule.WorkerHours(w.ID) >= w.PreferredHours {
					break days
				}
				role := st.unstaffedRole(w, day, slot)
				if role == "" || !st.c.CanWork(st.schedule, w, day, slot) {
					continue
				}
				st.schedule.Add(model.Assignment{Day: day, Slot: slot, WorkerID: w.ID, Role: role})
				st.byPass[PassPreference]++
			}
		}
	}
	return nil
}

// unstaffedRole 员工可胜任且该时段仍无人的第一个岗位
func (st *build) unstaffedRole(w *model.Worker, day model.Day, slot model.Slot) string {
	for _, role := range w.Roles {
		if _, err := st.c.Role(role); err != nil {
			continue
		}
		if st.schedule.Count(day, slot, role) == 0 {
			return role
		}
	}
	return ""
}

// fill 为某时段某岗位补人，直到达到 need 或候选用尽
func (st *build) fill(pass Pass, day model.Day, slot model.Slot, role string, need int) {
	count := st.schedule.Count(day, slot, role)
	if count >= need {
		return
	}
	for _, w := range st.candidates(role) {
		if count >= need {
			break
		}
		if !st.c.CanWork(st.schedule, w, day, slot) {
			continue
		}
		st.schedule.Add(model.Assignment{Day: day, Slot: slot, WorkerID: w.ID, Role: role})
		st.byPass[pass]++
		count++
	}
	if count < need {
		key := shortfallKey{day: day, slot: slot, role: role}
		if prev, ok := st.shortfalls[key]; !ok || need >= prev.Required {
			st.shortfalls[key] = &Shortfall{Day: day, Slot: slot, Role: role, Required: need, Pass: pass}
		}
	}
}

// candidates 可胜任岗位的员工，按已排工时升序（稳定排序，目录顺序决定平局）
func (st *build) candidates(role string) []*model.Worker {
	candidates := st.c.CapableWorkers(role)
	hours := st.schedule.HoursByWorker()
	sort.SliceStable(candidates, func(i, j int) bool {
		return hours[candidates[i].ID] < hours[candidates[j].ID]
	})
	return candidates
}

// result 汇总结果；缺口按最终排班重新核对，已被后续阶段补齐的不再报告
func (st *build) result() *Result {
	result := &Result{Schedule: st.schedule}

	for _, day := range model.Week {
		for _, slot := range st.c.SlotsFor(day) {
			for _, role := range st.c.RoleNames() {
				sf, ok := st.shortfalls[shortfallKey{day: day, slot: slot, role: role}]
				if !ok {
					continue
				}
				sf.Assigned = st.schedule.Count(day, slot, role)
				if sf.Assigned < sf.Required {
					result.Shortfalls = append(result.Shortfalls, *sf)
				}
			}
		}
	}

	stats := &Statistics{ByPass: st.byPass, Shortfalls: len(result.Shortfalls)}
	stats.TotalAssignments = st.schedule.Len()
	for _, h := range st.schedule.HoursByWorker() {
		stats.TotalHours += h
		if h > 0 {
			stats.ActiveWorkers++
		}
	}
	if stats.ActiveWorkers > 0 {
		stats.AvgHoursPerWorker = float64(stats.TotalHours) / float64(stats.ActiveWorkers)
	}
	result.Statistics = stats
	return result
}
