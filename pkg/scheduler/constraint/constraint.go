// Package constraint 定义排班上下文和硬约束判定
package constraint

import (
	"sort"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
)

// Context 排班上下文：员工、岗位、营业时间和客流的只读目录
type Context struct {
	Hours   map[model.Day]model.DayHours
	Traffic model.Traffic
	Workers []*model.Worker // 保持目录顺序

	// 索引缓存
	workerMap map[int]*model.Worker
	roleMap   map[string]*model.Role
	roleNames []string
}

// NewContext 从业务配置创建上下文
func NewContext(setup *model.Setup) *Context {
	c := &Context{
		Hours:     setup.Hours,
		Traffic:   setup.Traffic,
		Workers:   setup.Workers,
		workerMap: make(map[int]*model.Worker, len(setup.Workers)),
		roleMap:   make(map[string]*model.Role, len(setup.Roles)),
	}
	if c.Hours == nil {
		c.Hours = make(map[model.Day]model.DayHours)
	}
	if c.Traffic == nil {
		c.Traffic = make(model.Traffic)
	}
	for _, w := range setup.Workers {
		c.workerMap[w.ID] = w
	}
	for name, r := range setup.Roles {
		if r.Name == "" {
			r.Name = name
		}
		c.roleMap[name] = r
		c.roleNames = append(c.roleNames, name)
	}
	sort.Strings(c.roleNames)
	return c
}

// Worker 获取员工，不存在时返回 INVALID_REFERENCE 错误
func (c *Context) Worker(id int) (*model.Worker, error) {
	w, ok := c.workerMap[id]
	if !ok {
		return nil, apperrors.UnknownWorker(id)
	}
	return w, nil
}

// Role 获取岗位，不存在时返回 INVALID_REFERENCE 错误
func (c *Context) Role(name string) (*model.Role, error) {
	r, ok := c.roleMap[name]
	if !ok {
		return nil, apperrors.UnknownRole(name)
	}
	return r, nil
}

// HasWorker 员工是否在目录中
func (c *Context) HasWorker(id int) bool {
	_, ok := c.workerMap[id]
	return ok
}

// RoleNames 按名称排序的岗位列表
func (c *Context) RoleNames() []string {
	return c.roleNames
}

// Roles 按名称排序的岗位定义
func (c *Context) Roles() []*model.Role {
	roles := make([]*model.Role, 0, len(c.roleNames))
	for _, name := range c.roleNames {
		roles = append(roles, c.roleMap[name])
	}
	return roles
}

// CapableWorkers 能胜任某岗位的员工（目录顺序）
func (c *Context) CapableWorkers(role string) []*model.Worker {
	var out []*model.Worker
	for _, w := range c.Workers {
		if w.CanPerform(role) {
			out = append(out, w)
		}
	}
	return out
}

// Days 按周顺序返回配置了营业时间的天
func (c *Context) Days() []model.Day {
	days := make([]model.Day, 0, len(c.Hours))
	for _, d := range model.Week {
		if _, ok := c.Hours[d]; ok {
			days = append(days, d)
		}
	}
	return days
}

// SlotsFor 某天所有需要排班的一小时时段，按营业顺序排列
func (c *Context) SlotsFor(day model.Day) []model.Slot {
	dh, ok := c.Hours[day]
	if !ok {
		return nil
	}
	hours := dh.Operating.Hours()
	slots := make([]model.Slot, 0, len(hours))
	for _, h := range hours {
		slots = append(slots, model.HourSlot(h))
	}
	return slots
}

// IsOperating 时段是否完全落在营业时间内
func (c *Context) IsOperating(day model.Day, slot model.Slot) bool {
	dh, ok := c.Hours[day]
	if !ok || slot.Hours() <= 0 {
		return false
	}
	for h := slot.Start; h < slot.End; h++ {
		if !dh.Operating.Contains(h % 24) {
			return false
		}
	}
	return true
}

// IsPeak 某小时是否在接待时段内（高峰）
func (c *Context) IsPeak(day model.Day, hour int) bool {
	dh, ok := c.Hours[day]
	if !ok {
		return false
	}
	return dh.Service.Contains(hour)
}

// HourIndex 小时在当天营业小时中的位置，不在营业时间内返回 -1
func (c *Context) HourIndex(day model.Day, hour int) int {
	dh, ok := c.Hours[day]
	if !ok {
		return -1
	}
	for i, h := range dh.Operating.Hours() {
		if h == hour {
			return i
		}
	}
	return -1
}

// GuestsAt 某天某时段开始小时的预估客流
func (c *Context) GuestsAt(day model.Day, slot model.Slot) int {
	return c.Traffic.GuestsAt(day, c.HourIndex(day, slot.Start))
}

// CanWork 员工能否接手某时段（岗位能力由调用方检查）
// 要求：整段可用、在营业时间内、该时段未被占用、休息间隔仍然满足、不超过周工时上限
func (c *Context) CanWork(s model.WeekSchedule, w *model.Worker, day model.Day, slot model.Slot) bool {
	if !c.IsOperating(day, slot) {
		return false
	}
	if !IsAvailableFor(w, day, slot) {
		return false
	}
	if s.WorkerBusy(day, slot, w.ID) {
		return false
	}
	if s.WorkerHours(w.ID)+slot.Hours() > w.MaxHours {
		return false
	}
	candidate := model.Assignment{Day: day, Slot: slot, WorkerID: w.ID}
	return c.BreaksValid(append(s.WorkerDay(day, w.ID), candidate))
}

// WorkerDayValid 检查员工某天的全部分配是否满足硬约束
func (c *Context) WorkerDayValid(s model.WeekSchedule, workerID int, day model.Day) bool {
	w, ok := c.workerMap[workerID]
	if !ok {
		return false
	}
	list := s.WorkerDay(day, workerID)
	for _, a := range list {
		if !w.CanPerform(a.Role) || !IsAvailableFor(w, day, a.Slot) || !c.IsOperating(day, a.Slot) {
			return false
		}
	}
	if s.WorkerHours(workerID) > w.MaxHours {
		return false
	}
	return c.BreaksValid(list)
}
