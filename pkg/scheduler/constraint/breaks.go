package constraint

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// MinRestHours 同一员工同一天两段分配之间的最小间隔（小时）
const MinRestHours = 1

// BreakViolation 休息间隔不足的一对分配
type BreakViolation struct {
	WorkerID int        `json:"worker_id"`
	Day      model.Day  `json:"day"`
	First    model.Slot `json:"first"`
	Second   model.Slot `json:"second"`
	Gap      int        `json:"gap"`
}

type workerDay struct {
	worker int
	day    model.Day
}

// BreaksValid 检查所有分配是否满足休息间隔，任何一处违反即失败
// 按时钟小时排序，跨午夜营业的时段请使用 Context.BreaksValid
func BreaksValid(assignments []model.Assignment) bool {
	return breaksValid(assignments, clockOrder)
}

// BreakViolations 返回所有休息间隔不足的分配对（按时钟小时排序）
func BreakViolations(assignments []model.Assignment) []BreakViolation {
	return breakViolations(assignments, clockOrder)
}

// BreaksValid 按营业时段内的位置检查休息间隔，23:00-24:00 与 00:00-01:00 视为相邻
func (c *Context) BreaksValid(assignments []model.Assignment) bool {
	return breaksValid(assignments, c.position)
}

// BreakViolations 按营业时段内的位置返回休息间隔不足的分配对
func (c *Context) BreakViolations(assignments []model.Assignment) []BreakViolation {
	return breakViolations(assignments, c.position)
}

// position 小时在当天营业时段中的位置；不在营业时间内时退回时钟小时
func (c *Context) position(day model.Day, hour int) int {
	if i := c.HourIndex(day, hour); i >= 0 {
		return i
	}
	return hour
}

// hourOrder 将某天的小时映射到排序轴
type hourOrder func(day model.Day, hour int) int

func clockOrder(_ model.Day, hour int) int { return hour }

func breaksValid(assignments []model.Assignment, order hourOrder) bool {
	ok := true
	walkBreaks(assignments, order, func(BreakViolation) bool {
		ok = false
		return false
	})
	return ok
}

func breakViolations(assignments []model.Assignment, order hourOrder) []BreakViolation {
	var out []BreakViolation
	walkBreaks(assignments, order, func(v BreakViolation) bool {
		out = append(out, v)
		return true
	})
	return out
}

// walkBreaks 按 (员工, 天) 分组、按 order 给出的位置排序后检查相邻分配，visit 返回 false 时停止
func walkBreaks(assignments []model.Assignment, order hourOrder, visit func(BreakViolation) bool) {
	groups := make(map[workerDay][]model.Slot)
	var keys []workerDay
	for _, a := range assignments {
		k := workerDay{worker: a.WorkerID, day: a.Day}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], a.Slot)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].worker != keys[j].worker {
			return keys[i].worker < keys[j].worker
		}
		return keys[i].day.Index() < keys[j].day.Index()
	})

	for _, k := range keys {
		slots := groups[k]
		sort.SliceStable(slots, func(i, j int) bool {
			return order(k.day, slots[i].Start) < order(k.day, slots[j].Start)
		})
		for i := 1; i < len(slots); i++ {
			prev, cur := slots[i-1], slots[i]
			gap := order(k.day, cur.Start) - (order(k.day, prev.Start) + prev.Hours())
			if gap >= MinRestHours {
				continue
			}
			v := BreakViolation{WorkerID: k.worker, Day: k.day, First: prev, Second: cur, Gap: gap}
			if !visit(v) {
				return
			}
		}
	}
}
