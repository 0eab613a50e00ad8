// Package optimizer 提供排班优化算法
package optimizer

import (
	"fmt"
	"math/rand"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveSwapWithinDay   MoveType = iota // 同一天内两个分配交换时段
	MoveSwapBetweenDays                 // 两天各取一个分配互换所在的天
	MoveChangeRole                      // 改为员工可胜任的另一个岗位
	MoveSwapWorkers                     // 同一天内两个分配交换员工
	MoveReassignWorker                  // 换成另一名可胜任该岗位的员工
)

// AllMoves 全部移动类型
var AllMoves = []MoveType{MoveSwapWithinDay, MoveSwapBetweenDays, MoveChangeRole, MoveSwapWorkers, MoveReassignWorker}

var moveNames = map[MoveType]string{
	MoveSwapWithinDay:   "swap_within_day",
	MoveSwapBetweenDays: "swap_between_days",
	MoveChangeRole:      "change_role",
	MoveSwapWorkers:     "swap_workers",
	MoveReassignWorker:  "reassign_worker",
}

// String 移动类型名称
func (m MoveType) String() string {
	if name, ok := moveNames[m]; ok {
		return name
	}
	return fmt.Sprintf("move(%d)", int(m))
}

// ParseMoveType 按名称解析移动类型
func ParseMoveType(name string) (MoveType, error) {
	for m, n := range moveNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("未知的移动类型: %q", name)
}

// touch 移动涉及的 (员工, 天)
type touch struct {
	worker int
	day    model.Day
}

// cell 移动中失去一条分配的 (天, 时段, 岗位)
type cell struct {
	day  model.Day
	slot model.Slot
	role string
}

// Move 一次邻域移动的记录
type Move struct {
	Type    MoveType
	Applied bool // 前置条件不满足时为 false，候选与当前解相同
	touched []touch
	vacated []cell
}

func (m *Move) touch(worker int, day model.Day) {
	m.touched = append(m.touched, touch{worker: worker, day: day})
}

func (m *Move) vacate(day model.Day, a model.Assignment) {
	m.vacated = append(m.vacated, cell{day: day, slot: a.Slot, role: a.Role})
}

// NeighborhoodGenerator 邻域生成器，每次在当前解的深拷贝上做一次移动
type NeighborhoodGenerator struct {
	rng   *rand.Rand
	c     *constraint.Context
	moves []MoveType
}

// NewNeighborhoodGenerator 创建邻域生成器；moves 为空时启用全部移动
func NewNeighborhoodGenerator(c *constraint.Context, rng *rand.Rand, moves []MoveType) *NeighborhoodGenerator {
	if len(moves) == 0 {
		moves = AllMoves
	}
	return &NeighborhoodGenerator{rng: rng, c: c, moves: moves}
}

// GenerateNeighbor 均匀选择一种移动并作用于当前解的拷贝
func (n *NeighborhoodGenerator) GenerateNeighbor(current model.WeekSchedule) (model.WeekSchedule, *Move) {
	next := current.Clone()
	move := &Move{Type: n.moves[n.rng.Intn(len(n.moves))]}

	days := n.c.Days()
	if len(days) == 0 {
		return next, move
	}
	day := days[n.rng.Intn(len(days))]

	switch move.Type {
	case MoveSwapWithinDay:
		n.swapWithinDay(next, day, move)
	case MoveSwapBetweenDays:
		n.swapBetweenDays(next, day, days[n.rng.Intn(len(days))], move)
	case MoveChangeRole:
		n.changeRole(next, day, move)
	case MoveSwapWorkers:
		n.swapWorkers(next, day, move)
	case MoveReassignWorker:
		n.reassignWorker(next, day, move)
	}
	return next, move
}

// pickTwo 从 [0, n) 中不重复地选两个下标
func (n *NeighborhoodGenerator) pickTwo(size int) (int, int) {
	i := n.rng.Intn(size)
	j := n.rng.Intn(size - 1)
	if j >= i {
		j++
	}
	return i, j
}

// swapWithinDay 两个分配交换时段，员工和岗位随时段移动
func (n *NeighborhoodGenerator) swapWithinDay(s model.WeekSchedule, day model.Day, move *Move) {
	list := s[day]
	if len(list) < 2 {
		return
	}
	i, j := n.pickTwo(len(list))
	move.vacate(day, list[i])
	move.vacate(day, list[j])
	list[i].Slot, list[j].Slot = list[j].Slot, list[i].Slot
	list[i], list[j] = list[j], list[i]
	move.Applied = true
	move.touch(list[i].WorkerID, day)
	move.touch(list[j].WorkerID, day)
}

// swapBetweenDays 两天各取一个分配互换，移过去的记录改为目标天
func (n *NeighborhoodGenerator) swapBetweenDays(s model.WeekSchedule, day1, day2 model.Day, move *Move) {
	if day1 == day2 || len(s[day1]) == 0 || len(s[day2]) == 0 {
		return
	}
	i := n.rng.Intn(len(s[day1]))
	j := n.rng.Intn(len(s[day2]))
	a, b := s[day1][i], s[day2][j]
	move.vacate(day1, a)
	move.vacate(day2, b)
	a.Day, b.Day = day2, day1
	s[day1][i], s[day2][j] = b, a
	move.Applied = true
	move.touch(b.WorkerID, day1)
	move.touch(a.WorkerID, day2)
}

// changeRole 改为员工可胜任的另一个岗位
func (n *NeighborhoodGenerator) changeRole(s model.WeekSchedule, day model.Day, move *Move) {
	list := s[day]
	if len(list) == 0 {
		return
	}
	i := n.rng.Intn(len(list))
	w, err := n.c.Worker(list[i].WorkerID)
	if err != nil {
		return
	}
	var options []string
	for _, r := range w.Roles {
		if r == list[i].Role {
			continue
		}
		if _, err := n.c.Role(r); err == nil {
			options = append(options, r)
		}
	}
	if len(options) == 0 {
		return
	}
	move.vacate(day, list[i])
	list[i].Role = options[n.rng.Intn(len(options))]
	move.Applied = true
	move.touch(w.ID, day)
}

// swapWorkers 同一天两个分配交换员工
func (n *NeighborhoodGenerator) swapWorkers(s model.WeekSchedule, day model.Day, move *Move) {
	list := s[day]
	if len(list) < 2 {
		return
	}
	i, j := n.pickTwo(len(list))
	if list[i].WorkerID == list[j].WorkerID {
		return
	}
	list[i].WorkerID, list[j].WorkerID = list[j].WorkerID, list[i].WorkerID
	move.Applied = true
	move.touch(list[i].WorkerID, day)
	move.touch(list[j].WorkerID, day)
}

// reassignWorker 换成另一名可胜任该岗位的员工
func (n *NeighborhoodGenerator) reassignWorker(s model.WeekSchedule, day model.Day, move *Move) {
	list := s[day]
	if len(list) == 0 {
		return
	}
	i := n.rng.Intn(len(list))
	var options []*model.Worker
	for _, w := range n.c.CapableWorkers(list[i].Role) {
		if w.ID != list[i].WorkerID {
			options = append(options, w)
		}
	}
	if len(options) == 0 {
		return
	}
	list[i].WorkerID = options[n.rng.Intn(len(options))].ID
	move.Applied = true
	move.touch(list[i].WorkerID, day)
}

// feasible 只检查移动涉及的部分，其余与当前解相同：
// 涉及的 (员工, 天) 仍满足硬约束；失去分配的 (天, 时段, 岗位) 不会因此降到人数要求以下
func (n *NeighborhoodGenerator) feasible(current, candidate model.WeekSchedule, move *Move) bool {
	for _, t := range move.touched {
		if !n.c.WorkerDayValid(candidate, t.worker, t.day) {
			return false
		}
	}
	for _, v := range move.vacated {
		role, err := n.c.Role(v.role)
		if err != nil {
			continue
		}
		after := candidate.Count(v.day, v.slot, v.role)
		if after >= current.Count(v.day, v.slot, v.role) {
			continue
		}
		if after < n.c.RequirementFor(v.day, v.slot, role).Required {
			return false
		}
	}
	return true
}
