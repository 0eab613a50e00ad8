// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// AvailabilityKind 可用性类型
type AvailabilityKind string

const (
	AvailabilityOpen   AvailabilityKind = "open"   // 全天可用
	AvailabilityOff    AvailabilityKind = "off"    // 全天不可用
	AvailabilityWindow AvailabilityKind = "window" // 指定时间窗口
)

// Availability 员工某天的可用性
type Availability struct {
	Kind   AvailabilityKind `json:"kind"`
	Window TimeRange        `json:"window,omitempty"`
}

// Open 全天可用
func Open() Availability { return Availability{Kind: AvailabilityOpen} }

// Off 全天不可用
func Off() Availability { return Availability{Kind: AvailabilityOff} }

// Window 时间窗口可用
func Window(start, end int) Availability {
	return Availability{Kind: AvailabilityWindow, Window: TimeRange{Start: start, End: end}}
}

// ParseAvailability 解析 "open" / "off" / "HH:MM-HH:MM"
func ParseAvailability(s string) (Availability, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "open":
		return Open(), nil
	case "off", "":
		return Off(), nil
	}
	tr, err := ParseTimeRange(v)
	if err != nil {
		return Availability{}, fmt.Errorf("无法解析可用性 %q: %w", s, err)
	}
	return Availability{Kind: AvailabilityWindow, Window: tr}, nil
}

// Covers 检查某小时是否可用，窗口按 [start, end) 判断
func (a Availability) Covers(hour int) bool {
	switch a.Kind {
	case AvailabilityOpen:
		return true
	case AvailabilityWindow:
		return a.Window.Contains(hour)
	default:
		return false
	}
}

// CoversSlot 检查整个时段是否可用
func (a Availability) CoversSlot(slot Slot) bool {
	for h := slot.Start; h < slot.End; h++ {
		if !a.Covers(h % 24) {
			return false
		}
	}
	return true
}

// String 还原为输入格式
func (a Availability) String() string {
	if a.Kind == AvailabilityWindow {
		return a.Window.String()
	}
	return string(a.Kind)
}

// Worker 员工
type Worker struct {
	ID             int                  `json:"id"`
	Roles          []string             `json:"roles"`           // 可胜任的岗位
	Availability   map[Day]Availability `json:"availability"`    // 每天的可用性
	PreferredHours int                  `json:"preferred_hours"` // 期望周工时
	MaxHours       int                  `json:"max_hours"`       // 周工时上限
}

// CanPerform 检查员工是否能胜任某岗位
func (w *Worker) CanPerform(role string) bool {
	for _, r := range w.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole 返回主岗位（列表第一个）
func (w *Worker) PrimaryRole() string {
	if len(w.Roles) == 0 {
		return ""
	}
	return w.Roles[0]
}

// AvailabilityOn 返回某天的可用性，未定义视为不可用
func (w *Worker) AvailabilityOn(day Day) Availability {
	if a, ok := w.Availability[day]; ok {
		return a
	}
	return Off()
}

// AvailableAt 检查员工某天某小时是否可用
func (w *Worker) AvailableAt(day Day, hour int) bool {
	return w.AvailabilityOn(day).Covers(hour)
}

// AvailableFor 检查员工某天整个时段是否可用
func (w *Worker) AvailableFor(day Day, slot Slot) bool {
	return w.AvailabilityOn(day).CoversSlot(slot)
}
