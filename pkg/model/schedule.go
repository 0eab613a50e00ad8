// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// Role 岗位定义
type Role struct {
	Name       string `json:"name"`
	HourlyRate int    `json:"hourly_rate"`
	MaxGuests  int    `json:"max_guests"`            // 单人每小时可接待的客人数
	Min        *int   `json:"min,omitempty"`         // 任何时候的最少人数
	MinOnPeak  *int   `json:"min_on_peak,omitempty"` // 高峰时段的最少人数
}

// HasMinimum 是否声明了最少人数（声明为 0 也算）
func (r *Role) HasMinimum() bool {
	return r.Min != nil
}

// Required 返回某时段要求的最少人数
func (r *Role) Required(peak bool) int {
	n := 0
	if r.Min != nil {
		n = *r.Min
	}
	if peak && r.MinOnPeak != nil && *r.MinOnPeak > n {
		n = *r.MinOnPeak
	}
	return n
}

// Slot 一天内的连续整点时段 [Start, End)
type Slot struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// HourSlot 返回从某小时开始的一小时时段
func HourSlot(hour int) Slot {
	return Slot{Start: hour, End: hour + 1}
}

// ParseSlot 解析 "HH:MM-HH:MM"
func ParseSlot(s string) (Slot, error) {
	tr, err := ParseTimeRange(s)
	if err != nil {
		return Slot{}, err
	}
	if tr.End <= tr.Start {
		return Slot{}, fmt.Errorf("时段 %q 不能跨天", s)
	}
	return Slot{Start: tr.Start, End: tr.End}, nil
}

// Hours 时段长度（小时）
func (s Slot) Hours() int {
	return s.End - s.Start
}

// String 格式化为 "HH:00-HH:00"
func (s Slot) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", s.Start, s.End)
}

// MarshalText 以字符串形式序列化
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 从字符串反序列化
func (s *Slot) UnmarshalText(b []byte) error {
	parsed, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Assignment 排班分配
type Assignment struct {
	Day      Day    `json:"day"`
	Slot     Slot   `json:"slot"`
	WorkerID int    `json:"worker_id"`
	Role     string `json:"role"`
}

// String 便于日志输出
func (a Assignment) String() string {
	return fmt.Sprintf("%s %s worker=%d role=%s", a.Day, a.Slot, a.WorkerID, a.Role)
}

// WeekSchedule 一周排班：每天一个有序的分配列表
type WeekSchedule map[Day][]Assignment

// NewWeekSchedule 创建空排班
func NewWeekSchedule() WeekSchedule {
	return make(WeekSchedule)
}

// Clone 深拷贝
func (s WeekSchedule) Clone() WeekSchedule {
	clone := make(WeekSchedule, len(s))
	for day, list := range s {
		cp := make([]Assignment, len(list))
		copy(cp, list)
		clone[day] = cp
	}
	return clone
}

// Add 追加分配
func (s WeekSchedule) Add(a Assignment) {
	s[a.Day] = append(s[a.Day], a)
}

// Days 按周顺序返回有分配的天
func (s WeekSchedule) Days() []Day {
	days := make([]Day, 0, len(s))
	for _, d := range Week {
		if len(s[d]) > 0 {
			days = append(days, d)
		}
	}
	return days
}

// All 按周顺序返回全部分配
func (s WeekSchedule) All() []Assignment {
	all := make([]Assignment, 0, s.Len())
	for _, d := range Week {
		all = append(all, s[d]...)
	}
	return all
}

// Len 分配总数
func (s WeekSchedule) Len() int {
	n := 0
	for _, list := range s {
		n += len(list)
	}
	return n
}

// Find 按 (slot, role) 查找某天的分配下标，未找到返回 -1
func (s WeekSchedule) Find(day Day, slot Slot, role string) int {
	for i, a := range s[day] {
		if a.Slot == slot && a.Role == role {
			return i
		}
	}
	return -1
}

// FindSlot 查找某天第一个匹配时段的分配下标
func (s WeekSchedule) FindSlot(day Day, slot Slot) int {
	for i, a := range s[day] {
		if a.Slot == slot {
			return i
		}
	}
	return -1
}

// Count 统计某天某时段某岗位的人数
func (s WeekSchedule) Count(day Day, slot Slot, role string) int {
	n := 0
	for _, a := range s[day] {
		if a.Slot == slot && a.Role == role {
			n++
		}
	}
	return n
}

// WorkerBusy 检查员工在某天某时段是否已有分配
func (s WeekSchedule) WorkerBusy(day Day, slot Slot, workerID int) bool {
	for _, a := range s[day] {
		if a.WorkerID == workerID && a.Slot.Start < slot.End && slot.Start < a.Slot.End {
			return true
		}
	}
	return false
}

// WorkerDay 返回员工某天的全部分配
func (s WeekSchedule) WorkerDay(day Day, workerID int) []Assignment {
	var out []Assignment
	for _, a := range s[day] {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out
}

// HoursByWorker 统计每个员工的总工时
func (s WeekSchedule) HoursByWorker() map[int]int {
	hours := make(map[int]int)
	for _, list := range s {
		for _, a := range list {
			hours[a.WorkerID] += a.Slot.Hours()
		}
	}
	return hours
}

// WorkerHours 统计单个员工的总工时
func (s WeekSchedule) WorkerHours(workerID int) int {
	n := 0
	for _, list := range s {
		for _, a := range list {
			if a.WorkerID == workerID {
				n += a.Slot.Hours()
			}
		}
	}
	return n
}

// WeightKey 权重名称
type WeightKey string

const (
	WeightLaborCost  WeightKey = "labor_cost"
	WeightFairness   WeightKey = "fairness"
	WeightPreference WeightKey = "preference"
)

// Weights 软目标权重，由调用方提供
type Weights map[WeightKey]float64

// DefaultWeights 所有目标权重为 1
func DefaultWeights() Weights {
	return Weights{WeightLaborCost: 1, WeightFairness: 1, WeightPreference: 1}
}

// Of 返回某项权重，未提供时为 1
func (w Weights) Of(key WeightKey) float64 {
	if v, ok := w[key]; ok {
		return v
	}
	return 1
}

// Setup 经过校验的业务配置
type Setup struct {
	Hours   map[Day]DayHours `json:"hours"`
	Traffic Traffic          `json:"traffic"`
	Roles   map[string]*Role `json:"roles"`
	Workers []*Worker        `json:"workers"`
}

// Describe 返回配置摘要
func (s *Setup) Describe() string {
	days := make([]string, 0, len(s.Hours))
	for _, d := range Week {
		if _, ok := s.Hours[d]; ok {
			days = append(days, string(d))
		}
	}
	return fmt.Sprintf("days=%s roles=%d workers=%d", strings.Join(days, ","), len(s.Roles), len(s.Workers))
}
