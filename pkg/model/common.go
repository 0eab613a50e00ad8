// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Day 星期代码
type Day string

const (
	Monday    Day = "mo"
	Tuesday   Day = "tu"
	Wednesday Day = "we"
	Thursday  Day = "th"
	Friday    Day = "fr"
	Saturday  Day = "sa"
	Sunday    Day = "su"
)

// Week 一周的迭代顺序（周一开始），所有阶段都按此顺序遍历
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// availabilityOrder 输入中可用性列表的下标顺序（周日开始）
var availabilityOrder = []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// DayFromIndex 将可用性列表下标转换为星期
func DayFromIndex(idx int) (Day, bool) {
	if idx < 0 || idx >= len(availabilityOrder) {
		return "", false
	}
	return availabilityOrder[idx], true
}

// IsValid 检查星期代码是否合法
func (d Day) IsValid() bool {
	for _, w := range Week {
		if w == d {
			return true
		}
	}
	return false
}

// Index 返回在 Week 中的位置，非法代码返回 -1
func (d Day) Index() int {
	for i, w := range Week {
		if w == d {
			return i
		}
	}
	return -1
}

// TimeRange 整点时间范围 [Start, End)
// End <= Start 表示跨越午夜
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ParseTimeRange 解析 "HH:MM-HH:MM" 格式，分钟部分按整点截断
func ParseTimeRange(s string) (TimeRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("时间范围格式错误: %q", s)
	}
	start, err := parseHour(parts[0])
	if err != nil {
		return TimeRange{}, fmt.Errorf("时间范围 %q 开始时间错误: %w", s, err)
	}
	end, err := parseHour(parts[1])
	if err != nil {
		return TimeRange{}, fmt.Errorf("时间范围 %q 结束时间错误: %w", s, err)
	}
	return TimeRange{Start: start, End: end}, nil
}

// parseHour 解析 "HH:MM" 的小时部分，允许 24:00
func parseHour(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("缺少分钟部分: %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("时间超出范围: %q", s)
	}
	return h, nil
}

// CrossesMidnight 是否跨越午夜
func (tr TimeRange) CrossesMidnight() bool {
	return tr.End <= tr.Start && !(tr.Start == 0 && tr.End == 0)
}

// Duration 返回覆盖的小时数
func (tr TimeRange) Duration() int {
	if tr.CrossesMidnight() {
		return 24 - tr.Start + tr.End
	}
	return tr.End - tr.Start
}

// Hours 按顺序列出覆盖的每个整点小时
func (tr TimeRange) Hours() []int {
	n := tr.Duration()
	hours := make([]int, 0, n)
	for i := 0; i < n; i++ {
		hours = append(hours, (tr.Start+i)%24)
	}
	return hours
}

// Contains 检查小时是否落在 [Start, End) 内（支持跨午夜）
func (tr TimeRange) Contains(hour int) bool {
	if tr.CrossesMidnight() {
		return hour >= tr.Start || hour < tr.End
	}
	return hour >= tr.Start && hour < tr.End
}

// String 格式化为 "HH:MM-HH:MM"
func (tr TimeRange) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", tr.Start, tr.End)
}

// DayHours 某天的营业时间
type DayHours struct {
	Operating TimeRange `json:"operating"` // 营业/准备时间，决定需要排班的小时
	Service   TimeRange `json:"service"`   // 接待客人的时间，视为高峰时段
}

// Traffic 每天按营业小时顺序排列的客流预估
type Traffic map[Day][]int

// GuestsAt 返回某天第 idx 个营业小时的客流，缺失视为 0
func (t Traffic) GuestsAt(day Day, idx int) int {
	counts := t[day]
	if idx < 0 || idx >= len(counts) {
		return 0
	}
	return counts[idx]
}
