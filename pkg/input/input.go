// Package input 读取并校验业务配置（JSON 或 YAML），转换为排班引擎的 model.Setup
package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
)

// Format 配置文件格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath 按扩展名判断格式，未知扩展名按 JSON 处理
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document 业务配置原始结构
type Document struct {
	Hours        map[string]HoursSpec `json:"hours" yaml:"hours" validate:"required,min=1,dive,keys,weekday,endkeys,len=2,dive,timerange"`
	DailyTraffic map[string][]int     `json:"dailyTraffic" yaml:"dailyTraffic" validate:"required,dive,keys,weekday,endkeys,dive,gte=0"`
	Positions    map[string]Position  `json:"positions" yaml:"positions" validate:"required,min=1,dive,keys,required,endkeys"`
	Empl         []Employee           `json:"empl" yaml:"empl" validate:"required,min=1,dive"`
	Weights      map[string]float64   `json:"weights,omitempty" yaml:"weights,omitempty" validate:"omitempty,dive,keys,oneof=labor_cost fairness preference,endkeys,gte=0"`
}

// Position 岗位配置
type Position struct {
	HourlyRate int  `json:"hourlyRate" yaml:"hourlyRate" validate:"gte=0"`
	MaxGuests  *int `json:"maxGuests" yaml:"maxGuests" validate:"required,gte=0"`
	Min        *int `json:"min,omitempty" yaml:"min,omitempty" validate:"omitempty,gte=0"`
	MinOnPeak  *int `json:"minOnPeak,omitempty" yaml:"minOnPeak,omitempty" validate:"omitempty,gte=0"`
}

// Employee 员工配置；avl 下标 0 为周日
type Employee struct {
	ID    int                 `json:"id" yaml:"id" validate:"required,gt=0"`
	Pos   string              `json:"pos" yaml:"pos" validate:"required"`
	Roles []string            `json:"roles,omitempty" yaml:"roles,omitempty" validate:"omitempty,dive,required"`
	PH    *int                `json:"ph" yaml:"ph" validate:"required,gte=0"`
	MaxH  *int                `json:"maxh" yaml:"maxh" validate:"required,gte=0"`
	Avl   []AvailabilityValue `json:"avl" yaml:"avl" validate:"required,len=7"`
}

// HoursSpec 某天的两个时间窗口：[营业时间, 接待时间]
// 同时接受 {"operatingHours": [...]} 的写法
type HoursSpec []string

// UnmarshalJSON 支持列表和对象两种写法
func (h *HoursSpec) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*h = list
		return nil
	}
	var obj struct {
		OperatingHours []string `json:"operatingHours"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("营业时间格式错误: %w", err)
	}
	*h = obj.OperatingHours
	return nil
}

// UnmarshalYAML 支持列表和对象两种写法
func (h *HoursSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*h = list
		return nil
	}
	var obj struct {
		OperatingHours []string `yaml:"operatingHours"`
	}
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("营业时间格式错误: %w", err)
	}
	*h = obj.OperatingHours
	return nil
}

// AvailabilityValue 单日可用性：1/true 全天可用，0/false/null 不可用，字符串为 "open"/"off"/"HH:MM-HH:MM"
type AvailabilityValue struct {
	model.Availability
}

// UnmarshalJSON 解析 JSON 中的可用性值
func (v *AvailabilityValue) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return v.set(raw)
}

// UnmarshalYAML 解析 YAML 中的可用性值
func (v *AvailabilityValue) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return v.set(raw)
}

// MarshalJSON 输出为输入格式的字符串
func (v AvailabilityValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *AvailabilityValue) set(raw interface{}) error {
	switch x := raw.(type) {
	case nil:
		v.Availability = model.Off()
	case bool:
		if x {
			v.Availability = model.Open()
		} else {
			v.Availability = model.Off()
		}
	case float64:
		return v.setFlag(int(x), x != float64(int(x)))
	case int:
		return v.setFlag(x, false)
	case string:
		a, err := model.ParseAvailability(x)
		if err != nil {
			return err
		}
		v.Availability = a
	default:
		return fmt.Errorf("无法识别的可用性值: %v", raw)
	}
	return nil
}

func (v *AvailabilityValue) setFlag(n int, fractional bool) error {
	switch {
	case fractional:
		return fmt.Errorf("可用性只能是 0 或 1")
	case n == 1:
		v.Availability = model.Open()
	case n == 0:
		v.Availability = model.Off()
	default:
		return fmt.Errorf("可用性只能是 0 或 1，实际为 %d", n)
	}
	return nil
}

// Parse 解码并校验配置
func Parse(data []byte, format Format) (*Document, error) {
	return Decode(bytes.NewReader(data), format)
}

// Decode 从 reader 解码并校验配置
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析 YAML 配置失败")
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析 JSON 配置失败")
		}
	default:
		return nil, apperrors.InvalidInput("format", fmt.Sprintf("不支持的格式 %q", format))
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load 读取配置文件，格式由扩展名决定
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法打开配置文件").WithField("path", path)
	}
	defer f.Close()
	return Decode(f, FormatFromPath(path))
}

// Setup 转换为引擎使用的配置
// 岗位名称、员工岗位引用和时间窗口都已在 Validate 中检查，这里只做类型转换
func (d *Document) Setup() (*model.Setup, error) {
	setup := &model.Setup{
		Hours:   make(map[model.Day]model.DayHours, len(d.Hours)),
		Traffic: make(model.Traffic, len(d.DailyTraffic)),
		Roles:   make(map[string]*model.Role, len(d.Positions)),
		Workers: make([]*model.Worker, 0, len(d.Empl)),
	}

	for day, spec := range d.Hours {
		operating, err := model.ParseTimeRange(spec[0])
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "营业时间格式错误").WithField("day", day)
		}
		service, err := model.ParseTimeRange(spec[1])
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "接待时间格式错误").WithField("day", day)
		}
		setup.Hours[model.Day(day)] = model.DayHours{Operating: operating, Service: service}
	}

	for day, counts := range d.DailyTraffic {
		setup.Traffic[model.Day(day)] = append([]int(nil), counts...)
	}

	for name, p := range d.Positions {
		setup.Roles[name] = &model.Role{
			Name:       name,
			HourlyRate: p.HourlyRate,
			MaxGuests:  *p.MaxGuests,
			Min:        p.Min,
			MinOnPeak:  p.MinOnPeak,
		}
	}

	for _, e := range d.Empl {
		w := &model.Worker{
			ID:             e.ID,
			Roles:          e.roleList(),
			PreferredHours: *e.PH,
			MaxHours:       *e.MaxH,
			Availability:   make(map[model.Day]model.Availability, len(e.Avl)),
		}
		for idx, v := range e.Avl {
			day, ok := model.DayFromIndex(idx)
			if !ok {
				return nil, apperrors.InvalidInput("avl", "可用性必须是 7 天")
			}
			w.Availability[day] = v.Availability
		}
		setup.Workers = append(setup.Workers, w)
	}
	return setup, nil
}

// WeightSet 转换权重；未提供的权重取 1
func (d *Document) WeightSet() model.Weights {
	weights := model.DefaultWeights()
	for k, v := range d.Weights {
		weights[model.WeightKey(k)] = v
	}
	return weights
}

// roleList 主岗位在前，附加岗位去重追加
func (e *Employee) roleList() []string {
	roles := []string{e.Pos}
	seen := map[string]bool{e.Pos: true}
	for _, r := range e.Roles {
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	return roles
}
