package constraint

import "github.com/paiban/roster/pkg/model"

// RequiredStaffForGuests 按客流计算所需人数：ceil(guests / maxGuests)
func RequiredStaffForGuests(guests, maxGuests int) int {
	if maxGuests <= 0 || guests <= 0 {
		return 0
	}
	return (guests + maxGuests - 1) / maxGuests
}

// Requirement 某天某时段某岗位的人数要求
type Requirement struct {
	Day      model.Day  `json:"day"`
	Slot     model.Slot `json:"slot"`
	Role     string     `json:"role"`
	Minimum  int        `json:"minimum"`  // 岗位声明的最少人数（高峰感知）
	Traffic  int        `json:"traffic"`  // 按客流折算的人数
	Required int        `json:"required"` // 两者取大
}

// RequirementFor 计算某天某时段某岗位的人数要求
func (c *Context) RequirementFor(day model.Day, slot model.Slot, role *model.Role) Requirement {
	req := Requirement{Day: day, Slot: slot, Role: role.Name}
	req.Minimum = role.Required(c.IsPeak(day, slot.Start))
	if role.HasMinimum() && req.Minimum < 1 {
		req.Minimum = 1
	}
	req.Traffic = RequiredStaffForGuests(c.GuestsAt(day, slot), role.MaxGuests)
	req.Required = req.Minimum
	if req.Traffic > req.Required {
		req.Required = req.Traffic
	}
	return req
}
