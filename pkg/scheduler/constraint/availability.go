package constraint

import "github.com/paiban/roster/pkg/model"

// IsAvailable 员工某天某小时是否可以上班
// 全天可用/不可用为常数时间；窗口按 [start, end) 判断；未定义的天视为不可用
func IsAvailable(w *model.Worker, day model.Day, hour int) bool {
	a, ok := w.Availability[day]
	if !ok {
		return false
	}
	switch a.Kind {
	case model.AvailabilityOpen:
		return true
	case model.AvailabilityOff:
		return false
	default:
		return a.Window.Contains(hour)
	}
}

// IsAvailableFor 员工是否在整个时段内都可用
func IsAvailableFor(w *model.Worker, day model.Day, slot model.Slot) bool {
	for h := slot.Start; h < slot.End; h++ {
		if !IsAvailable(w, day, h%24) {
			return false
		}
	}
	return true
}
