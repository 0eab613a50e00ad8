package model

import (
	"testing"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		start   int
		end     int
		wantErr bool
	}{
		{"普通时段", "10:00-18:00", 10, 18, false},
		{"分钟截断", "09:30-17:45", 9, 17, false},
		{"跨午夜", "18:00-02:00", 18, 2, false},
		{"24点", "16:00-24:00", 16, 24, false},
		{"缺少分隔符", "10:00", 0, 0, true},
		{"小时越界", "25:00-26:00", 0, 0, true},
		{"非数字", "aa:00-10:00", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := ParseTimeRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && (tr.Start != tt.start || tr.End != tt.end) {
				t.Errorf("ParseTimeRange(%q) = %v, expected %d-%d", tt.input, tr, tt.start, tt.end)
			}
		})
	}
}

func TestTimeRange_Hours(t *testing.T) {
	tr := TimeRange{Start: 22, End: 2}
	hours := tr.Hours()
	expected := []int{22, 23, 0, 1}
	if len(hours) != len(expected) {
		t.Fatalf("Expected %d hours, got %d", len(expected), len(hours))
	}
	for i := range expected {
		if hours[i] != expected[i] {
			t.Errorf("hours[%d] = %d, expected %d", i, hours[i], expected[i])
		}
	}

	if !tr.Contains(23) || !tr.Contains(1) || tr.Contains(2) || tr.Contains(12) {
		t.Error("跨午夜范围的包含判断错误")
	}

	if got := (TimeRange{Start: 10, End: 18}).Duration(); got != 8 {
		t.Errorf("Duration() = %d, expected 8", got)
	}
}

func TestDayFromIndex(t *testing.T) {
	d, ok := DayFromIndex(0)
	if !ok || d != Sunday {
		t.Errorf("DayFromIndex(0) = %s, expected su", d)
	}
	d, ok = DayFromIndex(1)
	if !ok || d != Monday {
		t.Errorf("DayFromIndex(1) = %s, expected mo", d)
	}
	if _, ok := DayFromIndex(7); ok {
		t.Error("下标 7 应该非法")
	}
}

func TestTraffic_GuestsAt(t *testing.T) {
	tr := Traffic{Monday: {5, 10}}
	if tr.GuestsAt(Monday, 1) != 10 {
		t.Error("Expected 10 guests")
	}
	if tr.GuestsAt(Monday, 5) != 0 || tr.GuestsAt(Tuesday, 0) != 0 {
		t.Error("缺失的客流应视为 0")
	}
}
