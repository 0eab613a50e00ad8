package stats

import (
	"strings"
	"testing"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

func intPtr(v int) *int { return &v }

// 周一 10-14 点，服务员按客流 [20, 30, 30, 10]，迎宾每小时至少 1 人
func coverageContext() *constraint.Context {
	return constraint.NewContext(&model.Setup{
		Hours: map[model.Day]model.DayHours{
			model.Monday: {Operating: model.TimeRange{Start: 10, End: 14}},
		},
		Traffic: model.Traffic{model.Monday: {20, 30, 30, 10}},
		Roles: map[string]*model.Role{
			"server": {HourlyRate: 12, MaxGuests: 25},
			"host":   {HourlyRate: 9, MaxGuests: 100, Min: intPtr(1)},
		},
		Workers: []*model.Worker{
			{ID: 1, Roles: []string{"server"}, PreferredHours: 4, MaxHours: 10},
			{ID: 2, Roles: []string{"host"}, PreferredHours: 4, MaxHours: 10},
		},
	})
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	analyzer := NewCoverageAnalyzer(coverageContext())

	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "host"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 2, Role: "host"})

	metrics := analyzer.Analyze(s)

	// 要求：服务员 1+2+2+1=6，迎宾 4；满足：服务员 1+1=2，迎宾 2
	if metrics.RequiredHours != 10 {
		t.Errorf("Expected 10 required hours, got %d", metrics.RequiredHours)
	}
	if metrics.CoveredHours != 4 {
		t.Errorf("Expected 4 covered hours, got %d", metrics.CoveredHours)
	}
	if metrics.ScheduledHours != 4 {
		t.Errorf("Expected 4 scheduled hours, got %d", metrics.ScheduledHours)
	}
	if metrics.OverallCoverage != 40 {
		t.Errorf("Expected 40%% coverage, got %f", metrics.OverallCoverage)
	}
	if metrics.RoleCoverage["host"] != 50 {
		t.Errorf("Expected host coverage 50%%, got %f", metrics.RoleCoverage["host"])
	}
	if len(metrics.Understaffed) != 5 {
		t.Errorf("Expected 5 understaffed periods, got %d", len(metrics.Understaffed))
	}
	if len(metrics.Overstaffed) != 0 {
		t.Errorf("Expected no overstaffed periods, got %d", len(metrics.Overstaffed))
	}
}

func TestCoverageAnalyzer_FullCoverage(t *testing.T) {
	analyzer := NewCoverageAnalyzer(coverageContext())

	s := model.NewWeekSchedule()
	for hour, servers := range map[int]int{10: 1, 11: 2, 12: 2, 13: 1} {
		for i := 0; i < servers; i++ {
			s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(hour), WorkerID: 1, Role: "server"})
		}
		s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(hour), WorkerID: 2, Role: "host"})
	}
	// 额外的一个迎宾算作多余
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(13), WorkerID: 1, Role: "host"})

	metrics := analyzer.Analyze(s)
	if metrics.OverallCoverage != 100 {
		t.Errorf("Expected 100%% coverage, got %f", metrics.OverallCoverage)
	}
	if len(metrics.Understaffed) != 0 {
		t.Errorf("Expected no understaffed periods, got %d", len(metrics.Understaffed))
	}
	if len(metrics.Overstaffed) != 1 || metrics.Overstaffed[0].Shortage != -1 {
		t.Errorf("Expected 1 overstaffed period, got %+v", metrics.Overstaffed)
	}
}

func TestCoverageAnalyzer_EmptySchedule(t *testing.T) {
	metrics := NewCoverageAnalyzer(coverageContext()).Analyze(model.NewWeekSchedule())

	if metrics.OverallCoverage != 0 {
		t.Errorf("Expected 0%% coverage, got %f", metrics.OverallCoverage)
	}
	if len(metrics.DailyCoverage) != 1 {
		t.Fatalf("Expected 1 day, got %d", len(metrics.DailyCoverage))
	}
	if metrics.DailyCoverage[0].StaffCount != 0 {
		t.Errorf("Expected no staff, got %d", metrics.DailyCoverage[0].StaffCount)
	}
}

func TestCoverageAnalyzer_NoRequirements(t *testing.T) {
	c := constraint.NewContext(&model.Setup{
		Hours: map[model.Day]model.DayHours{model.Monday: {Operating: model.TimeRange{Start: 10, End: 12}}},
		Roles: map[string]*model.Role{"server": {HourlyRate: 12, MaxGuests: 25}},
	})
	metrics := NewCoverageAnalyzer(c).Analyze(model.NewWeekSchedule())
	if metrics.OverallCoverage != 100 {
		t.Errorf("Nothing required should be fully covered, got %f", metrics.OverallCoverage)
	}
}

func TestCoverageAnalyzer_Report(t *testing.T) {
	analyzer := NewCoverageAnalyzer(coverageContext())
	metrics := analyzer.Analyze(model.NewWeekSchedule())

	report := analyzer.GenerateCoverageReport(metrics)
	if !strings.Contains(report, "覆盖率: 0.0%") {
		t.Errorf("Report should contain overall coverage:\n%s", report)
	}
	if !strings.Contains(report, "mo 10:00-11:00 host (需要1人，仅有0人，缺1人)") {
		t.Errorf("Report should list understaffed periods:\n%s", report)
	}
}
