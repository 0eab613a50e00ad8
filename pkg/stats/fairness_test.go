package stats

import (
	"math"
	"testing"

	"github.com/paiban/roster/pkg/model"
)

func fairnessWorkers() []*model.Worker {
	return []*model.Worker{
		{ID: 1, Roles: []string{"server"}, PreferredHours: 2, MaxHours: 10},
		{ID: 2, Roles: []string{"server"}, PreferredHours: 2, MaxHours: 10},
	}
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Saturday, Slot: model.HourSlot(22), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Saturday, Slot: model.HourSlot(23), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(15), WorkerID: 2, Role: "server"})

	metrics := analyzer.Analyze(s, fairnessWorkers())

	if metrics == nil {
		t.Fatal("Metrics should not be nil")
	}
	if len(metrics.EmployeeStats) != 2 {
		t.Fatalf("Expected 2 employee stats, got %d", len(metrics.EmployeeStats))
	}

	// 员工1 3 小时，员工2 1 小时
	if metrics.AvgHoursPerEmployee != 2 {
		t.Errorf("Expected avg 2, got %f", metrics.AvgHoursPerEmployee)
	}
	if metrics.WorkloadVariance != 1 {
		t.Errorf("Expected variance 1, got %f", metrics.WorkloadVariance)
	}
	if math.Abs(metrics.WorkloadGini-0.25) > 1e-9 {
		t.Errorf("Expected gini 0.25, got %f", metrics.WorkloadGini)
	}
	if metrics.HoursRange != 2 {
		t.Errorf("Expected range 2, got %f", metrics.HoursRange)
	}
	if metrics.PreferenceGap != 2 {
		t.Errorf("Expected preference gap 2, got %d", metrics.PreferenceGap)
	}

	first := metrics.EmployeeStats[0]
	if first.LateSlots != 2 || first.WeekendSlots != 2 || first.OvertimeHours != 1 {
		t.Errorf("Unexpected stats for worker 1: %+v", first)
	}
	if metrics.LateShiftGini != 0.5 {
		t.Errorf("Expected late gini 0.5, got %f", metrics.LateShiftGini)
	}
	if metrics.DayPartDistribution["night"] != 50 {
		t.Errorf("Expected 50%% night slots, got %f", metrics.DayPartDistribution["night"])
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	metrics := analyzer.Analyze(model.NewWeekSchedule(), nil)
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Empty input should have perfect fairness score, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_IdleWorkersCount(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})

	metrics := analyzer.Analyze(s, fairnessWorkers())
	if metrics.MinHours != 0 {
		t.Errorf("Idle worker should count as 0 hours, got min %f", metrics.MinHours)
	}
	if metrics.WorkloadGini != 0.5 {
		t.Errorf("Expected gini 0.5, got %f", metrics.WorkloadGini)
	}
}

func TestFairnessAnalyzer_PerfectFairness(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "server"})

	metrics := analyzer.Analyze(s, fairnessWorkers())
	if metrics.WorkloadGini != 0 {
		t.Errorf("Equal workload should have gini 0, got %f", metrics.WorkloadGini)
	}
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected score 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_CompareSchedules(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	before := model.NewWeekSchedule()
	before.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	before.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 1, Role: "server"})

	after := model.NewWeekSchedule()
	after.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	after.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 2, Role: "server"})

	diff := analyzer.CompareSchedules(before, after, fairnessWorkers())
	if diff["workload_gini_diff"] >= 0 {
		t.Errorf("Balanced schedule should lower gini, got diff %f", diff["workload_gini_diff"])
	}
	if diff["overall_score_diff"] <= 0 {
		t.Errorf("Balanced schedule should raise score, got diff %f", diff["overall_score_diff"])
	}
}
