package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/solver"
)

func TestAuditor_Fields(t *testing.T) {
	c := newTestContext()
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(11), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(13), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Tuesday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "host"})

	report, err := NewAuditor(c, nil).Audit(s)
	require.NoError(t, err)

	assert.Equal(t, 5, report.ScheduledHours)
	assert.Equal(t, 8, report.DesiredHours)
	assert.Equal(t, -3, report.HoursDifference)
	assert.Equal(t, []int{1}, report.OverScheduled)
	assert.False(t, report.BreaksEnforced)
	require.Len(t, report.BreakViolations, 1)

	assert.False(t, report.MandatoryRolesMet)
	assert.True(t, report.MandatoryByDay[model.Monday])
	assert.False(t, report.MandatoryByDay[model.Tuesday])
	assert.Equal(t, []MissingRole{{Day: model.Tuesday, Role: "host"}}, report.MissingMandatory)
	assert.False(t, report.Feasible())
}

func TestAuditor_Understaffed(t *testing.T) {
	c := newTestContext()
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(11), WorkerID: 1, Role: "server"})

	report, err := NewAuditor(c, nil).Audit(s)
	require.NoError(t, err)

	// 周一：server 按客流 [1,2,2,1]，host 每小时 1；周二：host 每小时 1
	missing := map[string]int{}
	for _, u := range report.Understaffed {
		missing[string(u.Day)+"/"+u.Role] += u.Missing()
	}
	assert.Equal(t, 5, missing["mo/server"])
	assert.Equal(t, 4, missing["mo/host"])
	assert.Equal(t, 4, missing["tu/host"])
	assert.Equal(t, 13, report.UnderstaffedHours)
}

func TestAuditor_ConflictBuckets(t *testing.T) {
	c := newTestContext()
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "host"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(13), WorkerID: 2, Role: "server"})

	report, err := NewAuditor(c, nil).Audit(s)
	require.NoError(t, err)
	require.Len(t, report.RoleMismatches, 1)
	assert.Equal(t, 1, report.RoleMismatches[0].WorkerID)
	require.Len(t, report.AvailabilityConflicts, 1)
	assert.Equal(t, 2, report.AvailabilityConflicts[0].WorkerID)
}

func TestAuditor_Idempotent(t *testing.T) {
	c := newTestContext()
	built, err := solver.NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)

	auditor := NewAuditor(c, nil)
	snapshot := built.Schedule.Clone()
	first, err := auditor.Audit(built.Schedule)
	require.NoError(t, err)
	second, err := auditor.Audit(built.Schedule)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, built.Schedule, "审计不修改排班")
}

func TestAuditor_InvalidReference(t *testing.T) {
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 77, Role: "server"})

	_, err := NewAuditor(newTestContext(), nil).Audit(s)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
}

func TestAuditor_SingleServerScenario(t *testing.T) {
	workers := make([]*model.Worker, 0, 3)
	for id := 1; id <= 3; id++ {
		workers = append(workers, &model.Worker{
			ID: id, Roles: []string{"server"}, PreferredHours: 30, MaxHours: 40,
			Availability: map[model.Day]model.Availability{model.Monday: model.Open()},
		})
	}
	c := constraint.NewContext(&model.Setup{
		Hours:   map[model.Day]model.DayHours{model.Monday: {Operating: model.TimeRange{Start: 10, End: 18}}},
		Traffic: model.Traffic{model.Monday: {20, 20, 20, 20, 20, 20, 20, 20}},
		Roles:   map[string]*model.Role{"server": {HourlyRate: 12, MaxGuests: 25}},
		Workers: workers,
	})

	built, err := solver.NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)
	report, err := NewAuditor(c, nil).Audit(built.Schedule)
	require.NoError(t, err)

	assert.Equal(t, 0, report.UnderstaffedHours)
	assert.Empty(t, report.Understaffed)
	assert.True(t, report.BreaksEnforced)
	assert.True(t, report.MandatoryRolesMet)
	assert.True(t, report.Feasible())
}

func TestAuditor_MandatoryRoleWithoutWorkers(t *testing.T) {
	c := constraint.NewContext(&model.Setup{
		Hours: map[model.Day]model.DayHours{model.Monday: {Operating: model.TimeRange{Start: 10, End: 14}}},
		Roles: map[string]*model.Role{
			"server": {HourlyRate: 12, MaxGuests: 25},
			"host":   {HourlyRate: 9, MaxGuests: 100, Min: intPtr(1)},
		},
		Workers: []*model.Worker{{
			ID: 1, Roles: []string{"server"}, PreferredHours: 2, MaxHours: 10,
			Availability: map[model.Day]model.Availability{model.Monday: model.Open()},
		}},
	})

	built, err := solver.NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)
	report, err := NewAuditor(c, nil).Audit(built.Schedule)
	require.NoError(t, err)

	assert.False(t, report.MandatoryRolesMet)
	assert.False(t, report.MandatoryByDay[model.Monday])
}
