package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

func intPtr(v int) *int { return &v }

// singleDayServers 一天 10:00-18:00，客流每小时 20，3 名服务员
func singleDayServers() *model.Setup {
	workers := make([]*model.Worker, 0, 3)
	for id := 1; id <= 3; id++ {
		workers = append(workers, &model.Worker{
			ID:             id,
			Roles:          []string{"server"},
			PreferredHours: 40,
			MaxHours:       40,
			Availability:   map[model.Day]model.Availability{model.Monday: model.Open()},
		})
	}
	return &model.Setup{
		Hours: map[model.Day]model.DayHours{
			model.Monday: {
				Operating: model.TimeRange{Start: 10, End: 18},
				Service:   model.TimeRange{Start: 11, End: 17},
			},
		},
		Traffic: model.Traffic{model.Monday: {20, 20, 20, 20, 20, 20, 20, 20}},
		Roles: map[string]*model.Role{
			"server": {Name: "server", HourlyRate: 12, MaxGuests: 25},
		},
		Workers: workers,
	}
}

func TestInitialBuilder_OneServerPerHour(t *testing.T) {
	c := constraint.NewContext(singleDayServers())
	result, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)

	for _, slot := range c.SlotsFor(model.Monday) {
		if got := result.Schedule.Count(model.Monday, slot, "server"); got != 1 {
			t.Errorf("%s: server count = %d, expected 1", slot, got)
		}
	}
	assert.Empty(t, result.Shortfalls)
	assert.Equal(t, 8, result.Statistics.TotalAssignments)
	assert.Equal(t, 8, result.Statistics.TotalHours)
	assert.True(t, constraint.BreaksValid(result.Schedule.All()))
}

func TestInitialBuilder_FairnessOrder(t *testing.T) {
	c := constraint.NewContext(singleDayServers())
	result, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)

	// 工时最少者优先，平局按目录顺序
	day := result.Schedule[model.Monday]
	require.NotEmpty(t, day)
	assert.Equal(t, 1, day[0].WorkerID)
	hours := result.Schedule.HoursByWorker()
	for id, h := range hours {
		assert.LessOrEqual(t, h, 3, "worker %d", id)
	}
}

func TestInitialBuilder_MandatoryRoleWithoutWorkers(t *testing.T) {
	setup := singleDayServers()
	setup.Roles["host"] = &model.Role{Name: "host", HourlyRate: 9, MaxGuests: 100, Min: intPtr(1)}

	c := constraint.NewContext(setup)
	result, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err, "无法满足的时段不是错误")

	assert.Len(t, result.Shortfalls, 8)
	for _, sf := range result.Shortfalls {
		assert.Equal(t, "host", sf.Role)
		assert.Equal(t, 1, sf.Required)
		assert.Equal(t, 0, sf.Assigned)
	}
	assert.Equal(t, 8, result.Schedule.Len(), "服务员仍按客流排满")
}

func TestInitialBuilder_PeakMinimum(t *testing.T) {
	setup := singleDayServers()
	setup.Traffic = nil
	setup.Roles["server"].Min = intPtr(1)
	setup.Roles["server"].MinOnPeak = intPtr(2)
	// 高峰每小时两人且需要间隔休息，至少需要四名员工轮换
	setup.Workers = append(setup.Workers, &model.Worker{
		ID:           4,
		Roles:        []string{"server"},
		MaxHours:     40,
		Availability: map[model.Day]model.Availability{model.Monday: model.Open()},
	})
	for _, w := range setup.Workers {
		w.PreferredHours = 0
	}

	c := constraint.NewContext(setup)
	result, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Schedule.Count(model.Monday, model.HourSlot(10), "server"))
	assert.Equal(t, 2, result.Schedule.Count(model.Monday, model.HourSlot(12), "server"))
	assert.True(t, constraint.BreaksValid(result.Schedule.All()))
}

func TestInitialBuilder_PreferenceTopUp(t *testing.T) {
	setup := singleDayServers()
	setup.Traffic = nil
	setup.Roles["cook"] = &model.Role{Name: "cook", HourlyRate: 15, MaxGuests: 40}
	setup.Workers = []*model.Worker{{
		ID:             7,
		Roles:          []string{"cook", "server"},
		PreferredHours: 2,
		MaxHours:       10,
		Availability:   map[model.Day]model.Availability{model.Monday: model.Open()},
	}}

	c := constraint.NewContext(setup)
	result, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Schedule.WorkerHours(7))
	assert.Equal(t, 2, result.Statistics.ByPass[PassPreference])
	for _, a := range result.Schedule.All() {
		assert.Equal(t, "cook", a.Role)
	}
}

func TestInitialBuilder_RespectsAvailabilityAndCap(t *testing.T) {
	setup := singleDayServers()
	setup.Workers[0].Availability[model.Monday] = model.Window(10, 12)
	setup.Workers[1].MaxHours = 1

	c := constraint.NewContext(setup)
	result, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)

	for _, a := range result.Schedule.WorkerDay(model.Monday, 1) {
		assert.True(t, a.Slot.Start >= 10 && a.Slot.End <= 12, "员工 1 的分配 %s 超出可用窗口", a)
	}
	assert.LessOrEqual(t, result.Schedule.WorkerHours(2), 1)
}

func TestInitialBuilder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := constraint.NewContext(singleDayServers())
	result, err := NewInitialBuilder().Build(ctx, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Schedule.Len())
}

func TestInitialBuilder_Deterministic(t *testing.T) {
	c := constraint.NewContext(singleDayServers())
	first, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)
	second, err := NewInitialBuilder().Build(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, first.Schedule, second.Schedule)
}
