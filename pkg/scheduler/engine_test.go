package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roster/pkg/adjust"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
)

func intPtr(v int) *int { return &v }

func quickOptions(seed int64) *Options {
	return &Options{Optimizer: &optimizer.OptimizationConfig{
		InitialTemp:   100,
		CoolingRate:   0.99,
		MaxIterations: 300,
		Seed:          seed,
		Chains:        2,
	}}
}

// 一天 10-18 点，每小时 20 位客人，3 名服务员
func singleServerSetup() *model.Setup {
	workers := make([]*model.Worker, 0, 3)
	for id := 1; id <= 3; id++ {
		workers = append(workers, &model.Worker{
			ID: id, Roles: []string{"server"}, PreferredHours: 30, MaxHours: 40,
			Availability: map[model.Day]model.Availability{model.Monday: model.Open()},
		})
	}
	return &model.Setup{
		Hours:   map[model.Day]model.DayHours{model.Monday: {Operating: model.TimeRange{Start: 10, End: 18}}},
		Traffic: model.Traffic{model.Monday: {20, 20, 20, 20, 20, 20, 20, 20}},
		Roles:   map[string]*model.Role{"server": {HourlyRate: 12, MaxGuests: 25}},
		Workers: workers,
	}
}

// 两天，服务员和必须到岗的迎宾
func restaurantSetup() *model.Setup {
	open := map[model.Day]model.Availability{model.Friday: model.Open(), model.Saturday: model.Open()}
	return &model.Setup{
		Hours: map[model.Day]model.DayHours{
			model.Friday:   {Operating: model.TimeRange{Start: 11, End: 19}, Service: model.TimeRange{Start: 12, End: 14}},
			model.Saturday: {Operating: model.TimeRange{Start: 11, End: 19}, Service: model.TimeRange{Start: 17, End: 19}},
		},
		Traffic: model.Traffic{
			model.Friday:   {10, 40, 60, 20, 10, 30, 50, 20},
			model.Saturday: {20, 50, 50, 30, 20, 60, 70, 40},
		},
		Roles: map[string]*model.Role{
			"server": {HourlyRate: 12, MaxGuests: 25},
			"host":   {HourlyRate: 10, MaxGuests: 200, Min: intPtr(1)},
		},
		Workers: []*model.Worker{
			{ID: 1, Roles: []string{"server"}, PreferredHours: 8, MaxHours: 12, Availability: open},
			{ID: 2, Roles: []string{"server"}, PreferredHours: 8, MaxHours: 12, Availability: open},
			{ID: 3, Roles: []string{"server", "host"}, PreferredHours: 6, MaxHours: 10, Availability: open},
			{ID: 4, Roles: []string{"host"}, PreferredHours: 6, MaxHours: 10, Availability: open},
			{ID: 5, Roles: []string{"server"}, PreferredHours: 4, MaxHours: 8, Availability: map[model.Day]model.Availability{
				model.Saturday: model.Window(15, 19),
			}},
		},
	}
}

func TestEngine_SingleServerScenario(t *testing.T) {
	plan, err := NewEngine().Run(context.Background(), singleServerSetup(), nil, quickOptions(7))
	require.NoError(t, err)

	for hour := 10; hour < 18; hour++ {
		assert.Equal(t, 1, plan.Schedule.Count(model.Monday, model.HourSlot(hour), "server"), "hour %d", hour)
	}
	assert.Equal(t, 0, plan.Report.UnderstaffedHours)
	assert.True(t, plan.Report.BreaksEnforced)
	assert.True(t, plan.Report.Feasible())
	assert.False(t, plan.Partial())
	require.NotNil(t, plan.Build)
	assert.Greater(t, plan.Build.TotalAssignments, 0)
	assert.Equal(t, plan.Build.TotalAssignments, plan.Build.TotalHours)
	require.NotNil(t, plan.Coverage)
	assert.Equal(t, 100.0, plan.Coverage.OverallCoverage)
	require.NotNil(t, plan.Fairness)
	assert.Len(t, plan.Fairness.EmployeeStats, 3)
	assert.LessOrEqual(t, plan.Cost.Total, plan.InitialCost)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", plan.ID.String())
}

func TestEngine_MandatoryRoleWithoutWorkers(t *testing.T) {
	setup := singleServerSetup()
	setup.Roles["host"] = &model.Role{HourlyRate: 9, MaxGuests: 100, Min: intPtr(1)}

	plan, err := NewEngine().Run(context.Background(), setup, nil, quickOptions(1))
	require.NoError(t, err)

	assert.False(t, plan.Report.MandatoryRolesMet)
	assert.False(t, plan.Report.MandatoryByDay[model.Monday])
	assert.NotEmpty(t, plan.Shortfalls)
	assert.True(t, plan.Partial())
}

func TestEngine_Invariants(t *testing.T) {
	setup := restaurantSetup()
	c := constraint.NewContext(setup)

	for _, seed := range []int64{1, 2, 3} {
		plan, err := NewEngine().Run(context.Background(), setup, model.Weights{model.WeightFairness: 5}, quickOptions(seed))
		require.NoError(t, err)

		assert.True(t, constraint.BreaksValid(plan.Schedule.All()), "seed %d", seed)
		assert.Empty(t, plan.Report.RoleMismatches, "seed %d", seed)
		for _, a := range plan.Schedule.All() {
			w, err := c.Worker(a.WorkerID)
			require.NoError(t, err)
			assert.True(t, w.CanPerform(a.Role), a.String())
		}
		assert.LessOrEqual(t, plan.Cost.Total, plan.InitialCost, "seed %d", seed)
		assert.Equal(t, 5.0, plan.Weights.Of(model.WeightFairness))
	}
}

// 两天，工资高的必需迎宾，员工都能兼任便宜的服务员
func expensiveHostSetup() *model.Setup {
	open := map[model.Day]model.Availability{model.Friday: model.Open(), model.Saturday: model.Open()}
	workers := make([]*model.Worker, 0, 6)
	for id := 1; id <= 6; id++ {
		workers = append(workers, &model.Worker{
			ID: id, Roles: []string{"host", "server"}, PreferredHours: 4, MaxHours: 20, Availability: open,
		})
	}
	return &model.Setup{
		Hours: map[model.Day]model.DayHours{
			model.Friday:   {Operating: model.TimeRange{Start: 10, End: 14}},
			model.Saturday: {Operating: model.TimeRange{Start: 10, End: 14}},
		},
		Traffic: model.Traffic{
			model.Friday:   {20, 20, 20, 20},
			model.Saturday: {20, 20, 20, 20},
		},
		Roles: map[string]*model.Role{
			"host":   {HourlyRate: 30, MaxGuests: 200, Min: intPtr(1)},
			"server": {HourlyRate: 5, MaxGuests: 25},
		},
		Workers: workers,
	}
}

func TestEngine_OptimizerKeepsCoverage(t *testing.T) {
	engine := NewEngine()
	baseline, err := engine.Run(context.Background(), expensiveHostSetup(), nil, &Options{SkipOptimize: true})
	require.NoError(t, err)

	for _, seed := range []int64{1, 2, 3} {
		plan, err := engine.Run(context.Background(), expensiveHostSetup(), nil, quickOptions(seed))
		require.NoError(t, err)
		require.NotNil(t, plan.Optimization)

		assert.LessOrEqual(t, plan.Report.UnderstaffedHours, baseline.Report.UnderstaffedHours, "seed %d", seed)
		if baseline.Report.MandatoryRolesMet {
			assert.True(t, plan.Report.MandatoryRolesMet, "seed %d", seed)
		}
		assert.LessOrEqual(t, plan.Cost.Total, plan.InitialCost, "seed %d", seed)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	engine := NewEngine()
	first, err := engine.Run(context.Background(), restaurantSetup(), nil, quickOptions(42))
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), restaurantSetup(), nil, quickOptions(42))
	require.NoError(t, err)

	assert.Equal(t, first.Schedule, second.Schedule)
	assert.Equal(t, first.Cost.Total, second.Cost.Total)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEngine_SkipStages(t *testing.T) {
	plan, err := NewEngine().Run(context.Background(), restaurantSetup(), nil, &Options{SkipOptimize: true, SkipCorrection: true})
	require.NoError(t, err)
	assert.Nil(t, plan.Optimization)
	assert.Nil(t, plan.Correction)
	assert.Equal(t, plan.InitialCost, plan.Cost.Total)
}

func TestEngine_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, err := NewEngine().Run(ctx, restaurantSetup(), nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeCanceled))
	require.NotNil(t, plan)
	require.NotNil(t, plan.Report)
}

func TestEngine_NilSetup(t *testing.T) {
	_, err := NewEngine().Run(context.Background(), nil, nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
}

func TestEngine_EvaluateAndAdjust(t *testing.T) {
	engine := NewEngine()
	setup := singleServerSetup()

	plan, err := engine.Run(context.Background(), setup, nil, &Options{SkipOptimize: true})
	require.NoError(t, err)

	eval, err := engine.Evaluate(setup, plan.Schedule, nil)
	require.NoError(t, err)
	assert.Equal(t, plan.Cost.Total, eval.Cost.Total)
	assert.Equal(t, plan.Report, eval.Report)

	first := plan.Schedule[model.Monday][0]
	other := first.WorkerID%3 + 1
	next, outcomes, adjusted, err := engine.Adjust(setup, plan.Schedule, []adjust.Override{
		{Day: model.Monday, Slot: first.Slot, WorkerID: other, Role: "server"},
	}, true, nil)
	require.NoError(t, err)
	require.NotEmpty(t, outcomes)
	assert.Equal(t, adjust.StatusApplied, outcomes[0].Status)
	assert.Equal(t, other, next[model.Monday][0].WorkerID)
	assert.Equal(t, first, plan.Schedule[model.Monday][0], "原排班不被修改")
	assert.NotNil(t, adjusted.Report)

	_, _, _, err = engine.Adjust(setup, plan.Schedule, []adjust.Override{
		{Day: model.Monday, Slot: first.Slot, WorkerID: 99, Role: "server"},
	}, false, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
}

func TestEngine_Recommend(t *testing.T) {
	setup := singleServerSetup()
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})

	recs, err := NewEngine().Recommend(setup, s, model.Monday, model.HourSlot(10), "server", 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].WorkerID)
	assert.Equal(t, 3, recs[1].WorkerID)
}
