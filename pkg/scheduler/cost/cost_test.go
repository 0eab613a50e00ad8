package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

func newContext() *constraint.Context {
	return constraint.NewContext(&model.Setup{
		Hours: map[model.Day]model.DayHours{
			model.Monday: {Operating: model.TimeRange{Start: 10, End: 18}},
		},
		Roles: map[string]*model.Role{
			"server": {HourlyRate: 10, MaxGuests: 25},
			"cook":   {HourlyRate: 20, MaxGuests: 40},
		},
		Workers: []*model.Worker{
			{ID: 1, Roles: []string{"server"}, PreferredHours: 2},
			{ID: 2, Roles: []string{"cook"}, PreferredHours: 0},
		},
	})
}

func sampleSchedule() model.WeekSchedule {
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(14), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "cook"})
	return s
}

func TestEvaluator_Terms(t *testing.T) {
	e := NewEvaluator(newContext(), nil)
	b, err := e.Evaluate(sampleSchedule())
	require.NoError(t, err)

	// labor = 3*10 + 20
	assert.Equal(t, 50.0, b.Labor)
	// hours {3, 1}, mean 2, variance ((1)^2 + (-1)^2) / 2
	assert.Equal(t, 1.0, b.Fairness)
	// |3-2| + |1-0|
	assert.Equal(t, 2.0, b.Preference)
	assert.Equal(t, 53.0, b.Total)
	assert.Equal(t, map[int]int{1: 3, 2: 1}, b.Hours)
}

func TestEvaluator_Weights(t *testing.T) {
	tests := []struct {
		name     string
		weights  model.Weights
		expected float64
	}{
		{"全部默认", model.Weights{}, 53},
		{"只看人工成本", model.Weights{model.WeightLaborCost: 1, model.WeightFairness: 0, model.WeightPreference: 0}, 50},
		{"省略的权重为 1", model.Weights{model.WeightLaborCost: 0.5}, 28},
		{"加重公平性", model.Weights{model.WeightFairness: 10}, 62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := NewEvaluator(newContext(), tt.weights).Total(sampleSchedule())
			require.NoError(t, err)
			if math.Abs(total-tt.expected) > 1e-9 {
				t.Errorf("Total() = %v, expected %v", total, tt.expected)
			}
		})
	}
}

func TestEvaluator_IdleWorkersCountInFairness(t *testing.T) {
	e := NewEvaluator(newContext(), nil)
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 1, Role: "server"})

	b, err := e.Evaluate(s)
	require.NoError(t, err)
	// hours {2, 0}, mean 1
	assert.Equal(t, 1.0, b.Fairness)
	assert.Equal(t, 0.0, b.Preference)
}

func TestEvaluator_EmptySchedule(t *testing.T) {
	b, err := NewEvaluator(newContext(), nil).Evaluate(model.NewWeekSchedule())
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Labor)
	assert.Equal(t, 0.0, b.Fairness)
	assert.Equal(t, 2.0, b.Preference)
}

func TestEvaluator_InvalidReference(t *testing.T) {
	e := NewEvaluator(newContext(), nil)

	s := sampleSchedule()
	s.Add(model.Assignment{Day: model.Tuesday, Slot: model.HourSlot(10), WorkerID: 99, Role: "server"})
	_, err := e.Evaluate(s)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))

	s = sampleSchedule()
	s.Add(model.Assignment{Day: model.Tuesday, Slot: model.HourSlot(10), WorkerID: 1, Role: "dj"})
	_, err = e.Evaluate(s)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
}

func TestEvaluator_Pure(t *testing.T) {
	e := NewEvaluator(newContext(), nil)
	s := sampleSchedule()
	before := s.Clone()

	first, err := e.Total(s)
	require.NoError(t, err)
	second, err := e.Total(s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, s)
}
