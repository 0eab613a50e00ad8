package adjust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

func newTestContext() *constraint.Context {
	open := map[model.Day]model.Availability{model.Monday: model.Open()}
	return constraint.NewContext(&model.Setup{
		Hours: map[model.Day]model.DayHours{
			model.Monday: {Operating: model.TimeRange{Start: 10, End: 18}},
		},
		Roles: map[string]*model.Role{
			"server": {HourlyRate: 12, MaxGuests: 25},
			"cook":   {HourlyRate: 18, MaxGuests: 40},
		},
		Workers: []*model.Worker{
			{ID: 1, Roles: []string{"server"}, PreferredHours: 4, MaxHours: 10, Availability: open},
			{ID: 2, Roles: []string{"cook"}, PreferredHours: 4, MaxHours: 10, Availability: open},
			{ID: 3, Roles: []string{"cook", "server"}, PreferredHours: 8, MaxHours: 10, Availability: map[model.Day]model.Availability{
				model.Monday: model.Window(12, 18),
			}},
			{ID: 4, Roles: []string{"server"}, PreferredHours: 2, MaxHours: 1, Availability: open},
		},
	})
}

func baseSchedule() model.WeekSchedule {
	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "cook"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 1, Role: "server"})
	return s
}

func TestManualOverride(t *testing.T) {
	a := NewAdjuster(newTestContext())

	t.Run("按时段和岗位匹配", func(t *testing.T) {
		s := baseSchedule()
		out, err := a.ManualOverride(s, model.Monday, model.HourSlot(10), 3, "cook")
		require.NoError(t, err)
		assert.Equal(t, StatusApplied, out.Status)
		assert.Equal(t, 2, out.Previous.WorkerID)
		assert.Equal(t, model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 3, Role: "cook"}, s[model.Monday][1])
		assert.Equal(t, 1, s[model.Monday][0].WorkerID, "服务员分配不变")
		assert.NotEmpty(t, out.Conflicts, "员工 3 在 10 点不可用")
	})

	t.Run("岗位不匹配时取该时段第一个分配", func(t *testing.T) {
		s := baseSchedule()
		out, err := a.ManualOverride(s, model.Monday, model.HourSlot(12), 3, "cook")
		require.NoError(t, err)
		assert.Equal(t, StatusApplied, out.Status)
		assert.Equal(t, model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 3, Role: "cook"}, s[model.Monday][2])
		assert.Empty(t, out.Conflicts)
	})

	t.Run("时段不存在", func(t *testing.T) {
		s := baseSchedule()
		before := s.Clone()
		out, err := a.ManualOverride(s, model.Monday, model.HourSlot(15), 1, "server")
		require.NoError(t, err)
		assert.Equal(t, StatusSlotNotFound, out.Status)
		assert.False(t, out.Succeeded())
		assert.Equal(t, before, s)
	})

	t.Run("相同员工和岗位", func(t *testing.T) {
		s := baseSchedule()
		out, err := a.ManualOverride(s, model.Monday, model.HourSlot(10), 1, "server")
		require.NoError(t, err)
		assert.Equal(t, StatusUnchanged, out.Status)
	})

	t.Run("未知员工", func(t *testing.T) {
		s := baseSchedule()
		_, err := a.ManualOverride(s, model.Monday, model.HourSlot(10), 99, "server")
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
		assert.Equal(t, baseSchedule(), s)
	})

	t.Run("未知岗位", func(t *testing.T) {
		_, err := a.ManualOverride(baseSchedule(), model.Monday, model.HourSlot(10), 1, "dj")
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
	})
}

func TestFindReplacement(t *testing.T) {
	a := NewAdjuster(newTestContext())

	t.Run("目录顺序第一个合适的员工", func(t *testing.T) {
		s := baseSchedule()
		// 员工 1 已在 12 点上班，员工 3 在窗口内且空闲
		out, err := a.FindReplacement(s, model.Monday, model.HourSlot(12), "server")
		require.NoError(t, err)
		assert.Equal(t, StatusApplied, out.Status)
		assert.Equal(t, 3, s[model.Monday][2].WorkerID)
	})

	t.Run("开始时刻不可用的员工被跳过", func(t *testing.T) {
		s := baseSchedule()
		out, err := a.FindReplacement(s, model.Monday, model.HourSlot(10), "cook")
		require.NoError(t, err)
		assert.Equal(t, StatusNoCandidate, out.Status, "员工 2 已占用，员工 3 10 点不可用")
		assert.Equal(t, baseSchedule(), s)
	})

	t.Run("超过周工时上限的员工被跳过", func(t *testing.T) {
		build := func(withHours bool) model.WeekSchedule {
			s := model.NewWeekSchedule()
			s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "cook"})
			s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "server"})
			if withHours {
				s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 4, Role: "server"})
			}
			return s
		}

		// 员工 1 已占用，员工 3 10 点不可用，只剩员工 4
		out, err := a.FindReplacement(build(false), model.Monday, model.HourSlot(10), "server")
		require.NoError(t, err)
		assert.Equal(t, StatusApplied, out.Status)
		assert.Equal(t, 4, out.Current.WorkerID)

		out, err = a.FindReplacement(build(true), model.Monday, model.HourSlot(10), "server")
		require.NoError(t, err)
		assert.Equal(t, StatusNoCandidate, out.Status)
	})

	t.Run("时段不存在", func(t *testing.T) {
		out, err := a.FindReplacement(baseSchedule(), model.Monday, model.HourSlot(17), "server")
		require.NoError(t, err)
		assert.Equal(t, StatusSlotNotFound, out.Status)
	})
}

func TestCorrectRoles(t *testing.T) {
	a := NewAdjuster(newTestContext())

	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(13), WorkerID: 1, Role: "server"})
	// 员工 2 不能做服务员；同一时段的第一个服务员分配是合法的
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(13), WorkerID: 2, Role: "server"})
	// 员工 1 不能做厨师，10 点没有可用的厨师
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 1, Role: "cook"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 2, Role: "cook"})

	result, err := a.CorrectRoles(s)
	require.NoError(t, err)

	require.Len(t, result.Repaired, 1)
	assert.Equal(t, 3, result.Repaired[0].Current.WorkerID)
	assert.Equal(t, 1, s[model.Monday][0].WorkerID, "合法的分配不受影响")
	assert.Equal(t, 3, s[model.Monday][1].WorkerID)

	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, StatusNoCandidate, result.Unresolved[0].Status)
	assert.Equal(t, 1, s[model.Monday][2].WorkerID, "无法修复的分配保持原样")
}

func TestCorrectRoles_PostCondition(t *testing.T) {
	c := newTestContext()
	a := NewAdjuster(c)

	s := model.NewWeekSchedule()
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 2, Role: "server"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(14), WorkerID: 1, Role: "cook"})
	s.Add(model.Assignment{Day: model.Monday, Slot: model.HourSlot(16), WorkerID: 4, Role: "cook"})

	result, err := a.CorrectRoles(s)
	require.NoError(t, err)
	assert.Empty(t, result.Unresolved)

	for _, as := range s.All() {
		w, err := c.Worker(as.WorkerID)
		require.NoError(t, err)
		assert.True(t, w.CanPerform(as.Role), as.String())
	}
}

func TestApply(t *testing.T) {
	a := NewAdjuster(newTestContext())
	s := baseSchedule()

	outcomes, err := a.Apply(s, []Override{
		{Day: model.Monday, Slot: model.HourSlot(12), WorkerID: 3, Role: "server"},
		{Day: model.Monday, Slot: model.HourSlot(16), WorkerID: 3, Role: "server"},
		{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 42, Role: "server"},
		{Day: model.Monday, Slot: model.HourSlot(10), WorkerID: 4, Role: "server"},
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusApplied, outcomes[0].Status)
	assert.Equal(t, StatusSlotNotFound, outcomes[1].Status)
	assert.Equal(t, 1, s[model.Monday][0].WorkerID, "出错之后的指定不执行")
}

func TestRecommender(t *testing.T) {
	r := NewRecommender(newTestContext())
	s := baseSchedule()

	recs, err := r.Recommend(s, model.Monday, model.HourSlot(14), "server", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	ids := []int{recs[0].WorkerID, recs[1].WorkerID, recs[2].WorkerID}
	assert.ElementsMatch(t, []int{1, 3, 4}, ids)
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Rank)
		if i > 0 {
			assert.LessOrEqual(t, rec.Score, recs[i-1].Score)
		}
	}

	limited, err := r.Recommend(s, model.Monday, model.HourSlot(14), "server", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = r.Recommend(s, model.Monday, model.HourSlot(14), "dj", 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidReference))
}
