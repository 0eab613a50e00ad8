package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/roster/pkg/errors"
)

// MemoryScheduleStore 内存排班存储，未启用数据库时使用
// 保存的是 JSON 副本，调用方修改返回值不会影响存储内容
type MemoryScheduleStore struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID][]byte
	records   map[uuid.UUID]*Schedule
	seq       map[uuid.UUID]int // 创建顺序
	next      int
}

// NewMemoryScheduleStore 创建内存存储
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{
		schedules: make(map[uuid.UUID][]byte),
		records:   make(map[uuid.UUID]*Schedule),
		seq:       make(map[uuid.UUID]int),
	}
}

func (m *MemoryScheduleStore) put(s *Schedule) error {
	if _, err := encodeSchedule(s); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "序列化排班失败")
	}
	m.schedules[s.ID] = data
	m.records[s.ID] = &Schedule{ID: s.ID, Status: s.Status, CreatedAt: s.CreatedAt}
	return nil
}

func (m *MemoryScheduleStore) get(id uuid.UUID) (*Schedule, error) {
	data, ok := m.schedules[id]
	if !ok {
		return nil, apperrors.NotFound("排班", id.String())
	}
	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "解析排班失败")
	}
	return &s, nil
}

// Create 保存排班
func (m *MemoryScheduleStore) Create(_ context.Context, schedule *Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	if _, ok := m.schedules[schedule.ID]; ok {
		return apperrors.New(apperrors.CodeInvalidInput, "排班记录已存在").WithField("id", schedule.ID.String())
	}
	if schedule.Status == "" {
		schedule.Status = StatusDraft
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if err := m.put(schedule); err != nil {
		return err
	}
	m.seq[schedule.ID] = m.next
	m.next++
	return nil
}

// GetByID 根据ID获取排班
func (m *MemoryScheduleStore) GetByID(_ context.Context, id uuid.UUID) (*Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(id)
}

// Update 更新排班
func (m *MemoryScheduleStore) Update(_ context.Context, schedule *Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[schedule.ID]
	if !ok {
		return apperrors.NotFound("排班", schedule.ID.String())
	}
	schedule.CreatedAt = existing.CreatedAt
	schedule.UpdatedAt = time.Now()
	return m.put(schedule)
}

// Delete 删除排班，不存在时不报错
func (m *MemoryScheduleStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	delete(m.records, id)
	delete(m.seq, id)
	return nil
}

// List 按创建顺序列出排班
func (m *MemoryScheduleStore) List(_ context.Context, filter ListFilter) ([]*Schedule, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Schedule
	for _, rec := range m.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filter.ascending() {
			return m.seq[matched[i].ID] < m.seq[matched[j].ID]
		}
		return m.seq[matched[i].ID] > m.seq[matched[j].ID]
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	out := make([]*Schedule, 0, end-start)
	for _, rec := range matched[start:end] {
		s, err := m.get(rec.ID)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, nil
}

// AssignmentsByWorker 获取员工在已发布排班中的分配
func (m *MemoryScheduleStore) AssignmentsByWorker(_ context.Context, workerID int) ([]*ScheduleAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(m.records))
	for id, rec := range m.records {
		if rec.Status == StatusPublished {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.seq[ids[i]] > m.seq[ids[j]]
	})

	var out []*ScheduleAssignment
	for _, id := range ids {
		s, err := m.get(id)
		if err != nil {
			return nil, err
		}
		for _, a := range flatten(id, s.Plan.Schedule) {
			if a.WorkerID == workerID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}
