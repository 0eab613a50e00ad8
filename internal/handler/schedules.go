package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/adjust"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/stats"
)

// ScheduleSummary 列表中的排班摘要
type ScheduleSummary struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	Feasible          bool    `json:"feasible"`
	UnderstaffedHours int     `json:"understaffed_hours"`
	TotalCost         float64 `json:"total_cost"`
	Coverage          float64 `json:"coverage"`
	Assignments       int     `json:"assignments"`
	CreatedAt         string  `json:"created_at"`
}

// StoredAdjustRequest 对已保存排班的调整请求
type StoredAdjustRequest struct {
	Overrides    []adjust.Override `json:"overrides" validate:"required,dive"`
	CorrectRoles bool              `json:"correct_roles,omitempty"`
}

// CoverageResponse 覆盖率响应
type CoverageResponse struct {
	Metrics *stats.CoverageMetrics `json:"metrics"`
	Report  string                 `json:"report"`
}

func summarize(s *repository.Schedule) ScheduleSummary {
	sum := ScheduleSummary{
		ID:          s.ID.String(),
		Status:      s.Status,
		TotalCost:   s.Plan.Cost.Total,
		Assignments: s.Plan.Schedule.Len(),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if s.Plan.Report != nil {
		sum.Feasible = s.Plan.Report.Feasible()
		sum.UnderstaffedHours = s.Plan.Report.UnderstaffedHours
	}
	if s.Plan.Coverage != nil {
		sum.Coverage = s.Plan.Coverage.OverallCoverage
	}
	return sum
}

// loadSchedule 按路径中的 id 读取排班
func (h *Handler) loadSchedule(r *http.Request) (*repository.Schedule, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的排班ID格式: "+raw)
	}
	return h.store.GetByID(r.Context(), id)
}

// ListSchedules 列出已保存的排班
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter()
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		if status != repository.StatusDraft && status != repository.StatusPublished {
			respondError(w, apperrors.InvalidInput("status", "只能是 draft 或 published"))
			return
		}
		filter = filter.WithStatus(status)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, apperrors.InvalidInput("limit", "必须在 1-100 之间"))
			return
		}
		filter = filter.WithLimit(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, apperrors.InvalidInput("offset", "不能为负数"))
			return
		}
		filter = filter.WithOffset(n)
	}
	if q.Get("order") == "asc" {
		filter.OrderDir = "asc"
	}

	schedules, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	items := make([]ScheduleSummary, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, summarize(s))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetSchedule 获取排班详情
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.loadSchedule(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// DeleteSchedule 删除排班
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.loadSchedule(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.store.Delete(r.Context(), s.ID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCoverage 按当前分配重新计算覆盖率
func (h *Handler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	s, err := h.loadSchedule(r)
	if err != nil {
		respondError(w, err)
		return
	}
	analyzer := stats.NewCoverageAnalyzer(constraint.NewContext(s.Setup))
	m := analyzer.Analyze(s.Plan.Schedule)
	respondJSON(w, http.StatusOK, CoverageResponse{Metrics: m, Report: analyzer.GenerateCoverageReport(m)})
}

// AdjustSchedule 调整已保存的排班；已发布的排班不允许修改
func (h *Handler) AdjustSchedule(w http.ResponseWriter, r *http.Request) {
	var req StoredAdjustRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	s, err := h.loadSchedule(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if s.Status == repository.StatusPublished {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "已发布的排班不能修改").WithField("id", s.ID.String()))
		return
	}

	next, outcomes, eval, err := h.engine.Adjust(s.Setup, s.Plan.Schedule, req.Overrides, req.CorrectRoles, s.Plan.Weights)
	metrics.RecordAdjustments(outcomes)
	if err != nil {
		respondError(w, err)
		return
	}

	s.Plan.Schedule = next
	eval.Apply(s.Plan)
	if err := h.store.Update(r.Context(), s); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AdjustResponse{Schedule: next, Outcomes: outcomes, Evaluation: eval})
}

// PublishSchedule 发布排班
func (h *Handler) PublishSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.loadSchedule(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if s.Status != repository.StatusPublished {
		s.Status = repository.StatusPublished
		if err := h.store.Update(r.Context(), s); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, summarize(s))
}

// WorkerAssignments 员工在已发布排班中的分配
func (h *Handler) WorkerAssignments(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "workerID")
	workerID, err := strconv.Atoi(raw)
	if err != nil || workerID <= 0 {
		respondError(w, apperrors.InvalidInput("workerID", "必须是正整数"))
		return
	}
	assignments, err := h.store.AssignmentsByWorker(r.Context(), workerID)
	if err != nil {
		respondError(w, err)
		return
	}
	if assignments == nil {
		assignments = []*repository.ScheduleAssignment{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"worker_id": workerID, "assignments": assignments})
}
