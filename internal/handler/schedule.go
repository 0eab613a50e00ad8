package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/adjust"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/input"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler"
)

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	Config  json.RawMessage    `json:"config" validate:"required"` // 与配置文件相同的 JSON 结构
	Options *scheduler.Options `json:"options,omitempty"`
	Persist bool               `json:"persist,omitempty"` // 保存为草稿
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success    bool            `json:"success"`
	Partial    bool            `json:"partial,omitempty"`   // 存在人手缺口
	TimedOut   bool            `json:"timed_out,omitempty"` // 超时，返回的是截至当时的最优解
	Message    string          `json:"message,omitempty"`
	ScheduleID string          `json:"schedule_id,omitempty"`
	Plan       *scheduler.Plan `json:"plan"`
}

// EvaluateRequest 排班评估请求
type EvaluateRequest struct {
	Config   json.RawMessage    `json:"config" validate:"required"`
	Schedule model.WeekSchedule `json:"schedule" validate:"required"`
}

// AdjustRequest 排班调整请求
type AdjustRequest struct {
	Config       json.RawMessage    `json:"config" validate:"required"`
	Schedule     model.WeekSchedule `json:"schedule" validate:"required"`
	Overrides    []adjust.Override  `json:"overrides" validate:"required,dive"`
	CorrectRoles bool               `json:"correct_roles,omitempty"`
}

// AdjustResponse 排班调整响应
type AdjustResponse struct {
	Schedule   model.WeekSchedule    `json:"schedule"`
	Outcomes   []adjust.Outcome      `json:"outcomes"`
	Evaluation *scheduler.Evaluation `json:"evaluation"`
}

// RecommendRequest 替换推荐请求
type RecommendRequest struct {
	Config   json.RawMessage    `json:"config" validate:"required"`
	Schedule model.WeekSchedule `json:"schedule"`
	Day      model.Day          `json:"day" validate:"required,weekday"`
	Slot     model.Slot         `json:"slot"`
	Role     string             `json:"role" validate:"required"`
	Limit    int                `json:"limit,omitempty" validate:"gte=0"`
}

// parseConfig 解析请求中的业务配置
func parseConfig(raw json.RawMessage) (*input.Document, *model.Setup, error) {
	doc, err := input.Parse(raw, input.FormatJSON)
	if err != nil {
		return nil, nil, err
	}
	setup, err := doc.Setup()
	if err != nil {
		return nil, nil, err
	}
	return doc, setup, nil
}

// weightsFor 服务默认权重，被配置中给出的权重覆盖
func (h *Handler) weightsFor(doc *input.Document) model.Weights {
	weights := make(model.Weights, len(h.opts.Weights))
	for k, v := range h.opts.Weights {
		weights[k] = v
	}
	for k, v := range doc.Weights {
		weights[model.WeightKey(k)] = v
	}
	return weights
}

// normalizeSchedule 以键为准统一每条分配的天，并拒绝未知的天
func normalizeSchedule(s model.WeekSchedule) (model.WeekSchedule, error) {
	if s == nil {
		return model.NewWeekSchedule(), nil
	}
	for day, list := range s {
		if !day.IsValid() {
			return nil, apperrors.InvalidInput("schedule", fmt.Sprintf("未知的星期代码 %q", day))
		}
		for i := range list {
			list[i].Day = day
			if list[i].Slot.End <= list[i].Slot.Start {
				return nil, apperrors.InvalidInput("schedule", fmt.Sprintf("时段 %s 无效", list[i].Slot))
			}
		}
	}
	return s, nil
}

// Generate 生成排班
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	doc, setup, err := parseConfig(req.Config)
	if err != nil {
		respondError(w, err)
		return
	}

	opts := req.Options
	if opts == nil {
		opts = &scheduler.Options{}
	}
	if opts.Optimizer == nil {
		optConfig := *h.opts.Optimizer
		opts.Optimizer = &optConfig
	}

	ctx := r.Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	plan, err := h.engine.Run(ctx, setup, h.weightsFor(doc), opts)
	metrics.RecordPlan("api", plan, err)
	if plan == nil {
		respondError(w, err)
		return
	}

	resp := GenerateResponse{
		Success: err == nil && !plan.Partial(),
		Partial: plan.Partial(),
		Plan:    plan,
	}
	switch {
	case err != nil:
		resp.TimedOut = true
		resp.Message = "排班超时，返回截至当时的最优解"
	case plan.Partial():
		resp.Message = fmt.Sprintf("存在 %d 个缺口人时", plan.Report.UnderstaffedHours)
	default:
		resp.Message = "排班生成成功"
	}

	if req.Persist {
		if err := h.store.Create(r.Context(), repository.NewSchedule(setup, plan)); err != nil {
			respondError(w, err)
			return
		}
		resp.ScheduleID = plan.ID.String()
	}

	respondJSON(w, http.StatusOK, resp)
}

// Evaluate 评估已有排班
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	doc, setup, err := parseConfig(req.Config)
	if err != nil {
		respondError(w, err)
		return
	}
	s, err := normalizeSchedule(req.Schedule)
	if err != nil {
		respondError(w, err)
		return
	}

	eval, err := h.engine.Evaluate(setup, s, h.weightsFor(doc))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, eval)
}

// Adjust 对请求中的排班执行人工指定
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	doc, setup, err := parseConfig(req.Config)
	if err != nil {
		respondError(w, err)
		return
	}
	s, err := normalizeSchedule(req.Schedule)
	if err != nil {
		respondError(w, err)
		return
	}

	next, outcomes, eval, err := h.engine.Adjust(setup, s, req.Overrides, req.CorrectRoles, h.weightsFor(doc))
	metrics.RecordAdjustments(outcomes)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AdjustResponse{Schedule: next, Outcomes: outcomes, Evaluation: eval})
}

// Recommend 推荐可接手某时段的员工
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	_, setup, err := parseConfig(req.Config)
	if err != nil {
		respondError(w, err)
		return
	}
	s, err := normalizeSchedule(req.Schedule)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.Slot.End <= req.Slot.Start {
		respondError(w, apperrors.InvalidInput("slot", "时段结束必须晚于开始"))
		return
	}

	recs, err := h.engine.Recommend(setup, s, req.Day, req.Slot, req.Role, req.Limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}
