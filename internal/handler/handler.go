// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/middleware"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/internal/security"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/input"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
)

// Options 处理器配置
type Options struct {
	Timeout      time.Duration                 // 单次排班的最长时间
	MaxBodyBytes int64                         // 请求体上限
	Optimizer    *optimizer.OptimizationConfig // 请求未指定时的退火参数
	Weights      model.Weights                 // 请求未指定时的权重
	MetricsPath  string                        // 为空时不暴露指标
	Version      string
	APIKeys      *security.APIKeyManager // 为空或没有密钥时不认证
	RateLimiter  *security.RateLimiter   // 为空时不限流
}

// Handler 排班 API
type Handler struct {
	engine *scheduler.Engine
	store  repository.ScheduleStore
	opts   Options

	Mux *chi.Mux
}

// New 创建处理器并注册路由
func New(engine *scheduler.Engine, store repository.ScheduleStore, opts Options) *Handler {
	if opts.Optimizer == nil {
		opts.Optimizer = optimizer.DefaultOptConfig()
	}
	if opts.Weights == nil {
		opts.Weights = model.DefaultWeights()
	}
	h := &Handler{
		engine: engine,
		store:  store,
		opts:   opts,
		Mux:    chi.NewRouter(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP 实现 http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.Mux.Use(chimw.RequestID)
	h.Mux.Use(chimw.RealIP)
	h.Mux.Use(h.logging)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(middleware.SecurityHeaders)
	h.Mux.Use(cors)

	h.Mux.Get("/health", h.Health)
	h.Mux.Get("/version", h.Version)
	if h.opts.MetricsPath != "" {
		h.Mux.Handle(h.opts.MetricsPath, metrics.Handler())
	}

	h.Mux.Route("/api/v1", func(r chi.Router) {
		r.Use(h.limitBody)
		r.Use(middleware.Auth(h.opts.APIKeys))
		r.Use(middleware.RateLimit(h.opts.RateLimiter))
		r.Use(middleware.RequireScope(security.ScopeRead))
		write := middleware.RequireScope(security.ScopeWrite)

		// 无状态接口：请求中携带配置和排班
		r.Route("/schedule", func(r chi.Router) {
			r.With(write).Post("/generate", h.Generate)
			r.Post("/evaluate", h.Evaluate)
			r.Post("/adjust", h.Adjust)
			r.Post("/recommend", h.Recommend)
		})

		// 已保存的排班方案
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSchedule)
				r.With(write).Delete("/", h.DeleteSchedule)
				r.Get("/coverage", h.GetCoverage)
				r.With(write).Post("/adjust", h.AdjustSchedule)
				r.With(write).Post("/publish", h.PublishSchedule)
			})
		})

		r.Get("/workers/{workerID}/assignments", h.WorkerAssignments)
	})
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "roster"})
}

// Version 版本信息
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": h.opts.Version})
}

// logging 记录请求日志和指标；指标按路由模板聚合
func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		logger.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequestMetrics(r.Method, route, status, duration)
	})
}

// recoverer 捕获 panic 并返回 500
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error().
					Str("request_id", chimw.GetReqID(r.Context())).
					Interface("panic", rec).
					Msg("请求处理异常")
				respondError(w, apperrors.New(apperrors.CodeInternal, "服务器内部错误"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody 限制请求体大小
func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// cors CORS中间件
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-API-Key, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readJSON 解码并校验请求体
func readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败")
	}
	return input.ValidateStruct(v)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("写入响应失败")
	}
}

// respondError 返回错误响应，非 AppError 按内部错误处理
func respondError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "服务器内部错误")
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("请求失败")
	}
	respondJSON(w, appErr.HTTPStatus, map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}
