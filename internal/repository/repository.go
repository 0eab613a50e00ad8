// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler"
)

// ScheduleStore 排班方案存储
type ScheduleStore interface {
	Create(ctx context.Context, schedule *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Update(ctx context.Context, schedule *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*Schedule, int, error)
	AssignmentsByWorker(ctx context.Context, workerID int) ([]*ScheduleAssignment, error)
}

// 排班方案状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Schedule 保存的排班方案，连同生成它的业务配置
type Schedule struct {
	ID        uuid.UUID       `json:"id"`
	Status    string          `json:"status"`
	Setup     *model.Setup    `json:"setup"`
	Plan      *scheduler.Plan `json:"plan"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSchedule 用排班结果创建草稿
func NewSchedule(setup *model.Setup, plan *scheduler.Plan) *Schedule {
	return &Schedule{ID: plan.ID, Status: StatusDraft, Setup: setup, Plan: plan}
}

// ScheduleAssignment 一条分配的存储形式
type ScheduleAssignment struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	Day        model.Day `json:"day"`
	SlotStart  int       `json:"slot_start"`
	SlotEnd    int       `json:"slot_end"`
	WorkerID   int       `json:"worker_id"`
	Role       string    `json:"role"`
	Position   int       `json:"position"` // 当天列表中的顺序
}

// Assignment 转换为模型分配
func (a *ScheduleAssignment) Assignment() model.Assignment {
	return model.Assignment{
		Day:      a.Day,
		Slot:     model.Slot{Start: a.SlotStart, End: a.SlotEnd},
		WorkerID: a.WorkerID,
		Role:     a.Role,
	}
}

// flatten 按天和顺序展开排班
func flatten(id uuid.UUID, s model.WeekSchedule) []*ScheduleAssignment {
	var out []*ScheduleAssignment
	for _, day := range s.Days() {
		for i, a := range s[day] {
			out = append(out, &ScheduleAssignment{
				ScheduleID: id,
				Day:        day,
				SlotStart:  a.Slot.Start,
				SlotEnd:    a.Slot.End,
				WorkerID:   a.WorkerID,
				Role:       a.Role,
				Position:   i,
			})
		}
	}
	return out
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Status   string `json:"status,omitempty"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
	OrderDir string `json:"order_dir,omitempty"` // asc/desc，按创建时间
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}

func (f ListFilter) ascending() bool {
	return f.OrderDir == "asc"
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxDB 支持事务的数据库
type TxDB interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
