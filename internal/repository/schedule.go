package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
)

// uniqueViolation PostgreSQL 唯一约束冲突
const uniqueViolation = "23505"

// ScheduleRepository PostgreSQL 排班仓储
type ScheduleRepository struct {
	db TxDB
}

// NewScheduleRepository 创建排班仓储
func NewScheduleRepository(db TxDB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// scheduleRow schedules 表的一行
type scheduleRow struct {
	feasible          bool
	understaffedHours int
	totalCost         float64
	coverageRate      float64
	seed              int64
	setupJSON         []byte
	planJSON          []byte
}

func encodeSchedule(s *Schedule) (*scheduleRow, error) {
	if s.Plan == nil || s.Setup == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "排班方案缺少结果或配置")
	}
	row := &scheduleRow{
		totalCost: s.Plan.Cost.Total,
		seed:      s.Plan.Seed,
	}
	if s.Plan.Report != nil {
		row.feasible = s.Plan.Report.Feasible()
		row.understaffedHours = s.Plan.Report.UnderstaffedHours
	}
	if s.Plan.Coverage != nil {
		row.coverageRate = s.Plan.Coverage.OverallCoverage
	}

	var err error
	if row.setupJSON, err = json.Marshal(s.Setup); err != nil {
		return nil, fmt.Errorf("序列化排班配置失败: %w", err)
	}
	if row.planJSON, err = json.Marshal(s.Plan); err != nil {
		return nil, fmt.Errorf("序列化排班结果失败: %w", err)
	}
	return row, nil
}

// Create 创建排班记录及其分配
func (r *ScheduleRepository) Create(ctx context.Context, schedule *Schedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	if schedule.Status == "" {
		schedule.Status = StatusDraft
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	row, err := encodeSchedule(schedule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO schedules (
			id, status, feasible, understaffed_hours, total_cost, coverage_rate,
			seed, setup, plan, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	err = r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query,
			schedule.ID, schedule.Status, row.feasible, row.understaffedHours, row.totalCost, row.coverageRate,
			row.seed, row.setupJSON, row.planJSON, schedule.CreatedAt, schedule.UpdatedAt,
		); err != nil {
			return err
		}
		return copyAssignments(ctx, tx, flatten(schedule.ID, schedule.Plan.Schedule))
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "排班记录已存在").WithField("id", schedule.ID.String())
		}
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建排班记录失败")
	}
	return nil
}

// copyAssignments 用 COPY 批量写入分配
func copyAssignments(ctx context.Context, tx *sql.Tx, assignments []*ScheduleAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("schedule_assignments",
		"schedule_id", "day", "slot_start", "slot_end", "worker_id", "role", "position"))
	if err != nil {
		return fmt.Errorf("准备批量写入失败: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx,
			a.ScheduleID, string(a.Day), a.SlotStart, a.SlotEnd, a.WorkerID, a.Role, a.Position,
		); err != nil {
			return fmt.Errorf("写入排班分配失败: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("提交批量写入失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取排班，分配以 schedule_assignments 表为准
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	query := `
		SELECT id, status, setup, plan, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`

	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("排班", id.String())
	}
	if err != nil {
		return nil, err
	}

	assignments, err := r.GetAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	week := model.NewWeekSchedule()
	for _, a := range assignments {
		week.Add(a.Assignment())
	}
	s.Plan.Schedule = week
	return s, nil
}

// Update 更新排班状态和结果，分配整体替换
func (r *ScheduleRepository) Update(ctx context.Context, schedule *Schedule) error {
	schedule.UpdatedAt = time.Now()
	row, err := encodeSchedule(schedule)
	if err != nil {
		return err
	}

	query := `
		UPDATE schedules SET
			status = $2, feasible = $3, understaffed_hours = $4, total_cost = $5,
			coverage_rate = $6, plan = $7, updated_at = $8
		WHERE id = $1
	`

	var missing bool
	err = r.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			schedule.ID, schedule.Status, row.feasible, row.understaffedHours, row.totalCost,
			row.coverageRate, row.planJSON, schedule.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			missing = true
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_assignments WHERE schedule_id = $1", schedule.ID); err != nil {
			return err
		}
		return copyAssignments(ctx, tx, flatten(schedule.ID, schedule.Plan.Schedule))
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "更新排班记录失败")
	}
	if missing {
		return apperrors.NotFound("排班", schedule.ID.String())
	}
	return nil
}

// Delete 删除排班
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		// 先删除分配
		if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_assignments WHERE schedule_id = $1", id); err != nil {
			return fmt.Errorf("删除排班分配失败: %w", err)
		}
		// 再删除排班
		if _, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id); err != nil {
			return fmt.Errorf("删除排班记录失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "删除排班失败")
	}
	return nil
}

// List 列出排班，返回的记录中分配取自保存时的结果
func (r *ScheduleRepository) List(ctx context.Context, filter ListFilter) ([]*Schedule, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// 计数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计排班数量失败")
	}

	orderDir := "DESC"
	if filter.ascending() {
		orderDir = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT id, status, setup, plan, created_at, updated_at
		FROM schedules %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderDir, argNum, argNum+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班列表失败")
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班列表失败")
	}

	return schedules, total, nil
}

// GetAssignments 获取排班分配
func (r *ScheduleRepository) GetAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*ScheduleAssignment, error) {
	query := `
		SELECT schedule_id, day, slot_start, slot_end, worker_id, role, position
		FROM schedule_assignments
		WHERE schedule_id = $1
		ORDER BY day, position
	`
	return r.queryAssignments(ctx, query, scheduleID)
}

// AssignmentsByWorker 获取员工在所有已发布排班中的分配
func (r *ScheduleRepository) AssignmentsByWorker(ctx context.Context, workerID int) ([]*ScheduleAssignment, error) {
	query := `
		SELECT a.schedule_id, a.day, a.slot_start, a.slot_end, a.worker_id, a.role, a.position
		FROM schedule_assignments a
		JOIN schedules s ON s.id = a.schedule_id
		WHERE a.worker_id = $1 AND s.status = $2
		ORDER BY s.created_at DESC, a.day, a.position
	`
	return r.queryAssignments(ctx, query, workerID, StatusPublished)
}

func (r *ScheduleRepository) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]*ScheduleAssignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班分配失败")
	}
	defer rows.Close()

	var assignments []*ScheduleAssignment
	for rows.Next() {
		a := &ScheduleAssignment{}
		var day string
		if err := rows.Scan(
			&a.ScheduleID, &day, &a.SlotStart, &a.SlotEnd, &a.WorkerID, &a.Role, &a.Position,
		); err != nil {
			return nil, fmt.Errorf("扫描排班分配失败: %w", err)
		}
		a.Day = model.Day(day)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班分配失败")
	}
	return assignments, nil
}

// scanSchedule 扫描一行排班，未找到时返回 sql.ErrNoRows
func scanSchedule(row Scanner) (*Schedule, error) {
	s := &Schedule{}
	var setupJSON, planJSON []byte

	err := row.Scan(&s.ID, &s.Status, &setupJSON, &planJSON, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班记录失败: %w", err)
	}
	if err := decodeSchedule(s, setupJSON, planJSON); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeSchedule(s *Schedule, setupJSON, planJSON []byte) error {
	if err := json.Unmarshal(setupJSON, &s.Setup); err != nil {
		return fmt.Errorf("解析排班配置失败: %w", err)
	}
	if err := json.Unmarshal(planJSON, &s.Plan); err != nil {
		return fmt.Errorf("解析排班结果失败: %w", err)
	}
	if s.Plan.Schedule == nil {
		s.Plan.Schedule = model.NewWeekSchedule()
	}
	return nil
}
