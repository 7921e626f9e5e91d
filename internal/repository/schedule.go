package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
)

// PlanRecord 已保存的计划
type PlanRecord struct {
	model.BaseModel
	Name     string `json:"name" db:"name"`
	Horizon  int    `json:"horizon" db:"horizon"`
	Document string `json:"-" db:"document"` // 原始计划文件
}

// ScheduleRepository 排产表仓储
type ScheduleRepository struct {
	db Store
}

// NewScheduleRepository 创建排产表仓储
func NewScheduleRepository(db Store) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// SavePlan 保存或更新计划
func (r *ScheduleRepository) SavePlan(ctx context.Context, plan *model.Plan, document string) (*PlanRecord, error) {
	rec := &PlanRecord{
		BaseModel: model.NewBaseModel(),
		Name:      plan.Name,
		Horizon:   plan.Horizon.Size(),
		Document:  document,
	}
	if plan.ID == uuid.Nil {
		plan.ID = rec.ID
	}
	rec.ID = plan.ID

	query := r.db.Rebind(`
		INSERT INTO plans (id, name, horizon, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			horizon = excluded.horizon,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		rec.ID.String(), rec.Name, rec.Horizon, rec.Document, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存计划失败")
	}
	return rec, nil
}

// GetPlan 按标识读取计划
func (r *ScheduleRepository) GetPlan(ctx context.Context, id uuid.UUID) (*PlanRecord, error) {
	query := r.db.Rebind(`
		SELECT id, name, horizon, document, created_at, updated_at
		FROM plans WHERE id = ?
	`)
	rec := &PlanRecord{}
	var rawID string
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &rec.Name, &rec.Horizon, &rec.Document, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("计划", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取计划失败")
	}
	if rec.ID, err = uuid.Parse(rawID); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "计划标识无效")
	}
	return rec, nil
}

// ReplaceEntries 在一个事务内整体替换某个快照的排产行
func (r *ScheduleRepository) ReplaceEntries(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, entries []model.ScheduleEntry) error {
	del := r.db.Rebind(`DELETE FROM schedule_entries WHERE plan_id = ? AND snapshot = ?`)
	ins := r.db.Rebind(insertEntry)

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, del, planID.String(), string(snapshot)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, ins)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, entryArgs(planID, snapshot, e)...); err != nil {
				return fmt.Errorf("写入排产行 %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "替换排产表失败")
	}
	return nil
}

// ListEntries 读取某个快照的全部排产行，按 班次/产线/物料 排序
func (r *ScheduleRepository) ListEntries(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot) ([]model.ScheduleEntry, error) {
	query := r.db.Rebind(`
		SELECT id, line, building, shift, item, project, quantity, pinned
		FROM schedule_entries
		WHERE plan_id = ? AND snapshot = ?
		ORDER BY shift, line, item, id
	`)
	rows, err := r.db.QueryContext(ctx, query, planID.String(), string(snapshot))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询排产表失败")
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取排产行失败")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取排产行失败")
	}
	return entries, nil
}

// UpsertEntry 写入单行编辑结果
func (r *ScheduleRepository) UpsertEntry(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, e model.ScheduleEntry) error {
	query := r.db.Rebind(insertEntry + `
		ON CONFLICT (plan_id, snapshot, id) DO UPDATE SET
			line = excluded.line,
			building = excluded.building,
			shift = excluded.shift,
			item = excluded.item,
			project = excluded.project,
			quantity = excluded.quantity,
			pinned = excluded.pinned
	`)
	if _, err := r.db.ExecContext(ctx, query, entryArgs(planID, snapshot, e)...); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存排产行失败")
	}
	return nil
}

// DeleteEntry 删除单行
func (r *ScheduleRepository) DeleteEntry(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM schedule_entries WHERE plan_id = ? AND snapshot = ? AND id = ?`)
	res, err := r.db.ExecContext(ctx, query, planID.String(), string(snapshot), id.String())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除排产行失败")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("排产行", id.String())
	}
	return nil
}

const insertEntry = `
	INSERT INTO schedule_entries (id, plan_id, snapshot, line, building, shift, item, project, quantity, pinned)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func entryArgs(planID uuid.UUID, snapshot model.Snapshot, e model.ScheduleEntry) []interface{} {
	return []interface{}{
		e.ID.String(), planID.String(), string(snapshot),
		e.Line, e.Building, e.Shift, e.Item, e.Project, e.Quantity, e.Pinned,
	}
}

func scanEntry(row Scanner) (model.ScheduleEntry, error) {
	var e model.ScheduleEntry
	var rawID string
	if err := row.Scan(&rawID, &e.Line, &e.Building, &e.Shift, &e.Item, &e.Project, &e.Quantity, &e.Pinned); err != nil {
		return e, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return e, err
	}
	e.ID = id
	return e, nil
}
