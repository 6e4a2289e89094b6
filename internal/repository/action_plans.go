package repository

import (
	"database/sql"
	"fmt"

	"subzero/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ActionPlansRepository 行动计划仓库（append 式写入）
type ActionPlansRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActionPlansRepository 创建行动计划仓库
func NewActionPlansRepository(db *sql.DB, logger *zap.Logger) *ActionPlansRepository {
	return &ActionPlansRepository{db: db, logger: logger}
}

// Insert 插入行动计划
// 提供 idempotency_key 时按键去重：键已存在则返回已有计划而不是新建
// （模型超时重试的防重措施；不提供键时保持单纯追加语义）
func (r *ActionPlansRepository) Insert(plan *models.ActionPlan) (*models.ActionPlan, error) {
	if plan.IdempotencyKey != "" {
		existing, err := r.getByIdempotencyKey(plan.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	query := `
		INSERT INTO action_plans (
			id,
			title,
			priority,
			items,
			summary,
			status,
			idempotency_key,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`

	_, err := r.db.Exec(
		query,
		plan.ID,
		plan.Title,
		plan.Priority,
		pq.Array(plan.Items),
		plan.Summary,
		string(plan.Status),
		plan.IdempotencyKey,
		plan.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert action plan: %w", err)
	}

	return plan, nil
}

// List 按状态列出行动计划（status 为空时列出全部），按创建时间倒序
func (r *ActionPlansRepository) List(status models.PlanStatus) ([]models.ActionPlan, error) {
	query := `
		SELECT id, title, priority, items, summary, status, COALESCE(idempotency_key, ''), created_at
		FROM action_plans
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list action plans: %w", err)
	}
	defer rows.Close()

	var plans []models.ActionPlan
	for rows.Next() {
		var plan models.ActionPlan
		var items pq.StringArray
		if err := rows.Scan(
			&plan.ID,
			&plan.Title,
			&plan.Priority,
			&items,
			&plan.Summary,
			&plan.Status,
			&plan.IdempotencyKey,
			&plan.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan action plan: %w", err)
		}
		plan.Items = items
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action plans: %w", err)
	}

	return plans, nil
}

// Complete 将计划标记为完成（终态，仅由操作员动作触发）
func (r *ActionPlansRepository) Complete(id string) error {
	result, err := r.db.Exec(
		`UPDATE action_plans SET status = $1 WHERE id = $2 AND status = $3`,
		string(models.PlanCompleted), id, string(models.PlanActive),
	)
	if err != nil {
		return fmt.Errorf("failed to complete action plan: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check completion result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("action plan %s not found or not active", id)
	}
	return nil
}

func (r *ActionPlansRepository) getByIdempotencyKey(key string) (*models.ActionPlan, error) {
	query := `
		SELECT id, title, priority, items, summary, status, COALESCE(idempotency_key, ''), created_at
		FROM action_plans
		WHERE idempotency_key = $1
	`

	var plan models.ActionPlan
	var items pq.StringArray
	err := r.db.QueryRow(query, key).Scan(
		&plan.ID,
		&plan.Title,
		&plan.Priority,
		&items,
		&plan.Summary,
		&plan.Status,
		&plan.IdempotencyKey,
		&plan.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query action plan by idempotency key: %w", err)
	}

	plan.Items = items
	return &plan, nil
}
