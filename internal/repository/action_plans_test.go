package repository

import (
	"database/sql"
	"testing"
	"time"

	"subzero/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockActionPlansDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ActionPlansRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewActionPlansRepository(db, logger)

	return db, mock, repo
}

func samplePlan() *models.ActionPlan {
	return &models.ActionPlan{
		ID:        uuid.New().String(),
		Title:     "Inspect UNIT_3 compressor",
		Priority:  "high",
		Items:     []string{"check refrigerant", "inspect door seal"},
		Summary:   "COP trending down over the last week",
		Status:    models.PlanActive,
		CreatedAt: time.Now().UTC(),
	}
}

func TestInsertActionPlan_Success(t *testing.T) {
	db, mock, repo := setupMockActionPlansDB(t)
	defer db.Close()

	plan := samplePlan()

	mock.ExpectExec(`INSERT INTO action_plans`).
		WithArgs(
			plan.ID, plan.Title, plan.Priority, pq.Array(plan.Items),
			plan.Summary, string(plan.Status), "", plan.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := repo.Insert(plan)

	require.NoError(t, err)
	assert.Equal(t, plan.ID, stored.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 带 idempotency_key 且键已存在：返回已有计划，不执行插入
func TestInsertActionPlan_IdempotencyKeyExists(t *testing.T) {
	db, mock, repo := setupMockActionPlansDB(t)
	defer db.Close()

	existingID := uuid.New().String()
	createdAt := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "title", "priority", "items", "summary", "status", "idempotency_key", "created_at",
	}).AddRow(
		existingID, "Defrost UNIT_7", "medium", pq.StringArray{"run defrost cycle"},
		"", "active", "defrost-unit7-2026-03", createdAt,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("defrost-unit7-2026-03").
		WillReturnRows(rows)

	plan := samplePlan()
	plan.IdempotencyKey = "defrost-unit7-2026-03"

	stored, err := repo.Insert(plan)

	require.NoError(t, err)
	assert.Equal(t, existingID, stored.ID)
	assert.Equal(t, "Defrost UNIT_7", stored.Title)
	assert.Equal(t, []string{"run defrost cycle"}, stored.Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 带 idempotency_key 但键不存在：正常插入
func TestInsertActionPlan_IdempotencyKeyNew(t *testing.T) {
	db, mock, repo := setupMockActionPlansDB(t)
	defer db.Close()

	plan := samplePlan()
	plan.IdempotencyKey = "inspect-unit3-2026-03"

	mock.ExpectQuery(`SELECT`).
		WithArgs(plan.IdempotencyKey).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec(`INSERT INTO action_plans`).
		WithArgs(
			plan.ID, plan.Title, plan.Priority, pq.Array(plan.Items),
			plan.Summary, string(plan.Status), plan.IdempotencyKey, plan.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := repo.Insert(plan)

	require.NoError(t, err)
	assert.Equal(t, plan.ID, stored.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActionPlans_FilterByStatus(t *testing.T) {
	db, mock, repo := setupMockActionPlansDB(t)
	defer db.Close()

	createdAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "title", "priority", "items", "summary", "status", "idempotency_key", "created_at",
	}).AddRow(
		"p-2", "Plan B", "low", pq.StringArray{"step 1"}, "", "active", "", createdAt,
	).AddRow(
		"p-1", "Plan A", "high", pq.StringArray{"step 1", "step 2"}, "", "active", "", createdAt.Add(-time.Hour),
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("active").
		WillReturnRows(rows)

	plans, err := repo.List(models.PlanActive)

	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "p-2", plans[0].ID)
	assert.Equal(t, []string{"step 1", "step 2"}, plans[1].Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteActionPlan_Success(t *testing.T) {
	db, mock, repo := setupMockActionPlansDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE action_plans`).
		WithArgs("completed", "p-1", "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete("p-1")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 计划不存在或已完成：完成操作报错（终态不可重入）
func TestCompleteActionPlan_NotActive(t *testing.T) {
	db, mock, repo := setupMockActionPlansDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE action_plans`).
		WithArgs("completed", "p-404", "active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete("p-404")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found or not active")
	require.NoError(t, mock.ExpectationsWereMet())
}
