package assistant

import (
	"testing"
	"time"

	"subzero/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedPlan(id, key string) *models.ActionPlan {
	return &models.ActionPlan{
		ID:             id,
		Title:          "Plan " + id,
		Priority:       "medium",
		Items:          []string{"step 1"},
		Status:         models.PlanActive,
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}
}

// active → completed 是终态：重复完成与完成不存在的计划都报错
func TestMemoryPlanStoreComplete(t *testing.T) {
	s := NewMemoryPlanStore()
	_, err := s.Insert(storedPlan("p-1", ""))
	require.NoError(t, err)

	require.NoError(t, s.Complete("p-1"))

	completed, err := s.List(models.PlanCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "p-1", completed[0].ID)

	assert.Error(t, s.Complete("p-1"))
	assert.Error(t, s.Complete("p-404"))
}

// List 按状态过滤，最新在前
func TestMemoryPlanStoreListOrder(t *testing.T) {
	s := NewMemoryPlanStore()
	_, err := s.Insert(storedPlan("p-1", ""))
	require.NoError(t, err)
	_, err = s.Insert(storedPlan("p-2", ""))
	require.NoError(t, err)

	all, err := s.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p-2", all[0].ID)
	assert.Equal(t, "p-1", all[1].ID)
}

// 同键插入返回已有计划而不是新建
func TestMemoryPlanStoreIdempotency(t *testing.T) {
	s := NewMemoryPlanStore()
	first, err := s.Insert(storedPlan("p-1", "key-1"))
	require.NoError(t, err)

	second, err := s.Insert(storedPlan("p-2", "key-1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
