package assistant

import (
	"fmt"
	"sync"

	"subzero/internal/models"
)

// MemoryPlanStore 内存版行动计划存储（数据库未启用时使用）
// 与 Postgres 实现一致：带 idempotency_key 的插入按键去重
type MemoryPlanStore struct {
	mu    sync.Mutex
	plans []models.ActionPlan
}

// NewMemoryPlanStore 创建内存行动计划存储
func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{}
}

// Insert 追加一条计划；键已存在时返回已有计划
func (s *MemoryPlanStore) Insert(plan *models.ActionPlan) (*models.ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.IdempotencyKey != "" {
		for i := range s.plans {
			if s.plans[i].IdempotencyKey == plan.IdempotencyKey {
				existing := s.plans[i]
				return &existing, nil
			}
		}
	}

	s.plans = append(s.plans, *plan)
	return plan, nil
}

// List 按状态列出（status 为空时列出全部），最新在前
func (s *MemoryPlanStore) List(status models.PlanStatus) ([]models.ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.ActionPlan
	for i := len(s.plans) - 1; i >= 0; i-- {
		if status == "" || s.plans[i].Status == status {
			result = append(result, s.plans[i])
		}
	}
	return result, nil
}

// Complete 将计划标记为完成（active → completed，终态）
func (s *MemoryPlanStore) Complete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.plans {
		if s.plans[i].ID == id && s.plans[i].Status == models.PlanActive {
			s.plans[i].Status = models.PlanCompleted
			return nil
		}
	}
	return fmt.Errorf("action plan %s not found or not active", id)
}
