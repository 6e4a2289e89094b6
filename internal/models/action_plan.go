package models

import "time"

// PlanStatus 行动计划状态（active → completed，终态，仅由操作员推进）
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
)

// ActionPlan 操作员行动计划（由助手工具创建，append 式持久化）
// IdempotencyKey 由模型在重试时复用，避免超时重试产生重复计划
type ActionPlan struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Priority       string     `json:"priority"`
	Items          []string   `json:"items"`
	Summary        string     `json:"summary"`
	Status         PlanStatus `json:"status"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToolCall 一次模型工具调用的请求/响应记录（用于审计）
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    string                 `json:"result"`
	IsError   bool                   `json:"is_error"`
	CreatedAt time.Time              `json:"created_at"`
}
