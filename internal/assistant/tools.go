package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"subzero/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanStore 行动计划存储（外部协作方）
// Complete 仅由操作员动作触发，不曝光为模型工具
type PlanStore interface {
	Insert(plan *models.ActionPlan) (*models.ActionPlan, error)
	List(status models.PlanStatus) ([]models.ActionPlan, error)
	Complete(id string) error
}

// RegisterDefaultTools 注册标准工具集：log_action_plan / get_action_plans / send_email
func (o *Orchestrator) RegisterDefaultTools(plans PlanStore) {
	o.RegisterTool(Tool{
		Spec: ToolSpec{
			Name: "log_action_plan",
			Description: "Record a maintenance action plan for the operations team. " +
				"Pass the same idempotency_key when retrying to avoid duplicate plans.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":           map[string]interface{}{"type": "string"},
					"priority":        map[string]interface{}{"type": "string", "enum": []string{"low", "medium", "high"}},
					"items":           map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"summary":         map[string]interface{}{"type": "string"},
					"idempotency_key": map[string]interface{}{"type": "string"},
				},
				"required": []string{"title", "items"},
			},
			Required: []string{"title", "items"},
		},
		Handler: o.toolLogActionPlan(plans),
	})

	o.RegisterTool(Tool{
		Spec: ToolSpec{
			Name:        "get_action_plans",
			Description: "List recorded action plans, optionally filtered by status (active or completed).",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"status": map[string]interface{}{"type": "string", "enum": []string{"active", "completed"}},
				},
			},
		},
		Handler: o.toolGetActionPlans(plans),
	})

	o.RegisterTool(Tool{
		Spec: ToolSpec{
			Name:        "send_email",
			Description: "Send a notification email to an operator.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"to":      map[string]interface{}{"type": "string"},
					"subject": map[string]interface{}{"type": "string"},
					"body":    map[string]interface{}{"type": "string"},
				},
				"required": []string{"to", "subject"},
			},
			Required: []string{"to", "subject"},
		},
		Handler: o.toolSendEmail(),
	})
}

// toolLogActionPlan 追加一条行动计划
// 本身非幂等；模型带 idempotency_key 重试时由存储层去重
func (o *Orchestrator) toolLogActionPlan(plans PlanStore) func(context.Context, map[string]interface{}) (string, error) {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		plan := &models.ActionPlan{
			ID:        uuid.New().String(),
			Status:    models.PlanActive,
			CreatedAt: time.Now().UTC(),
		}
		plan.Title, _ = args["title"].(string)
		plan.Priority, _ = args["priority"].(string)
		plan.Summary, _ = args["summary"].(string)
		plan.IdempotencyKey, _ = args["idempotency_key"].(string)
		if plan.Priority == "" {
			plan.Priority = "medium"
		}

		if items, ok := args["items"].([]interface{}); ok {
			for _, item := range items {
				if s, ok := item.(string); ok {
					plan.Items = append(plan.Items, s)
				}
			}
		}

		stored, err := plans.Insert(plan)
		if err != nil {
			return "", fmt.Errorf("storing action plan: %w", err)
		}

		return fmt.Sprintf("Action plan logged with ID %s", stored.ID), nil
	}
}

// toolGetActionPlans 纯读取
func (o *Orchestrator) toolGetActionPlans(plans PlanStore) func(context.Context, map[string]interface{}) (string, error) {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		status, _ := args["status"].(string)

		list, err := plans.List(models.PlanStatus(status))
		if err != nil {
			return "", fmt.Errorf("listing action plans: %w", err)
		}

		b, err := json.Marshal(list)
		if err != nil {
			return "", fmt.Errorf("encoding action plans: %w", err)
		}
		return string(b), nil
	}
}

// toolSendEmail 只记录发送意图，不真正投递
// 保留参考实现的 "logged, not delivered" 语义，邮件投递属于未接入的外部协作方
func (o *Orchestrator) toolSendEmail() func(context.Context, map[string]interface{}) (string, error) {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		to, _ := args["to"].(string)
		subject, _ := args["subject"].(string)
		body, _ := args["body"].(string)

		o.logger.Info("Email intent logged (not delivered)",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Int("body_length", len(body)),
		)

		return fmt.Sprintf("Email to %s logged (delivery is not configured in this deployment)", to), nil
	}
}
