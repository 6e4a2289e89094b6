package assistant

import "context"

// 会话消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message 会话消息
type Message struct {
	Role       string            `json:"role"`
	Content    string            `json:"content,omitempty"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
}

// ToolCallRequest 模型发出的一次结构化工具调用请求
type ToolCallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolSpec 向模型声明的工具模式
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
	Required    []string               `json:"-"` // 执行前校验的必填参数
}

// Provider 外部 LLM 协作方：无状态的请求/响应 oracle
// 返回纯文本或一至多个结构化工具调用，自身不承担任何持久化义务
type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (*Message, error)
}
