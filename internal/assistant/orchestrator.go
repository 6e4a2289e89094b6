package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"subzero/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 每轮操作员消息内的编排状态（终态 Idle，可重入）
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingModel  State = "awaiting_model"
	StateExecutingTools State = "executing_tools"
	StateResponding     State = "responding"
)

const systemPrompt = `You are the operations assistant for a cold-chain telemetry fleet. ` +
	`You help operators investigate device health, plan maintenance actions and notify staff. ` +
	`Use the provided tools when an action is needed; otherwise answer directly and concisely.`

// 模型调用失败时回给操作员的兜底文案（不自动重试）
const fallbackReply = "Sorry, I couldn't reach the assistant service. Please try again."

// Tool 已注册的工具：声明模式 + 同步执行的处理函数
type Tool struct {
	Spec    ToolSpec
	Handler func(ctx context.Context, args map[string]interface{}) (string, error)
}

// Reply 编排器对一条操作员消息的最终答复
type Reply struct {
	Text      string            `json:"text"`
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`
}

type session struct {
	// 整轮消息期间持有：同一会话的并发消息串行处理，
	// history 的读写都发生在持有者一侧
	turnMu  sync.Mutex
	history []Message
	state   State
}

// Orchestrator 工具调用编排器：操作员 ↔ 模型 ↔ 工具 的有界会话循环
// 工具通过注册表分发（新增工具是一次注册，不是一个分支）
type Orchestrator struct {
	provider     Provider
	tools        map[string]Tool
	toolOrder    []string
	fleetSummary func() string
	maxRounds    int
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewOrchestrator 创建编排器
// fleetSummary 为只读的舰队状态摘要提供方，随每轮会话送入模型
func NewOrchestrator(provider Provider, fleetSummary func() string, maxRounds int, logger *zap.Logger) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = 8
	}
	return &Orchestrator{
		provider:     provider,
		tools:        make(map[string]Tool),
		fleetSummary: fleetSummary,
		maxRounds:    maxRounds,
		logger:       logger,
		sessions:     make(map[string]*session),
	}
}

// RegisterTool 注册一个工具
func (o *Orchestrator) RegisterTool(tool Tool) {
	if _, exists := o.tools[tool.Spec.Name]; !exists {
		o.toolOrder = append(o.toolOrder, tool.Spec.Name)
	}
	o.tools[tool.Spec.Name] = tool
}

// State 当前会话状态（会话不存在时为 Idle）
func (o *Orchestrator) State(sessionID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[sessionID]; ok {
		return s.state
	}
	return StateIdle
}

// HandleMessage 处理一条操作员消息，驱动 模型↔工具 循环直到模型给出纯文本答复
// 循环次数有显式上限以保证终止；模型调用可随 ctx 取消（操作员断开）
// 同一会话的并发消息串行处理（会话历史是单写者的）
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	sess := o.getSession(sessionID)

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	o.setState(sess, StateAwaitingModel)
	defer o.setState(sess, StateIdle)

	sess.history = append(sess.history, Message{Role: RoleUser, Content: text})

	var audit []models.ToolCall

	for round := 0; round < o.maxRounds; round++ {
		reply, err := o.provider.Chat(ctx, o.buildMessages(sess), o.toolSpecs())
		if err != nil {
			// 模型失败：兜底文案回给操作员，不自动重试
			o.logger.Error("Model call failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			return &Reply{Text: fallbackReply, ToolCalls: audit}, nil
		}

		if len(reply.ToolCalls) == 0 {
			o.setState(sess, StateResponding)
			sess.history = append(sess.history, *reply)
			return &Reply{Text: reply.Content, ToolCalls: audit}, nil
		}

		o.setState(sess, StateExecutingTools)
		sess.history = append(sess.history, *reply)

		for _, tc := range reply.ToolCalls {
			record := o.executeTool(ctx, tc)
			audit = append(audit, record)
			sess.history = append(sess.history, Message{
				Role:       RoleTool,
				ToolCallID: tc.ID,
				Content:    record.Result,
			})
		}

		// 工具结果就绪，回到模型（由模型决定是否继续调用工具）
		o.setState(sess, StateAwaitingModel)
	}

	o.logger.Warn("Tool round limit reached",
		zap.String("session_id", sessionID),
		zap.Int("max_rounds", o.maxRounds),
	)
	return &Reply{
		Text:      "I wasn't able to finish that request within the allowed number of steps.",
		ToolCalls: audit,
	}, nil
}

// executeTool 校验参数模式并同步执行一个工具调用
// 工具失败不会中断循环：失败原因作为结果回传给模型，由模型决定是否重试
func (o *Orchestrator) executeTool(ctx context.Context, tc ToolCallRequest) models.ToolCall {
	record := models.ToolCall{
		ID:        tc.ID,
		Name:      tc.Name,
		Arguments: tc.Arguments,
		CreatedAt: time.Now().UTC(),
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	tool, ok := o.tools[tc.Name]
	if !ok {
		record.IsError = true
		record.Result = fmt.Sprintf("unknown tool: %s", tc.Name)
		return record
	}

	for _, param := range tool.Spec.Required {
		if _, present := tc.Arguments[param]; !present {
			record.IsError = true
			record.Result = fmt.Sprintf("missing required argument: %s", param)
			return record
		}
	}

	result, err := tool.Handler(ctx, tc.Arguments)
	if err != nil {
		record.IsError = true
		record.Result = fmt.Sprintf("tool execution failed: %v", err)
		o.logger.Error("Tool execution failed",
			zap.String("tool", tc.Name),
			zap.Error(err),
		)
		return record
	}

	record.Result = result
	return record
}

func (o *Orchestrator) buildMessages(sess *session) []Message {
	messages := make([]Message, 0, len(sess.history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	if o.fleetSummary != nil {
		messages = append(messages, Message{
			Role:    RoleSystem,
			Content: "Current fleet state:\n" + o.fleetSummary(),
		})
	}
	return append(messages, sess.history...)
}

func (o *Orchestrator) toolSpecs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(o.toolOrder))
	for _, name := range o.toolOrder {
		specs = append(specs, o.tools[name].Spec)
	}
	return specs
}

func (o *Orchestrator) getSession(sessionID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[sessionID]
	if !ok {
		sess = &session{state: StateIdle}
		o.sessions[sessionID] = sess
	}
	return sess
}

func (o *Orchestrator) setState(sess *session, state State) {
	o.mu.Lock()
	sess.state = state
	o.mu.Unlock()
}
