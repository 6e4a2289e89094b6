package broadcast

import (
	"context"

	"go.uber.org/zap"
)

// 推送事件类型
const (
	EventInitialState = "initialState"
	EventDeviceUpdate = "deviceUpdate"
	EventFleetUpdate  = "fleetUpdate"
)

// Event 推送到订阅方的事件（尽力而为，至多一次；丢事件由订阅方走全量读端点对账）
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub 广播层：维护订阅连接，向全部订阅方分发状态增量
// 首次订阅时推送全量 initialState 快照
type Hub struct {
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	broadcast    chan Event
	done         chan struct{}
	initialState func() interface{}
	logger       *zap.Logger
}

// NewHub 创建广播 Hub
// initialState 在每次新订阅时调用，返回全量快照负载
func NewHub(initialState func() interface{}, logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan Event, 64),
		done:         make(chan struct{}),
		initialState: initialState,
		logger:       logger,
	}
}

// Run 运行分发循环（直到 ctx 取消）
// 退出后 done 关闭，迟到的注册/注销不再阻塞
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			// 新订阅方先收到全量快照，之后才是增量
			client.trySend(Event{Type: EventInitialState, Payload: h.initialState()})
			h.logger.Debug("Subscriber registered", zap.Int("subscribers", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}

		case event := <-h.broadcast:
			for client := range h.clients {
				if !client.trySend(event) {
					// 慢消费者：丢弃连接而不是阻塞分发循环
					delete(h.clients, client)
					client.close()
					h.logger.Warn("Dropping slow subscriber")
				}
			}
		}
	}
}

// Broadcast 向全部订阅方分发一个事件（非阻塞，分发队列满时丢弃）
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	select {
	case h.broadcast <- Event{Type: eventType, Payload: payload}:
	default:
		h.logger.Warn("Broadcast queue full, dropping event", zap.String("type", eventType))
	}
}

// enroll 注册订阅方；分发循环已退出时拒绝
func (h *Hub) enroll(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// drop 注销订阅方；分发循环已退出时连接已被统一关闭，直接返回
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
