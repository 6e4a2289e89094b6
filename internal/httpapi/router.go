package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes 注册遥测核心路由
func (r *Router) RegisterRoutes(h *Handler) {
	// 采集端点（at-least-once 发送方语义：一律确认成功）
	r.Handle("/ingest/api/v1/data", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.IngestData(w, req)
	})

	// 舰队状态
	r.Handle("/fleet/api/v1/status", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.FleetStatus(w, req)
	})

	// devices/{id}/history 与 devices/{id}/report
	r.Handle("/fleet/api/v1/devices/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/fleet/api/v1/devices/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch parts[1] {
		case "history":
			h.DeviceHistory(w, req, parts[0])
		case "report":
			h.DeviceReport(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	// 行动计划列表
	r.Handle("/fleet/api/v1/plans", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListPlans(w, req)
	})

	// plans/{id}/complete
	r.Handle("/fleet/api/v1/plans/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/fleet/api/v1/plans/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "complete" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.CompletePlan(w, req, parts[0])
	})

	// 助手会话
	r.Handle("/fleet/api/v1/assistant/chat", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.AssistantChat(w, req)
	})

	// 推送订阅
	r.Handle("/fleet/api/v1/ws", func(w http.ResponseWriter, req *http.Request) {
		h.Subscribe(w, req)
	})
}
