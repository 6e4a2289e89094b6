package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"subzero/internal/analytics"
	"subzero/internal/assistant"
	"subzero/internal/broadcast"
	"subzero/internal/classify"
	"subzero/internal/ingest"
	"subzero/internal/models"
	"subzero/internal/sink"
	"subzero/internal/store"

	"go.uber.org/zap"
)

// Handler 遥测核心 HTTP 处理器
type Handler struct {
	store        *store.Store
	gateway      *ingest.Gateway
	sink         *sink.BestEffort
	hub          *broadcast.Hub
	orchestrator *assistant.Orchestrator
	plans        assistant.PlanStore
	thresholds   classify.Thresholds
	analytics    analytics.Params
	location     *time.Location
	logger       *zap.Logger
}

// NewHandler 创建 HTTP 处理器
func NewHandler(
	st *store.Store,
	gateway *ingest.Gateway,
	snk *sink.BestEffort,
	hub *broadcast.Hub,
	orchestrator *assistant.Orchestrator,
	plans assistant.PlanStore,
	thresholds classify.Thresholds,
	analyticsParams analytics.Params,
	location *time.Location,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:        st,
		gateway:      gateway,
		sink:         snk,
		hub:          hub,
		orchestrator: orchestrator,
		plans:        plans,
		thresholds:   thresholds,
		analytics:    analyticsParams,
		location:     location,
		logger:       logger,
	}
}

// IngestData 采集端点：接受一条 JSON 负载
// 无法识别的负载也返回成功（at-least-once 发送方，at-most-once 处理方）
func (h *Handler) IngestData(w http.ResponseWriter, req *http.Request) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		// 连请求体都读不到才算传输层失败
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result := h.gateway.Ingest(req.Context(), raw, "http")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"archetype": result.Archetype,
	})
}

// FleetStatus 舰队状态读端点：全部快照 + 当前告警列表 + 聚合计数
// 告警列表在每次请求时按当前阈值重新分类，不走缓存
func (h *Handler) FleetStatus(w http.ResponseWriter, req *http.Request) {
	snapshots := h.store.ListSnapshots()

	counts := map[models.DeviceStatus]int{}
	var alerts []models.Alert
	for _, snap := range snapshots {
		reading := snap.Reading
		result := classify.Classify(&reading, h.thresholds)
		counts[result.Status]++
		alerts = append(alerts, result.Alerts...)
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].DeviceID < alerts[j].DeviceID
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": snapshots,
		"alerts":  alerts,
		"counts": map[string]int{
			"healthy":  counts[models.StatusHealthy],
			"warning":  counts[models.StatusWarning],
			"critical": counts[models.StatusCritical],
			"unknown":  counts[models.StatusUnknown],
		},
		"dropped_payloads": h.gateway.Dropped(),
		"sink_dropped":     h.sink.Dropped(),
	})
}

// DeviceHistory 设备历史读端点：有序读数 + 最新快照 + 条数
func (h *Handler) DeviceHistory(w http.ResponseWriter, req *http.Request, deviceID string) {
	snapshot, ok := h.store.GetSnapshot(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown device: %s", deviceID))
		return
	}

	history := h.store.GetHistory(deviceID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"readings": history,
		"snapshot": snapshot,
		"count":    len(history),
	})
}

// DeviceReport 合规报告读端点：(device_id, month, year) → 四项指标打包
// 月份窗口按配置时区解析；上一个月作为振动趋势的对比窗口
func (h *Handler) DeviceReport(w http.ResponseWriter, req *http.Request, deviceID string) {
	if _, ok := h.store.GetSnapshot(deviceID); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown device: %s", deviceID))
		return
	}

	month, err := strconv.Atoi(req.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}
	year, err := strconv.Atoi(req.URL.Query().Get("year"))
	if err != nil || year < 2000 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, h.location)
	end := start.AddDate(0, 1, 0)
	prevStart := start.AddDate(0, -1, 0)

	history := h.store.GetHistory(deviceID)
	var window, previous []models.Reading
	for _, r := range history {
		ts := r.Timestamp
		switch {
		case !ts.Before(start) && ts.Before(end):
			window = append(window, r)
		case !ts.Before(prevStart) && ts.Before(start):
			previous = append(previous, r)
		}
	}

	report := analytics.BuildReport(window, previous, h.analytics)
	response := map[string]interface{}{
		"device_id": deviceID,
		"month":     month,
		"year":      year,
		"report":    report,
	}
	if report.TotalReadings == 0 {
		response["note"] = "insufficient data"
	}
	writeJSON(w, http.StatusOK, response)
}

// AssistantChat 助手会话端点
func (h *Handler) AssistantChat(w http.ResponseWriter, req *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if body.SessionID == "" {
		body.SessionID = "default"
	}

	reply, err := h.orchestrator.HandleMessage(req.Context(), body.SessionID, body.Message)
	if err != nil {
		h.logger.Error("Assistant turn failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// ListPlans 行动计划读端点（?status=active|completed，缺省列出全部）
func (h *Handler) ListPlans(w http.ResponseWriter, req *http.Request) {
	status := models.PlanStatus(req.URL.Query().Get("status"))
	switch status {
	case "", models.PlanActive, models.PlanCompleted:
	default:
		writeError(w, http.StatusBadRequest, "status must be active or completed")
		return
	}

	plans, err := h.plans.List(status)
	if err != nil {
		h.logger.Error("Failed to list action plans", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list action plans")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

// CompletePlan 操作员将行动计划标记为完成（终态，不可重入）
func (h *Handler) CompletePlan(w http.ResponseWriter, req *http.Request, planID string) {
	if err := h.plans.Complete(planID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     planID,
		"status": string(models.PlanCompleted),
	})
}

// Subscribe 推送订阅端点
func (h *Handler) Subscribe(w http.ResponseWriter, req *http.Request) {
	h.hub.ServeWS(w, req)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
