package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subzero/internal/analytics"
	"subzero/internal/assistant"
	"subzero/internal/classify"
	"subzero/internal/ingest"
	"subzero/internal/models"
	"subzero/internal/sink"
	"subzero/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// echoProvider 总是返回固定文本的模型替身
type echoProvider struct{}

func (echoProvider) Chat(ctx context.Context, messages []assistant.Message, tools []assistant.ToolSpec) (*assistant.Message, error) {
	return &assistant.Message{Role: assistant.RoleAssistant, Content: "fleet looks fine"}, nil
}

func newTestRouter(t *testing.T) (*Router, *assistant.MemoryPlanStore) {
	t.Helper()

	logger := zap.NewNop()
	thresholds := classify.Thresholds{
		TempCriticalC: -5.0,
		TempWarningC:  -10.0,
		FrostWarning:  0.5,
		NormalFault:   "NORMAL",
	}
	st := store.NewStore(100)
	snk := sink.NewBestEffort(nil, nil, sink.Streams{}, 64, logger)
	gateway := ingest.NewGateway(st, snk, nil, thresholds, logger)

	plans := assistant.NewMemoryPlanStore()
	orchestrator := assistant.NewOrchestrator(echoProvider{}, nil, 8, logger)
	orchestrator.RegisterDefaultTools(plans)

	params := analytics.Params{
		MKT:         analytics.MKTParams{DeltaH: 83144.0, GasConst: 8.3144, CeilingC: -15.0, MarginalBandC: 2.0},
		Efficiency:  analytics.EfficiencyParams{COPFullScore: 3.0, PowerCeilingW: 1000.0},
		Night:       analytics.NightWindow{StartHour: 19, EndHour: 8, Location: time.UTC},
		Vibration:   analytics.VibrationParams{AnomalyDeviation: 2.0, RollingWindow: 10, TrendTolerance: 5.0},
		Excursion:   analytics.ExcursionParams{ThresholdC: -15.0, ModerateBandC: 3.0, CriticalBandC: 8.0},
		NormalFault: "NORMAL",
	}

	handler := NewHandler(st, gateway, snk, nil, orchestrator, plans, thresholds, params, time.UTC, logger)
	router := NewRouter(logger)
	router.RegisterRoutes(handler)
	return router, plans
}

func doJSON(t *testing.T, router *Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func ingestFreezer(t *testing.T, router *Router, deviceID string, temp float64, ts time.Time) {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/ingest/api/v1/data", map[string]interface{}{
		"device_id":    deviceID,
		"sensor_type":  "freezer",
		"temp_cabinet": temp,
		"timestamp":    ts.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/ingest/api/v1/data", map[string]interface{}{
		"device_id":    "SUBZERO_001",
		"sensor_type":  "freezer",
		"temp_cabinet": -18.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "freezer", body["archetype"])
}

// 无法识别的负载同样返回 200，丢弃计数出现在舰队状态里
func TestIngestUnknownStillOK(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/ingest/api/v1/data", map[string]interface{}{
		"device_id": "MYSTERY",
		"voltage":   3.3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unknown", body["archetype"])

	status := doJSON(t, router, http.MethodGet, "/fleet/api/v1/status", nil)
	require.Equal(t, http.StatusOK, status.Code)

	var fleet map[string]interface{}
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &fleet))
	assert.Equal(t, float64(1), fleet["dropped_payloads"])
}

func TestFleetStatusCountsAndAlerts(t *testing.T) {
	router, _ := newTestRouter(t)
	now := time.Now().UTC()

	ingestFreezer(t, router, "UNIT_1", -20.0, now) // healthy
	ingestFreezer(t, router, "UNIT_2", -8.0, now)  // warning
	ingestFreezer(t, router, "UNIT_3", -2.0, now)  // critical

	rec := doJSON(t, router, http.MethodGet, "/fleet/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Counts map[string]int `json:"counts"`
		Alerts []models.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 1, body.Counts["healthy"])
	assert.Equal(t, 1, body.Counts["warning"])
	assert.Equal(t, 1, body.Counts["critical"])
	require.Len(t, body.Alerts, 2)
	// 按 device_id 排序
	assert.Equal(t, "UNIT_2", body.Alerts[0].DeviceID)
	assert.Equal(t, "UNIT_3", body.Alerts[1].DeviceID)
}

func TestDeviceHistoryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		ingestFreezer(t, router, "UNIT_1", -18.0, now.Add(time.Duration(i)*time.Minute))
	}

	rec := doJSON(t, router, http.MethodGet, "/fleet/api/v1/devices/UNIT_1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int              `json:"count"`
		Readings []models.Reading `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Readings, 3)

	notFound := doJSON(t, router, http.MethodGet, "/fleet/api/v1/devices/NOPE/history", nil)
	assert.Equal(t, http.StatusNotFound, notFound.Code)
}

func TestDeviceReportEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	base := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ingestFreezer(t, router, "UNIT_1", -18.0, base.Add(time.Duration(i)*time.Hour))
	}

	rec := doJSON(t, router, http.MethodGet, "/fleet/api/v1/devices/UNIT_1/report?month=3&year=2026", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Report analytics.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Report.TotalReadings)
	require.NotNil(t, body.Report.MKT)
	assert.Equal(t, "PASS", body.Report.MKT.Band)
	// 没有加速度/功率数据的指标是 null
	assert.Nil(t, body.Report.VibrationHealth)
	assert.Nil(t, body.Report.Efficiency)

	// 窗口外的月份：200 + insufficient data 标记
	empty := doJSON(t, router, http.MethodGet, "/fleet/api/v1/devices/UNIT_1/report?month=7&year=2026", nil)
	require.Equal(t, http.StatusOK, empty.Code)
	var emptyBody map[string]interface{}
	require.NoError(t, json.Unmarshal(empty.Body.Bytes(), &emptyBody))
	assert.Equal(t, "insufficient data", emptyBody["note"])

	badMonth := doJSON(t, router, http.MethodGet, "/fleet/api/v1/devices/UNIT_1/report?month=13&year=2026", nil)
	assert.Equal(t, http.StatusBadRequest, badMonth.Code)
}

func TestPlansEndpoints(t *testing.T) {
	router, plans := newTestRouter(t)

	stored, err := plans.Insert(&models.ActionPlan{
		ID:        "p-1",
		Title:     "Inspect UNIT_3",
		Priority:  "high",
		Items:     []string{"check seal"},
		Status:    models.PlanActive,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/fleet/api/v1/plans?status=active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listBody struct {
		Plans []models.ActionPlan `json:"plans"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	require.Equal(t, 1, listBody.Count)
	assert.Equal(t, stored.ID, listBody.Plans[0].ID)

	complete := doJSON(t, router, http.MethodPost, fmt.Sprintf("/fleet/api/v1/plans/%s/complete", stored.ID), nil)
	require.Equal(t, http.StatusOK, complete.Code)

	// 终态不可重入
	again := doJSON(t, router, http.MethodPost, fmt.Sprintf("/fleet/api/v1/plans/%s/complete", stored.ID), nil)
	assert.Equal(t, http.StatusNotFound, again.Code)

	badStatus := doJSON(t, router, http.MethodGet, "/fleet/api/v1/plans?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, badStatus.Code)
}

func TestAssistantChatEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/fleet/api/v1/assistant/chat", map[string]string{
		"message": "how is the fleet?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply assistant.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "fleet looks fine", reply.Text)

	empty := doJSON(t, router, http.MethodPost, "/fleet/api/v1/assistant/chat", map[string]string{
		"message": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, empty.Code)
}

func TestMethodGuards(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/ingest/api/v1/data", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/fleet/api/v1/status", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/fleet/api/v1/plans", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
