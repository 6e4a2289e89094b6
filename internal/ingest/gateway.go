package ingest

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"subzero/internal/broadcast"
	"subzero/internal/classify"
	"subzero/internal/models"
	"subzero/internal/sink"
	"subzero/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result 采集结果
// Accepted 恒为 true：发送方采用 at-least-once 语义，已送达的负载
// 绝不要求重发，无法识别的负载在记录后丢弃并照常确认
type Result struct {
	Accepted  bool                   `json:"accepted"`
	Archetype models.Archetype       `json:"archetype"`
	Snapshot  *models.DeviceSnapshot `json:"snapshot,omitempty"`
}

// Gateway 采集网关：判别设备类型、标准化为读数、
// 推入设备状态存储并送入异步持久化汇
type Gateway struct {
	store      *store.Store
	sink       *sink.BestEffort
	hub        *broadcast.Hub
	thresholds classify.Thresholds
	logger     *zap.Logger

	dropped atomic.Int64
}

// NewGateway 创建采集网关（hub 可为 nil）
func NewGateway(st *store.Store, snk *sink.BestEffort, hub *broadcast.Hub, th classify.Thresholds, logger *zap.Logger) *Gateway {
	return &Gateway{
		store:      st,
		sink:       snk,
		hub:        hub,
		thresholds: th,
		logger:     logger,
	}
}

// Ingest 处理一条原始负载
// 标准化完成即返回成功；持久化异步进行，其失败绝不阻塞或影响本次响应
func (g *Gateway) Ingest(ctx context.Context, raw []byte, source string) Result {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.drop(source, "malformed payload", zap.Error(err))
		return Result{Accepted: true, Archetype: models.ArchetypeUnknown}
	}

	archetype := detectArchetype(payload)
	if archetype == models.ArchetypeUnknown {
		g.drop(source, "unrecognized sensor type")
		return Result{Accepted: true, Archetype: models.ArchetypeUnknown}
	}

	reading, ok := normalize(payload, archetype)
	if !ok {
		g.drop(source, "missing device_id")
		return Result{Accepted: true, Archetype: models.ArchetypeUnknown}
	}

	// 分类在每次快照更新时重新计算，不做缓存（阈值可能随版本变化）
	result := classify.Classify(&reading, g.thresholds)
	for i := range result.Alerts {
		result.Alerts[i].ID = uuid.New().String()
	}

	prev, known := g.store.GetSnapshot(reading.DeviceID)
	snapshot := g.store.Upsert(reading, result.Status)

	if g.hub != nil {
		g.hub.Broadcast(broadcast.EventDeviceUpdate, snapshot)
		// 新设备或状态变化会影响舰队视图
		if !known || prev.Status != snapshot.Status {
			g.hub.Broadcast(broadcast.EventFleetUpdate, snapshot)
		}
	}

	g.sink.Enqueue(&reading, result.Alerts)

	return Result{Accepted: true, Archetype: archetype, Snapshot: &snapshot}
}

// Dropped 因无法识别或缺字段而被丢弃的负载总数
func (g *Gateway) Dropped() int64 {
	return g.dropped.Load()
}

func (g *Gateway) drop(source, reason string, fields ...zap.Field) {
	n := g.dropped.Add(1)
	fields = append(fields,
		zap.String("source", source),
		zap.String("reason", reason),
		zap.Int64("total_dropped", n),
	)
	g.logger.Warn("Dropping payload", fields...)
}

// normalize 将原始负载标准化为不可变读数
// device_id 为必填；timestamp 缺失或不可解析时取当前时间
func normalize(payload map[string]interface{}, archetype models.Archetype) (models.Reading, bool) {
	deviceID, _ := payload["device_id"].(string)
	if deviceID == "" {
		return models.Reading{}, false
	}

	timestamp := time.Now().UTC()
	if tsStr, ok := payload["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
			timestamp = t
		} else if t, err := time.Parse(time.RFC3339, tsStr); err == nil {
			timestamp = t
		}
	}

	fields := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch k {
		case "device_id", "sensor_type", "timestamp":
			continue
		}
		fields[k] = v
	}

	return models.Reading{
		DeviceID:   deviceID,
		Timestamp:  timestamp,
		SensorKind: archetype,
		Fields:     fields,
	}, true
}
