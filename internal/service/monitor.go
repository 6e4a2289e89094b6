package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"subzero/internal/analytics"
	"subzero/internal/assistant"
	"subzero/internal/broadcast"
	"subzero/internal/classify"
	"subzero/internal/config"
	"subzero/internal/database"
	"subzero/internal/httpapi"
	"subzero/internal/ingest"
	"subzero/internal/models"
	"subzero/internal/repository"
	redisutil "subzero/internal/redis"
	"subzero/internal/sink"
	"subzero/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Monitor 遥测核心服务：组装采集、状态、分析、广播与助手
type Monitor struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client

	store      *store.Store
	hub        *broadcast.Hub
	sink       *sink.BestEffort
	gateway    *ingest.Gateway
	mqttSource *ingest.MQTTSource
	server     *http.Server

	cancel context.CancelFunc
}

// NewMonitor 创建遥测核心服务
func NewMonitor(cfg *config.Config, logger *zap.Logger) (*Monitor, error) {
	m := &Monitor{config: cfg, logger: logger}

	location, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Server.Timezone, err)
	}

	// 1. 外部协作方（均可缺席：持久化失败绝不影响采集路径）
	var persistence sink.Persistence
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		m.db = db
		persistence = repository.NewPostgresPersistence(db, logger)
	}
	if cfg.RedisEnabled {
		m.redisClient = redisutil.NewRedisClient(&cfg.Redis)
		if err := redisutil.Ping(context.Background(), m.redisClient); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	// 2. 设备状态存储与广播层
	thresholds := classify.Thresholds{
		TempCriticalC: cfg.Thresholds.TempCriticalC,
		TempWarningC:  cfg.Thresholds.TempWarningC,
		FrostWarning:  cfg.Thresholds.FrostWarning,
		NormalFault:   cfg.Thresholds.NormalFault,
	}
	m.store = store.NewStore(cfg.History.Capacity)
	m.hub = broadcast.NewHub(func() interface{} {
		return m.fleetState(thresholds)
	}, logger)

	// 3. 尽力而为持久化汇
	m.sink = sink.NewBestEffort(persistence, m.redisClient, sink.Streams{
		Readings: cfg.Streams.Readings,
		Alerts:   cfg.Streams.Alerts,
	}, cfg.Sink.QueueSize, logger)

	// 4. 采集网关
	m.gateway = ingest.NewGateway(m.store, m.sink, m.hub, thresholds, logger)

	if cfg.MQTTEnabled {
		source, err := ingest.NewMQTTSource(&cfg.MQTT, m.gateway, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create MQTT source: %w", err)
		}
		m.mqttSource = source
	}

	// 5. 助手编排器（只读消费设备状态存储）
	var planStore assistant.PlanStore
	if m.db != nil {
		planStore = repository.NewActionPlansRepository(m.db, logger)
	} else {
		planStore = assistant.NewMemoryPlanStore()
	}
	provider := assistant.NewOpenAIProvider(
		cfg.Assistant.BaseURL,
		cfg.Assistant.APIKey,
		cfg.Assistant.Model,
		cfg.Assistant.RequestTimeout,
		logger,
	)
	orchestrator := assistant.NewOrchestrator(provider, m.fleetSummary, cfg.Assistant.MaxToolRounds, logger)
	orchestrator.RegisterDefaultTools(planStore)

	// 6. HTTP 层
	analyticsParams := analytics.Params{
		MKT: analytics.MKTParams{
			DeltaH:        cfg.MKT.DeltaH,
			GasConst:      cfg.MKT.GasConst,
			CeilingC:      cfg.MKT.CeilingC,
			MarginalBandC: cfg.MKT.MarginalBandC,
		},
		Efficiency: analytics.EfficiencyParams{
			COPFullScore:  cfg.Efficiency.COPFullScore,
			PowerCeilingW: cfg.Efficiency.PowerCeilingW,
		},
		Night: analytics.NightWindow{
			StartHour: cfg.Night.StartHour,
			EndHour:   cfg.Night.EndHour,
			Location:  location,
		},
		Vibration: analytics.VibrationParams{
			AnomalyDeviation: cfg.Vibration.AnomalyDeviation,
			RollingWindow:    cfg.Vibration.RollingWindow,
			TrendTolerance:   cfg.Vibration.TrendTolerance,
		},
		Excursion: analytics.ExcursionParams{
			ThresholdC:    cfg.Excursion.ThresholdC,
			ModerateBandC: cfg.Excursion.ModerateBandC,
			CriticalBandC: cfg.Excursion.CriticalBandC,
		},
		NormalFault: cfg.Thresholds.NormalFault,
	}
	handler := httpapi.NewHandler(
		m.store, m.gateway, m.sink, m.hub, orchestrator, planStore,
		thresholds, analyticsParams, location, logger,
	)
	router := httpapi.NewRouter(logger)
	router.RegisterRoutes(handler)

	m.server = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	return m, nil
}

// Start 启动服务组件
func (m *Monitor) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	go m.hub.Run(ctx)
	m.sink.Start(ctx)

	if m.mqttSource != nil {
		if err := m.mqttSource.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MQTT source: %w", err)
		}
		m.logger.Info("MQTT source started", zap.String("topic", m.config.MQTT.Topic))
	}

	m.logger.Info("Starting HTTP server", zap.String("addr", m.config.Server.Addr))
	if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop 停止服务（逆序关闭）
func (m *Monitor) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}

	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	if m.mqttSource != nil {
		m.mqttSource.Stop()
	}

	m.sink.Stop()

	if m.redisClient != nil {
		if err := redisutil.Close(m.redisClient); err != nil {
			m.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if m.db != nil {
		if err := database.Close(m.db); err != nil {
			m.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	m.logger.Info("Monitor service stopped")
}

// fleetState 构建全量快照负载（initialState 推送与对账用）
func (m *Monitor) fleetState(thresholds classify.Thresholds) map[string]interface{} {
	snapshots := m.store.ListSnapshots()

	counts := map[models.DeviceStatus]int{}
	for _, snap := range snapshots {
		reading := snap.Reading
		counts[classify.Classify(&reading, thresholds).Status]++
	}

	return map[string]interface{}{
		"devices": snapshots,
		"counts": map[string]int{
			"healthy":  counts[models.StatusHealthy],
			"warning":  counts[models.StatusWarning],
			"critical": counts[models.StatusCritical],
			"unknown":  counts[models.StatusUnknown],
		},
	}
}

// fleetSummary 供助手系统上下文使用的舰队状态摘要
func (m *Monitor) fleetSummary() string {
	snapshots := m.store.ListSnapshots()
	if len(snapshots) == 0 {
		return "No devices reporting yet."
	}

	ids := make([]string, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		snap := snapshots[id]
		fmt.Fprintf(&b, "- %s (%s): %s", id, snap.Reading.SensorKind, snap.Status)
		if temp, ok := snap.Reading.Float("temp_cabinet"); ok {
			fmt.Fprintf(&b, ", cabinet %.1f°C", temp)
		}
		b.WriteString("\n")
	}
	return b.String()
}
