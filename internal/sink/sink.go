package sink

import (
	"context"
	"sync"
	"sync/atomic"

	"subzero/internal/models"
	redisutil "subzero/internal/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Persistence 外部持久化协作方
// 核心只依赖这三个操作，并容忍其全部失败（失败不得影响采集路径）
type Persistence interface {
	EnsureDeviceRegistered(deviceID string, archetype string) error
	StoreReading(reading *models.Reading) (int64, error)
	CreateAlert(alert *models.Alert) error
}

// Streams 下游 Redis Streams 流名
type Streams struct {
	Readings string
	Alerts   string
}

type envelope struct {
	reading *models.Reading
	alerts  []models.Alert
}

// BestEffort 尽力而为持久化汇：有界队列 + 后台清空 worker
// 队列满时丢弃并计数（背压显式可见）；持久化失败仅记日志，绝不回传采集方
type BestEffort struct {
	persistence Persistence
	redisClient *redis.Client
	streams     Streams
	logger      *zap.Logger

	queue   chan envelope
	dropped atomic.Int64

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewBestEffort 创建尽力而为持久化汇
// persistence 与 redisClient 均可为 nil（纯内存模式）
func NewBestEffort(persistence Persistence, redisClient *redis.Client, streams Streams, queueSize int, logger *zap.Logger) *BestEffort {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &BestEffort{
		persistence: persistence,
		redisClient: redisClient,
		streams:     streams,
		logger:      logger,
		queue:       make(chan envelope, queueSize),
		stopped:     make(chan struct{}),
	}
}

// Start 启动后台清空 worker
func (s *BestEffort) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopped:
				return
			case env := <-s.queue:
				s.drain(ctx, env)
			}
		}
	}()
}

// Stop 停止 worker（队列中未清空的条目被放弃）
func (s *BestEffort) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
	s.wg.Wait()
}

// Enqueue 入队一条读数及其派生告警（非阻塞，队列满时丢弃）
func (s *BestEffort) Enqueue(reading *models.Reading, alerts []models.Alert) {
	select {
	case s.queue <- envelope{reading: reading, alerts: alerts}:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("Persistence queue full, dropping entry",
			zap.String("device_id", reading.DeviceID),
			zap.Int64("total_dropped", n),
		)
	}
}

// Dropped 因队列满被丢弃的条目总数
func (s *BestEffort) Dropped() int64 {
	return s.dropped.Load()
}

func (s *BestEffort) drain(ctx context.Context, env envelope) {
	if s.persistence != nil {
		if err := s.persistence.EnsureDeviceRegistered(env.reading.DeviceID, string(env.reading.SensorKind)); err != nil {
			s.logger.Error("Failed to register device",
				zap.String("device_id", env.reading.DeviceID),
				zap.Error(err),
			)
		}
		if _, err := s.persistence.StoreReading(env.reading); err != nil {
			s.logger.Error("Failed to store reading",
				zap.String("device_id", env.reading.DeviceID),
				zap.Error(err),
			)
		}
		for i := range env.alerts {
			if err := s.persistence.CreateAlert(&env.alerts[i]); err != nil {
				s.logger.Error("Failed to store alert",
					zap.String("device_id", env.alerts[i].DeviceID),
					zap.String("alert_type", env.alerts[i].Type),
					zap.Error(err),
				)
			}
		}
	}

	if s.redisClient != nil {
		if _, err := redisutil.PublishJSONToStream(ctx, s.redisClient, s.streams.Readings, env.reading); err != nil {
			s.logger.Error("Failed to publish reading to stream",
				zap.String("stream", s.streams.Readings),
				zap.Error(err),
			)
		}
		for i := range env.alerts {
			if _, err := redisutil.PublishJSONToStream(ctx, s.redisClient, s.streams.Alerts, &env.alerts[i]); err != nil {
				s.logger.Error("Failed to publish alert to stream",
					zap.String("stream", s.streams.Alerts),
					zap.Error(err),
				)
			}
		}
	}
}
