package ingest

import (
	"context"

	"subzero/internal/config"
	"subzero/internal/mqtt"

	"go.uber.org/zap"
)

// MQTTSource MQTT 采集源：订阅设备遥测主题，逐条送入网关
// 与 HTTP 端点共用同一条标准化路径
type MQTTSource struct {
	client  *mqtt.Client
	config  *config.MQTTConfig
	gateway *Gateway
	logger  *zap.Logger
}

// NewMQTTSource 创建 MQTT 采集源
func NewMQTTSource(cfg *config.MQTTConfig, gateway *Gateway, logger *zap.Logger) (*MQTTSource, error) {
	client, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &MQTTSource{
		client:  client,
		config:  cfg,
		gateway: gateway,
		logger:  logger,
	}, nil
}

// Start 订阅遥测主题
func (s *MQTTSource) Start(ctx context.Context) error {
	return s.client.Subscribe(s.config.Topic, s.config.QoS, func(topic string, payload []byte) error {
		// MQTT 下同样是 at-least-once：网关总是确认，无法识别的消息记录后丢弃
		s.gateway.Ingest(ctx, payload, "mqtt")
		return nil
	})
}

// Stop 断开 MQTT 连接
func (s *MQTTSource) Stop() {
	s.client.Close()
}
