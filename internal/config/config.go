package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Config 遥测核心服务配置
type Config struct {
	Server struct {
		Addr     string
		Timezone string // IANA 时区，报表月份窗口与夜间窗口按本地时间解析
	}

	History struct {
		Capacity int // 每设备环形缓冲容量
	}

	// 告警阈值（领域默认值，可通过环境变量覆盖）
	Thresholds struct {
		TempCriticalC float64 // 柜温高于该值 → critical
		TempWarningC  float64 // 柜温在 (TempWarningC, TempCriticalC] → warning
		FrostWarning  float64 // 结霜指标高于该值 → warning
		NormalFault   string  // 视为正常的故障码
	}

	// MKT 计算参数（Arrhenius 模型）
	MKT struct {
		DeltaH        float64 // 活化能 J/mol
		GasConst      float64 // 气体常数 J/(mol·K)
		CeilingC      float64 // 合规上限（冷冻存储默认 -15°C）
		MarginalBandC float64 // 超上限该幅度以内判为 MARGINAL
	}

	// 效率评分基准
	Efficiency struct {
		COPFullScore  float64 // COP 达到该值记满分
		PowerCeilingW float64 // 功率达到该值记零分
	}

	// 夜间稳定性窗口（本地时钟，允许跨午夜）
	Night struct {
		StartHour int
		EndHour   int
	}

	// 振动健康指数参数
	Vibration struct {
		AnomalyDeviation float64 // 偏离滚动均值的异常判定倍数（单位：标准差）
		RollingWindow    int     // 滚动均值窗口大小
		TrendTolerance   float64 // 趋势判定的指数变化容差
	}

	// 温度偏移检测参数
	Excursion struct {
		ThresholdC    float64 // 超过该值才算偏移（严格大于）
		ModerateBandC float64 // 峰值超出阈值该幅度以上 → moderate
		CriticalBandC float64 // 峰值超出阈值该幅度以上 → critical
	}

	// 尽力而为持久化队列
	Sink struct {
		QueueSize int
	}

	Database  DatabaseConfig
	DBEnabled bool

	Redis        RedisConfig
	RedisEnabled bool
	Streams      struct {
		Readings string
		Alerts   string
	}

	MQTT        MQTTConfig
	MQTTEnabled bool

	// 助手（LLM 工具调用编排器）
	Assistant struct {
		BaseURL        string
		APIKey         string
		Model          string
		MaxToolRounds  int // 每轮操作员消息允许的最大 模型↔工具 往返次数
		RequestTimeout time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server.Addr = getEnv("SERVER_ADDR", ":4000")
	cfg.Server.Timezone = getEnv("SERVER_TIMEZONE", "Europe/London")

	cfg.History.Capacity = getEnvInt("HISTORY_CAPACITY", 100)

	cfg.Thresholds.TempCriticalC = getEnvFloat("THRESHOLD_TEMP_CRITICAL", -5.0)
	cfg.Thresholds.TempWarningC = getEnvFloat("THRESHOLD_TEMP_WARNING", -10.0)
	cfg.Thresholds.FrostWarning = getEnvFloat("THRESHOLD_FROST_WARNING", 0.5)
	cfg.Thresholds.NormalFault = getEnv("THRESHOLD_NORMAL_FAULT", "NORMAL")

	cfg.MKT.DeltaH = getEnvFloat("MKT_DELTA_H", 83144.0)
	cfg.MKT.GasConst = getEnvFloat("MKT_GAS_CONST", 8.3144)
	cfg.MKT.CeilingC = getEnvFloat("MKT_CEILING", -15.0)
	cfg.MKT.MarginalBandC = getEnvFloat("MKT_MARGINAL_BAND", 2.0)

	cfg.Efficiency.COPFullScore = getEnvFloat("EFFICIENCY_COP_FULL_SCORE", 3.0)
	cfg.Efficiency.PowerCeilingW = getEnvFloat("EFFICIENCY_POWER_CEILING", 1000.0)

	cfg.Night.StartHour = getEnvInt("NIGHT_START_HOUR", 19)
	cfg.Night.EndHour = getEnvInt("NIGHT_END_HOUR", 8)

	cfg.Vibration.AnomalyDeviation = getEnvFloat("VIBRATION_ANOMALY_DEVIATION", 2.0)
	cfg.Vibration.RollingWindow = getEnvInt("VIBRATION_ROLLING_WINDOW", 10)
	cfg.Vibration.TrendTolerance = getEnvFloat("VIBRATION_TREND_TOLERANCE", 5.0)

	cfg.Excursion.ThresholdC = getEnvFloat("EXCURSION_THRESHOLD", -15.0)
	cfg.Excursion.ModerateBandC = getEnvFloat("EXCURSION_MODERATE_BAND", 3.0)
	cfg.Excursion.CriticalBandC = getEnvFloat("EXCURSION_CRITICAL_BAND", 8.0)

	cfg.Sink.QueueSize = getEnvInt("SINK_QUEUE_SIZE", 256)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "subzero")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)
	cfg.DBEnabled = getEnvBool("DB_ENABLED", false)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.RedisEnabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Streams.Readings = getEnv("STREAM_READINGS", "subzero:readings:stream")
	cfg.Streams.Alerts = getEnv("STREAM_ALERTS", "subzero:alerts:stream")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "subzero-gateway")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "subzero/telemetry/#")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTTEnabled = getEnvBool("MQTT_ENABLED", false)

	cfg.Assistant.BaseURL = getEnv("ASSISTANT_BASE_URL", "https://api.openai.com/v1")
	cfg.Assistant.APIKey = getEnv("ASSISTANT_API_KEY", "")
	cfg.Assistant.Model = getEnv("ASSISTANT_MODEL", "gpt-4o-mini")
	cfg.Assistant.MaxToolRounds = getEnvInt("ASSISTANT_MAX_TOOL_ROUNDS", 8)
	cfg.Assistant.RequestTimeout = time.Duration(getEnvInt("ASSISTANT_TIMEOUT_SECONDS", 60)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
