package models

import "time"

// DeviceStatus 设备健康状态
type DeviceStatus string

const (
	StatusHealthy  DeviceStatus = "healthy"
	StatusWarning  DeviceStatus = "warning"
	StatusCritical DeviceStatus = "critical"
	StatusUnknown  DeviceStatus = "unknown"
)

// Archetype 设备类型（由 sensor_type 判别字段或字段启发式推断）
type Archetype string

const (
	ArchetypeFreezer     Archetype = "freezer"
	ArchetypeEnvironment Archetype = "environment"
	ArchetypeVehicle     Archetype = "vehicle"
	ArchetypeWearable    Archetype = "wearable"
	ArchetypeUnknown     Archetype = "unknown"
)

// Reading 标准化后的遥测读数（创建后不可变）
type Reading struct {
	DeviceID   string                 `json:"device_id"`
	Timestamp  time.Time              `json:"timestamp"`
	SensorKind Archetype              `json:"sensor_kind"`
	Fields     map[string]interface{} `json:"fields"`
}

// Float 读取数值字段（JSON 解码后数值统一为 float64，此处兼容整型）
func (r *Reading) Float(key string) (float64, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}

// Bool 读取布尔字段（兼容 0/1 数值表示）
func (r *Reading) Bool(key string) (bool, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return false, false
	}
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	}
	return false, false
}

// String 读取字符串字段
func (r *Reading) String(key string) (string, bool) {
	if v, ok := r.Fields[key]; ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// DeviceSnapshot 设备最新快照（每次新读数覆盖，设备存活期间不删除）
type DeviceSnapshot struct {
	DeviceID  string       `json:"device_id"`
	Reading   Reading      `json:"reading"`
	Status    DeviceStatus `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
}
