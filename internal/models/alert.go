package models

import "time"

// AlertSeverity 告警级别
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// 告警类型
const (
	AlertTempCritical = "temperature_critical"
	AlertTempWarning  = "temperature_warning"
	AlertDoorOpen     = "door_open"
	AlertFault        = "fault"
	AlertFrost        = "frost_buildup"
)

// Alert 告警（派生数据，不进入热路径权威状态，异步持久化）
type Alert struct {
	ID        string        `json:"id"`
	DeviceID  string        `json:"device_id"`
	Type      string        `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Reading   *Reading      `json:"reading,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
