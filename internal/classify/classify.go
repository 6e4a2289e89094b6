package classify

import (
	"fmt"

	"subzero/internal/models"
)

// Thresholds 分类阈值表（领域默认值来自配置，不在此硬编码）
type Thresholds struct {
	TempCriticalC float64 // 柜温高于该值 → critical
	TempWarningC  float64 // 柜温在 (TempWarningC, TempCriticalC] → warning
	FrostWarning  float64 // 结霜指标高于该值 → warning
	NormalFault   string  // 视为正常的故障码
}

// Result 分类结果
type Result struct {
	Status models.DeviceStatus
	Alerts []models.Alert
}

// Classify 将单条读数映射为健康状态与告警列表（纯函数，无 I/O）
// 状态推导：存在 critical 条件 → critical；否则存在 warning 条件 → warning；
// 否则 → healthy；没有任何可分类字段 → unknown
func Classify(r *models.Reading, th Thresholds) Result {
	var alerts []models.Alert
	classifiable := false

	if temp, ok := r.Float("temp_cabinet"); ok {
		classifiable = true
		if temp > th.TempCriticalC {
			alerts = append(alerts, newAlert(r, models.AlertTempCritical, models.SeverityCritical,
				fmt.Sprintf("cabinet temperature %.1f°C above critical threshold %.1f°C", temp, th.TempCriticalC)))
		} else if temp > th.TempWarningC {
			alerts = append(alerts, newAlert(r, models.AlertTempWarning, models.SeverityWarning,
				fmt.Sprintf("cabinet temperature %.1f°C above warning threshold %.1f°C", temp, th.TempWarningC)))
		}
	}

	if open, ok := r.Bool("door_open"); ok {
		classifiable = true
		if open {
			alerts = append(alerts, newAlert(r, models.AlertDoorOpen, models.SeverityWarning,
				"door open"))
		}
	}

	if fault, ok := r.String("fault"); ok {
		classifiable = true
		if fault != "" && fault != th.NormalFault {
			alerts = append(alerts, newAlert(r, models.AlertFault, models.SeverityCritical,
				fmt.Sprintf("fault code %s", fault)))
		}
	}

	if frost, ok := r.Float("frost_level"); ok {
		classifiable = true
		if frost > th.FrostWarning {
			alerts = append(alerts, newAlert(r, models.AlertFrost, models.SeverityWarning,
				fmt.Sprintf("frost level %.2f above %.2f", frost, th.FrostWarning)))
		}
	}

	if !classifiable {
		return Result{Status: models.StatusUnknown}
	}

	return Result{Status: deriveStatus(alerts), Alerts: alerts}
}

// HasAlert 是否存在告警（驱动全舰队告警列表，每次快照更新重新计算，不缓存）
func HasAlert(r *models.Reading, th Thresholds) bool {
	return Classify(r, th).Status != models.StatusHealthy
}

func deriveStatus(alerts []models.Alert) models.DeviceStatus {
	status := models.StatusHealthy
	for _, a := range alerts {
		if a.Severity == models.SeverityCritical {
			return models.StatusCritical
		}
		status = models.StatusWarning
	}
	return status
}

func newAlert(r *models.Reading, alertType string, severity models.AlertSeverity, message string) models.Alert {
	return models.Alert{
		DeviceID:  r.DeviceID,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Reading:   r,
		CreatedAt: r.Timestamp,
	}
}
