package repository

import (
	"database/sql"
	"fmt"

	"subzero/internal/models"

	"go.uber.org/zap"
)

// AlertsRepository 告警仓库
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建告警仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{db: db, logger: logger}
}

// Insert 插入告警记录
func (r *AlertsRepository) Insert(alert *models.Alert) error {
	query := `
		INSERT INTO alerts (
			id,
			device_id,
			alert_type,
			severity,
			message,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(
		query,
		alert.ID,
		alert.DeviceID,
		alert.Type,
		string(alert.Severity),
		alert.Message,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}
