package repository

import (
	"database/sql"

	"subzero/internal/models"

	"go.uber.org/zap"
)

// PostgresPersistence 组合设备/读数/告警仓库，实现 sink.Persistence
type PostgresPersistence struct {
	devices  *DevicesRepository
	readings *ReadingsRepository
	alerts   *AlertsRepository
}

// NewPostgresPersistence 创建 Postgres 持久化协作方
func NewPostgresPersistence(db *sql.DB, logger *zap.Logger) *PostgresPersistence {
	return &PostgresPersistence{
		devices:  NewDevicesRepository(db, logger),
		readings: NewReadingsRepository(db, logger),
		alerts:   NewAlertsRepository(db, logger),
	}
}

// EnsureDeviceRegistered 幂等注册设备
func (p *PostgresPersistence) EnsureDeviceRegistered(deviceID string, archetype string) error {
	return p.devices.Ensure(deviceID, archetype)
}

// StoreReading 持久化一条读数
func (p *PostgresPersistence) StoreReading(reading *models.Reading) (int64, error) {
	return p.readings.Insert(reading)
}

// CreateAlert 持久化一条告警
func (p *PostgresPersistence) CreateAlert(alert *models.Alert) error {
	return p.alerts.Insert(alert)
}
