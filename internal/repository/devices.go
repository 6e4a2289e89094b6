package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// DevicesRepository 设备注册表仓库
type DevicesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDevicesRepository 创建设备注册表仓库
func NewDevicesRepository(db *sql.DB, logger *zap.Logger) *DevicesRepository {
	return &DevicesRepository{db: db, logger: logger}
}

// Ensure 确保设备已注册（幂等，首条读数触发，并发安全由 ON CONFLICT 保证）
func (r *DevicesRepository) Ensure(deviceID string, archetype string) error {
	query := `
		INSERT INTO devices (device_id, archetype, first_seen)
		VALUES ($1, $2, NOW())
		ON CONFLICT (device_id) DO NOTHING
	`

	if _, err := r.db.Exec(query, deviceID, archetype); err != nil {
		return fmt.Errorf("failed to ensure device %s: %w", deviceID, err)
	}
	return nil
}
