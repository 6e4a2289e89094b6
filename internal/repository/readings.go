package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"subzero/internal/models"

	"go.uber.org/zap"
)

// ReadingsRepository 遥测读数时序仓库
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建遥测读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{db: db, logger: logger}
}

// Insert 插入标准化读数到 telemetry_readings 表，返回自增 id
func (r *ReadingsRepository) Insert(reading *models.Reading) (int64, error) {
	fields, err := json.Marshal(reading.Fields)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal reading fields: %w", err)
	}

	query := `
		INSERT INTO telemetry_readings (
			device_id,
			timestamp,
			sensor_kind,
			fields
		) VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRow(
		query,
		reading.DeviceID,
		reading.Timestamp,
		string(reading.SensorKind),
		fields,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to insert telemetry reading: %w", err)
	}

	return id, nil
}
