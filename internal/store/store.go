package store

import (
	"sync"
	"time"

	"subzero/internal/models"
)

// Store 设备状态存储：每设备一个固定容量环形缓冲 + 最新快照表
// 首次写入即隐式注册设备；设备存活期间不删除（进程生命周期内有效）
type Store struct {
	mu       sync.RWMutex
	capacity int
	devices  map[string]*deviceState
}

type deviceState struct {
	history  *ringBuffer
	snapshot models.DeviceSnapshot
}

// NewStore 创建设备状态存储，capacity 为每设备历史容量
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{
		capacity: capacity,
		devices:  make(map[string]*deviceState),
	}
}

// Upsert 写入一条读数并刷新快照，返回最新快照
// 环形缓冲的淘汰不可安全交错，所以写入在存储级互斥锁内串行化
func (s *Store) Upsert(r models.Reading, status models.DeviceStatus) models.DeviceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.devices[r.DeviceID]
	if !ok {
		state = &deviceState{history: newRingBuffer(s.capacity)}
		s.devices[r.DeviceID] = state
	}

	state.history.push(r)
	state.snapshot = models.DeviceSnapshot{
		DeviceID:  r.DeviceID,
		Reading:   r,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	return state.snapshot
}

// GetSnapshot 获取设备最新快照
func (s *Store) GetSnapshot(deviceID string) (models.DeviceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.devices[deviceID]
	if !ok {
		return models.DeviceSnapshot{}, false
	}
	return state.snapshot, true
}

// GetHistory 获取设备历史读数（时间顺序副本，调用方可安全持有）
func (s *Store) GetHistory(deviceID string) []models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.devices[deviceID]
	if !ok {
		return nil
	}
	return state.history.ordered()
}

// ListSnapshots 获取全部设备快照（用于舰队视图）
func (s *Store) ListSnapshots() map[string]models.DeviceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]models.DeviceSnapshot, len(s.devices))
	for id, state := range s.devices {
		result[id] = state.snapshot
	}
	return result
}

// Len 已知设备数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}
