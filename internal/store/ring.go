package store

import "subzero/internal/models"

// ringBuffer 固定容量环形缓冲，满后覆盖最旧条目（O(1) 淘汰）
type ringBuffer struct {
	buf   []models.Reading
	head  int // 下一个写入位置
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]models.Reading, capacity)}
}

func (rb *ringBuffer) push(r models.Reading) {
	rb.buf[rb.head] = r
	rb.head = (rb.head + 1) % len(rb.buf)
	if rb.count < len(rb.buf) {
		rb.count++
	}
}

// ordered 按插入顺序（即时间顺序）返回副本
func (rb *ringBuffer) ordered() []models.Reading {
	result := make([]models.Reading, 0, rb.count)
	start := rb.head - rb.count
	if start < 0 {
		start += len(rb.buf)
	}
	for i := 0; i < rb.count; i++ {
		result = append(result, rb.buf[(start+i)%len(rb.buf)])
	}
	return result
}
