package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHubClient() *Client {
	return &Client{send: make(chan Event, sendBufferSize)}
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// 新订阅方先收到全量 initialState，之后才是增量
func TestHubInitialStateThenUpdates(t *testing.T) {
	h := NewHub(func() interface{} { return "snapshot" }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := newHubClient()
	require.True(t, h.enroll(c))

	first := recvEvent(t, c)
	assert.Equal(t, EventInitialState, first.Type)
	assert.Equal(t, "snapshot", first.Payload)

	h.Broadcast(EventDeviceUpdate, "update")
	second := recvEvent(t, c)
	assert.Equal(t, EventDeviceUpdate, second.Type)

	h.drop(c)
}

// 分发循环退出后，迟到的注册被拒绝、注销不阻塞（不泄漏 goroutine）
func TestHubShutdownDoesNotBlockClients(t *testing.T) {
	h := NewHub(func() interface{} { return nil }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(runDone)
	}()

	c := newHubClient()
	require.True(t, h.enroll(c))
	recvEvent(t, c)

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	// 已注册连接的注销立即返回
	dropped := make(chan struct{})
	go func() {
		h.drop(c)
		close(dropped)
	}()
	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("drop blocked after hub shutdown")
	}

	// 迟到的注册被拒绝而不是挂起
	assert.False(t, h.enroll(newHubClient()))
}

// 慢消费者被丢弃，不拖垮其他订阅方
func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub(func() interface{} { return nil }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	slow := &Client{send: make(chan Event)} // 无缓冲且无人读
	fast := newHubClient()
	require.True(t, h.enroll(slow))
	require.True(t, h.enroll(fast))
	recvEvent(t, fast)

	h.Broadcast(EventFleetUpdate, "update")

	// 快消费者照常收到事件
	ev := recvEvent(t, fast)
	assert.Equal(t, EventFleetUpdate, ev.Type)

	// 慢消费者的 send 通道被关闭（连接被丢弃）
	select {
	case _, open := <-slow.send:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("slow subscriber was not dropped")
	}
}
