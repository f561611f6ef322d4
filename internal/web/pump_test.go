package web

import (
	"context"
	"testing"
	"time"

	"github.com/hybridgroup/mjpeg"
	"github.com/stretchr/testify/assert"

	"fall-monitor/internal/live"
	"fall-monitor/internal/platform/logger"
	"fall-monitor/internal/posture"
)

func TestPump_pushFrame_only_on_new_record(t *testing.T) {
	store := live.NewMemoryStore()
	p := NewPump(store, mjpeg.NewStream(), nil, nil, 0, 0, logger.Discard())

	assert.False(t, p.pushFrame(), "nothing published yet")

	store.Publish([]byte("jpeg-1"), posture.Status{}, time.Now())
	assert.True(t, p.pushFrame())
	assert.False(t, p.pushFrame(), "same record twice")

	store.Publish([]byte("jpeg-2"), posture.Status{}, time.Now())
	assert.True(t, p.pushFrame())
}

func TestPump_Run_stops_on_cancel(t *testing.T) {
	p := NewPump(live.NewMemoryStore(), nil, nil, nil, time.Millisecond, time.Millisecond, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
}

func TestHub_Broadcast_never_blocks(t *testing.T) {
	h := NewHub(logger.Discard())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Broadcast("status", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}

func TestHub_stopped_rejects_clients(t *testing.T) {
	h := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, h.Run(ctx))
	assert.False(t, h.add(&Client{hub: h, send: make(chan []byte, 1)}))
	h.remove(&Client{hub: h})
	assert.Zero(t, h.ClientCount())
}
