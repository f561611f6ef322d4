package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/hybridgroup/mjpeg"

	"fall-monitor/internal/live"
)

// Pump copies the live record into the MJPEG stream and pushes status
// snapshots to websocket clients. It only reads the store.
type Pump struct {
	store       live.Store
	stream      *mjpeg.Stream
	hub         *Hub
	snapshot    func() StatusResponse
	frameEvery  time.Duration
	statusEvery time.Duration
	log         *slog.Logger

	lastSeq uint64
}

// NewPump returns a pump. The stream or hub may be nil to skip that output.
func NewPump(store live.Store, stream *mjpeg.Stream, hub *Hub, snapshot func() StatusResponse,
	frameEvery, statusEvery time.Duration, log *slog.Logger) *Pump {
	if frameEvery <= 0 {
		frameEvery = 50 * time.Millisecond
	}
	if statusEvery <= 0 {
		statusEvery = time.Second
	}
	return &Pump{
		store:       store,
		stream:      stream,
		hub:         hub,
		snapshot:    snapshot,
		frameEvery:  frameEvery,
		statusEvery: statusEvery,
		log:         log,
	}
}

// Run pumps until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) error {
	frames := time.NewTicker(p.frameEvery)
	defer frames.Stop()
	status := time.NewTicker(p.statusEvery)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-frames.C:
			p.pushFrame()
		case <-status.C:
			p.pushStatus()
		}
	}
}

// pushFrame forwards the record if it changed since the last call and
// reports whether it did.
func (p *Pump) pushFrame() bool {
	rec := p.store.Load()
	if rec == nil || rec.Seq == p.lastSeq || len(rec.Image) == 0 {
		return false
	}
	p.lastSeq = rec.Seq
	if p.stream != nil {
		p.stream.UpdateJPEG(rec.Image)
	}
	return true
}

func (p *Pump) pushStatus() {
	if p.hub == nil || p.snapshot == nil || p.hub.ClientCount() == 0 {
		return
	}
	p.hub.Broadcast("status", p.snapshot())
}
