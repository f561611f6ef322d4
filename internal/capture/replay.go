package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// Replay plays back a file of recorded wire messages. Interval paces the
// frames; zero reads as fast as the caller asks.
type Replay struct {
	path     string
	interval time.Duration
	now      func() time.Time

	f      *os.File
	dec    *Decoder
	closed atomic.Bool
}

// NewReplay returns a device reading path.
func NewReplay(path string, interval time.Duration) *Replay {
	return &Replay{path: path, interval: interval, now: time.Now}
}

// Open opens the recording.
func (r *Replay) Open(context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("capture: open replay: %w", err)
	}
	r.f = f
	r.dec = NewDecoder(bufio.NewReader(f))
	return nil
}

// ReadFrame returns the next recorded frame, or io.EOF at the end.
func (r *Replay) ReadFrame(ctx context.Context) (Frame, error) {
	if r.closed.Load() || r.dec == nil {
		return Frame{}, ErrClosed
	}
	if r.interval > 0 {
		t := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return Frame{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	m, err := r.dec.Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("capture: replay %s: %w", r.path, err)
	}
	return frameFrom(m, r.now())
}

// Close closes the recording.
func (r *Replay) Close() error {
	if !r.closed.CompareAndSwap(false, true) || r.f == nil {
		return nil
	}
	return r.f.Close()
}
