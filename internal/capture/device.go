// Package capture delivers camera frames with their pose landmarks. Camera
// access and pose estimation run in a sidecar process that streams
// length-prefixed msgpack messages; a recorded stream can be replayed from a
// file instead.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fall-monitor/internal/posture"
)

// ErrClosed is returned by ReadFrame after Close.
var ErrClosed = errors.New("capture device closed")

// Frame is one captured image and the landmarks detected in it.
type Frame struct {
	Seq        uint64
	Image      []byte // JPEG
	Landmarks  posture.LandmarkSet
	CapturedAt time.Time
}

// Device is a source of frames. ReadFrame returns io.EOF when the stream
// ends; any other error is a capture failure.
type Device interface {
	Open(ctx context.Context) error
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// ReadError is a camera failure reported by the frame source itself.
type ReadError struct {
	Seq    uint64
	Reason string
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("camera read failed at frame %d: %s", e.Seq, e.Reason)
}

func frameFrom(m Message, at time.Time) (Frame, error) {
	if m.Error != "" {
		return Frame{}, &ReadError{Seq: m.Seq, Reason: m.Error}
	}
	return Frame{Seq: m.Seq, Image: m.Image, Landmarks: m.Landmarks, CapturedAt: at}, nil
}
