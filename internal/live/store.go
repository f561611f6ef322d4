// Package live holds the most recent annotated frame and its classification,
// shared between the acquisition loop (single writer) and HTTP readers.
package live

import (
	"errors"
	"sync/atomic"
	"time"

	"fall-monitor/internal/posture"
)

// ErrNoFrame is returned by on-demand operations before the first frame has
// been published.
var ErrNoFrame = errors.New("no frame available")

// Record is one published snapshot. A Record is immutable once stored; the
// image and status always belong to the same frame.
type Record struct {
	Seq        uint64
	Image      []byte // annotated JPEG
	Status     posture.Status
	CapturedAt time.Time
}

// Stale reports whether the record is older than maxAge at now. A nil record
// is always stale.
func (r *Record) Stale(now time.Time, maxAge time.Duration) bool {
	if r == nil {
		return true
	}
	return maxAge > 0 && now.Sub(r.CapturedAt) > maxAge
}

// Store is the contract for publishing and reading the live record.
// Publish is called by one goroutine; Load is safe from any number.
type Store interface {
	Publish(image []byte, status posture.Status, capturedAt time.Time) *Record
	Load() *Record
}

// MemoryStore is a lock-free Store backed by an atomic pointer. Each publish
// allocates a new Record so readers never observe a torn pair.
type MemoryStore struct {
	rec atomic.Pointer[Record]
	seq atomic.Uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Publish implements Store.Publish. The image is copied so the caller may
// reuse its buffer.
func (s *MemoryStore) Publish(image []byte, status posture.Status, capturedAt time.Time) *Record {
	img := make([]byte, len(image))
	copy(img, image)
	rec := &Record{
		Seq:        s.seq.Add(1),
		Image:      img,
		Status:     status,
		CapturedAt: capturedAt,
	}
	s.rec.Store(rec)
	return rec
}

// Load implements Store.Load. It returns nil before the first Publish.
func (s *MemoryStore) Load() *Record {
	return s.rec.Load()
}

// Image returns the latest image or ErrNoFrame.
func Image(s Store) ([]byte, error) {
	rec := s.Load()
	if rec == nil || len(rec.Image) == 0 {
		return nil, ErrNoFrame
	}
	return rec.Image, nil
}
