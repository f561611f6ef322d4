// Package monitor runs the acquisition loop: read a frame, classify the
// posture, publish the annotated frame and hand alert intents to the
// dispatcher.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fall-monitor/internal/alert"
	"fall-monitor/internal/capture"
	"fall-monitor/internal/live"
	"fall-monitor/internal/platform/metrics"
	"fall-monitor/internal/posture"
	"fall-monitor/internal/timeutil"
)

// Dispatcher queues notifications without blocking.
type Dispatcher interface {
	TriggerFallAlert(image []byte, angle float64, severity posture.Severity) (uuid.UUID, error)
	SendScheduledReport(image []byte) (uuid.UUID, error)
}

// Annotator draws the pose overlay onto a frame.
type Annotator interface {
	Annotate(frame []byte, set posture.LandmarkSet, m *posture.Measurement, st posture.Status) ([]byte, error)
}

// Config tunes the loop.
type Config struct {
	Thresholds     posture.Thresholds
	ReportInterval time.Duration // 0 disables scheduled reports
}

// Loop is the single writer of the posture state and the live store.
type Loop struct {
	cfg      Config
	dev      capture.Device
	store    live.Store
	disp     Dispatcher
	ann      Annotator
	counters *alert.Counters
	clock    timeutil.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics

	machine    *posture.Machine
	baseline   *posture.BaselineTracker
	lastReport time.Time
}

// New returns a loop. Annotator and metrics may be nil.
func New(cfg Config, dev capture.Device, store live.Store, disp Dispatcher, ann Annotator,
	counters *alert.Counters, clock timeutil.Clock, log *slog.Logger, m *metrics.Metrics) *Loop {
	return &Loop{
		cfg:        cfg,
		dev:        dev,
		store:      store,
		disp:       disp,
		ann:        ann,
		counters:   counters,
		clock:      clock,
		log:        log,
		metrics:    m,
		machine:    posture.NewMachine(cfg.Thresholds),
		baseline:   posture.NewBaselineTracker(),
		lastReport: clock.Now(),
	}
}

// Run opens the device and processes frames until ctx is cancelled, the
// stream ends, or capture fails. Only a capture failure is returned as an
// error; the last published record stays available either way.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.dev.Open(ctx); err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer l.dev.Close()

	l.lastReport = l.clock.Now()
	l.log.Info("acquisition loop started",
		slog.Float64("angle_threshold", l.cfg.Thresholds.Angle),
		slog.Int("frame_threshold", l.cfg.Thresholds.Frames),
		slog.Duration("cooldown", l.cfg.Thresholds.Cooldown),
		slog.Duration("report_interval", l.cfg.ReportInterval))

	for {
		f, err := l.dev.ReadFrame(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				l.log.Info("acquisition loop stopped")
				return nil
			case errors.Is(err, io.EOF):
				l.log.Info("capture stream ended")
				return nil
			default:
				return fmt.Errorf("read frame: %w", err)
			}
		}
		l.Step(f)
	}
}

// Step processes one frame and returns the machine's decision.
func (l *Loop) Step(f capture.Frame) posture.Decision {
	now := l.clock.Now()

	m, measured := posture.Measure(f.Landmarks)
	var d posture.Decision
	if measured {
		ratio := l.baseline.Add(m.HeadDiff)
		d = l.machine.Observe(posture.Sample{Angle: m.Angle, HeadRatio: ratio}, now)
	} else {
		d = l.machine.Miss()
	}

	var mp *posture.Measurement
	if measured {
		mp = &m
	}
	capturedAt := f.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}
	rec := l.store.Publish(l.annotate(f, mp, d.Status), d.Status, capturedAt)

	if l.metrics != nil {
		l.metrics.ObserveFrame(measured, int(d.Status.Classification), d.Status.Streak, d.Status.Angle)
		if d.Suppressed {
			l.metrics.IncAlertsSuppressed()
		}
	}

	if d.Alert != nil {
		id, err := l.disp.TriggerFallAlert(rec.Image, d.Alert.Angle, d.Alert.Severity)
		if err != nil {
			// Not counted, and the next Danger frame retries.
			l.machine.RevokeAlert()
			l.log.Error("fall alert not queued",
				slog.Float64("angle", d.Alert.Angle),
				slog.String("error", err.Error()))
		} else {
			l.counters.RecordAlert(now)
			l.log.Warn("fall detected",
				slog.String("alert_id", id.String()),
				slog.Float64("angle", d.Alert.Angle),
				slog.String("severity", d.Alert.Severity.String()),
				slog.Int("streak", d.Status.Streak),
				slog.Int64("alert_count", l.counters.AlertCount()))
		}
	}

	if l.cfg.ReportInterval > 0 && now.Sub(l.lastReport) > l.cfg.ReportInterval {
		l.lastReport = now
		l.counters.RecordReport(now)
		if _, err := l.disp.SendScheduledReport(rec.Image); err != nil {
			l.log.Error("scheduled report not queued", slog.String("error", err.Error()))
		} else {
			l.log.Info("scheduled report queued")
		}
	}
	return d
}

// annotate returns the overlaid frame, or the raw frame if drawing fails.
func (l *Loop) annotate(f capture.Frame, m *posture.Measurement, st posture.Status) []byte {
	if l.ann == nil || len(f.Image) == 0 {
		return f.Image
	}
	out, err := l.ann.Annotate(f.Image, f.Landmarks, m, st)
	if err != nil {
		l.log.Debug("annotation failed, publishing raw frame", slog.Uint64("seq", f.Seq), slog.String("error", err.Error()))
		return f.Image
	}
	return out
}
