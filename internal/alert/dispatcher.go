// Package alert turns alert intents into caregiver notifications. Intents are
// queued without blocking the caller and delivered by fixed worker pools;
// collaborator failures degrade the message but never propagate.
//
// Automatic fall alerts travel on their own lane so a backlog of on-demand
// reports or test alerts can never delay or drop them.
package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fall-monitor/internal/notify"
	"fall-monitor/internal/platform/metrics"
	"fall-monitor/internal/posture"
	"fall-monitor/internal/timeutil"
)

var (
	// ErrQueueFull is returned when an on-demand intent cannot be queued.
	ErrQueueFull = errors.New("dispatch queue full")
	// ErrStopped is returned once the dispatcher has shut down.
	ErrStopped = errors.New("dispatcher stopped")
)

// TestAlertAngle is the synthetic angle carried by a test alert.
const TestAlertAngle = 99.9

// Kind distinguishes the two intent types.
type Kind int

const (
	KindFallAlert Kind = iota
	KindReport
)

func (k Kind) String() string {
	if k == KindReport {
		return "report"
	}
	return "fall_alert"
}

// Intent is one queued notification request. Image must not be modified after
// it has been queued.
type Intent struct {
	ID       uuid.UUID
	Kind     Kind
	Image    []byte
	Angle    float64
	Severity posture.Severity
	At       time.Time
}

// ImageHost publishes a snapshot and returns its URL.
type ImageHost interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// Analyzer summarizes a snapshot in natural language.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (string, error)
}

// Notifier delivers a message to the caregiver.
type Notifier interface {
	Send(ctx context.Context, recipient string, parts []notify.Part) error
}

// Config tunes the dispatcher.
type Config struct {
	Recipient    string
	Timeout      time.Duration // per outbound call
	Workers      int           // on-demand lane
	AlertWorkers int           // fall alert lane
	QueueSize    int           // capacity of each lane
}

const (
	defaultTimeout      = 30 * time.Second
	defaultWorkers      = 2
	defaultAlertWorkers = 1
	defaultQueueSize    = 16
)

// Dispatcher owns the intent queue and its workers.
type Dispatcher struct {
	cfg      Config
	host     ImageHost
	analyzer Analyzer
	notifier Notifier
	clock    timeutil.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics

	queue  chan Intent // reports and test alerts
	alerts chan Intent // automatic fall alerts

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewDispatcher returns a dispatcher. Metrics may be nil.
func NewDispatcher(cfg Config, host ImageHost, analyzer Analyzer, notifier Notifier, clock timeutil.Clock, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.AlertWorkers <= 0 {
		cfg.AlertWorkers = defaultAlertWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Dispatcher{
		cfg:      cfg,
		host:     host,
		analyzer: analyzer,
		notifier: notifier,
		clock:    clock,
		log:      log,
		metrics:  m,
		queue:    make(chan Intent, cfg.QueueSize),
		alerts:   make(chan Intent, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
}

// TriggerFallAlert queues a fall alert for image on the alert lane. It never
// blocks and never drops the alert: when the lane is full the hand-off moves
// to a goroutine that waits for room. It fails only after shutdown.
func (d *Dispatcher) TriggerFallAlert(image []byte, angle float64, severity posture.Severity) (uuid.UUID, error) {
	select {
	case <-d.stopped:
		return uuid.Nil, ErrStopped
	default:
	}
	in := d.stamp(Intent{Kind: KindFallAlert, Image: image, Angle: angle, Severity: severity})
	select {
	case d.alerts <- in:
	default:
		d.log.Warn("alert lane full, hand-off deferred", slog.String("alert_id", in.ID.String()))
		go d.deferAlert(in)
	}
	if d.metrics != nil {
		d.metrics.IncAlertsDispatched()
	}
	return in.ID, nil
}

func (d *Dispatcher) deferAlert(in Intent) {
	select {
	case d.alerts <- in:
	case <-d.stopped:
		d.log.Error("fall alert discarded at shutdown", slog.String("alert_id", in.ID.String()))
	}
}

// SendTestAlert queues a synthetic danger alert for image on the on-demand
// lane. It never blocks.
func (d *Dispatcher) SendTestAlert(image []byte) (uuid.UUID, error) {
	return d.enqueue(Intent{Kind: KindFallAlert, Image: image, Angle: TestAlertAngle, Severity: posture.SeverityDanger})
}

// SendScheduledReport queues a status report for image. It never blocks.
func (d *Dispatcher) SendScheduledReport(image []byte) (uuid.UUID, error) {
	return d.enqueue(Intent{Kind: KindReport, Image: image})
}

func (d *Dispatcher) stamp(in Intent) Intent {
	in.ID = uuid.New()
	in.At = d.clock.Now()
	return in
}

func (d *Dispatcher) enqueue(in Intent) (uuid.UUID, error) {
	select {
	case <-d.stopped:
		return uuid.Nil, ErrStopped
	default:
	}
	in = d.stamp(in)
	select {
	case d.queue <- in:
		if d.metrics != nil && in.Kind == KindReport {
			d.metrics.IncReports()
		}
		d.log.Debug("intent queued", slog.String("alert_id", in.ID.String()), slog.String("kind", in.Kind.String()))
		return in.ID, nil
	default:
		if d.metrics != nil {
			d.metrics.IncQueueDrops()
		}
		d.log.Warn("dispatch queue full, intent dropped", slog.String("kind", in.Kind.String()))
		return uuid.Nil, ErrQueueFull
	}
}

// Run starts both worker pools and blocks until ctx is cancelled. Intents
// still queued at that point are discarded and later calls fail with
// ErrStopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.AlertWorkers; i++ {
		g.Go(func() error {
			d.worker(ctx, d.alerts)
			return nil
		})
	}
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			d.worker(ctx, d.queue)
			return nil
		})
	}
	err := g.Wait()

	d.stopOnce.Do(func() { close(d.stopped) })
	if n := len(d.alerts) + len(d.queue); n > 0 {
		d.log.Info("dispatcher stopped with pending intents", slog.Int("pending", n))
	}
	return err
}

func (d *Dispatcher) worker(ctx context.Context, lane <-chan Intent) {
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-lane:
			d.handle(ctx, in)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, in Intent) {
	log := d.log.With(slog.String("alert_id", in.ID.String()), slog.String("kind", in.Kind.String()))
	start := time.Now()

	var parts []notify.Part
	if url := d.upload(ctx, log, in.Image); url != "" {
		parts = append(parts, notify.ImagePart(url))
	}

	switch in.Kind {
	case KindFallAlert:
		log.Info("fall alert dispatching", slog.Float64("angle", in.Angle), slog.String("severity", in.Severity.String()))
		parts = append(parts, notify.TextPart(FallAlertText(in.At, in.Angle, in.Severity)))
	case KindReport:
		parts = append(parts, notify.TextPart(ReportText(in.At, d.analyze(ctx, log, in.Image))))
	}

	err := d.withTimeout(ctx, func(ctx context.Context) error {
		return d.notifier.Send(ctx, d.cfg.Recipient, parts)
	})
	switch {
	case err == nil:
		log.Info("notification sent", slog.Int("parts", len(parts)), slog.Duration("elapsed", time.Since(start)))
	case errors.Is(err, notify.ErrNotConfigured):
		log.Warn("notification skipped, no notifier configured")
	default:
		d.failed("notify")
		log.Error("notification failed", slog.String("error", err.Error()))
	}
}

// upload returns the hosted image URL, or "" when hosting is unavailable.
func (d *Dispatcher) upload(ctx context.Context, log *slog.Logger, image []byte) string {
	if d.host == nil || len(image) == 0 {
		return ""
	}
	var url string
	err := d.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		url, err = d.host.Upload(ctx, image)
		return err
	})
	switch {
	case err == nil:
		return url
	case errors.Is(err, notify.ErrNotConfigured):
		log.Debug("image host not configured")
	default:
		d.failed("imgbb")
		log.Warn("image upload failed", slog.String("error", err.Error()))
	}
	return ""
}

// analyze returns the AI summary or a placeholder.
func (d *Dispatcher) analyze(ctx context.Context, log *slog.Logger, image []byte) string {
	if d.analyzer == nil {
		return AnalysisNotConfigured
	}
	var text string
	err := d.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		text, err = d.analyzer.Analyze(ctx, image)
		return err
	})
	switch {
	case err == nil:
		return text
	case errors.Is(err, notify.ErrNotConfigured):
		return AnalysisNotConfigured
	default:
		d.failed("gemini")
		log.Warn("image analysis failed", slog.String("error", err.Error()))
		return AnalysisFailed
	}
}

func (d *Dispatcher) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	return fn(ctx)
}

func (d *Dispatcher) failed(collaborator string) {
	if d.metrics != nil {
		d.metrics.IncCollaboratorFailure(collaborator)
	}
}
