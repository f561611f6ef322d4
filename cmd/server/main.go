package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hybridgroup/mjpeg"
	"golang.org/x/sync/errgroup"

	"fall-monitor/internal/alert"
	"fall-monitor/internal/annotate"
	"fall-monitor/internal/capture"
	"fall-monitor/internal/live"
	"fall-monitor/internal/monitor"
	"fall-monitor/internal/notify"
	"fall-monitor/internal/platform/config"
	"fall-monitor/internal/platform/logger"
	"fall-monitor/internal/platform/metrics"
	"fall-monitor/internal/posture"
	"fall-monitor/internal/timeutil"
	"fall-monitor/internal/web"
)

const (
	shutdownTimeout = 10 * time.Second
	replayInterval  = 33 * time.Millisecond
)

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	met := metrics.New()
	clock := timeutil.RealClock{}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	imgbb := notify.NewImgBB(cfg.ImgBBAPIKey, "", httpClient)
	gemini := notify.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, "", httpClient)
	line := notify.NewLine(cfg.LineToken, "", httpClient)
	mq := notify.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, log)
	defer mq.Close()

	counters := &alert.Counters{}
	disp := alert.NewDispatcher(alert.Config{
		Recipient: cfg.LineUserID,
		Timeout:   cfg.HTTPTimeout,
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueue,
	}, imgbb, gemini, notify.NewMulti(line, mq), clock, log, met)

	store := live.NewMemoryStore()
	loop := monitor.New(monitor.Config{
		Thresholds: posture.Thresholds{
			Angle:    cfg.AngleThreshold,
			Frames:   cfg.FrameThreshold,
			Cooldown: cfg.Cooldown,
		},
		ReportInterval: cfg.ReportInterval,
	}, newDevice(cfg, log), store, disp, annotate.New(), counters, clock, log, met)

	hub := web.NewHub(log)
	stream := mjpeg.NewStream()

	h := web.NewHandler(store, disp, counters, web.Credentials{
		LineOK:   line.Ready(cfg.LineUserID),
		GeminiOK: gemini.Configured(),
		ImgBBOK:  imgbb.Configured(),
		MQTTOK:   mq.Connected,
	}, web.Settings{
		AngleThreshold: cfg.AngleThreshold,
		FrameThreshold: cfg.FrameThreshold,
		Cooldown:       cfg.Cooldown,
		ReportInterval: cfg.ReportInterval,
		StaleAfter:     cfg.StaleAfter,
	}, clock, hub, log, met)
	pump := web.NewPump(store, stream, hub, h.Snapshot, cfg.StreamInterval, cfg.StatusInterval, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           web.NewRouter(h, stream, met),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mq.Configured() {
		go func() {
			if err := mq.Connect(ctx); err != nil {
				log.Warn("mqtt not connected yet, retrying in background", "broker", cfg.MQTTBroker, "error", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return disp.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return pump.Run(gctx) })
	g.Go(func() error {
		// A capture failure stops monitoring but the dashboard keeps serving
		// the last frame.
		if err := loop.Run(gctx); err != nil {
			log.Error("acquisition loop stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Streaming clients hold their connections open.
			return srv.Close()
		}
		return nil
	})

	log.Info("server starting",
		"addr", cfg.Addr(),
		"angle_threshold", cfg.AngleThreshold,
		"frame_threshold", cfg.FrameThreshold,
		"cooldown", cfg.Cooldown,
		"report_interval", cfg.ReportInterval,
		"line_ok", line.Ready(cfg.LineUserID),
		"gemini_ok", gemini.Configured(),
		"imgbb_ok", imgbb.Configured(),
		"mqtt", mq.Configured(),
		"log_level", cfg.LogLevel,
	)

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// newDevice selects the frame source: a replay file when configured,
// otherwise the pose worker sidecar.
func newDevice(cfg config.Config, log *slog.Logger) capture.Device {
	if cfg.CaptureReplay != "" {
		log.Info("replaying recorded capture", "path", cfg.CaptureReplay)
		return capture.NewReplay(cfg.CaptureReplay, replayInterval)
	}
	fields := strings.Fields(cfg.CaptureCommand)
	sc := capture.SidecarConfig{Camera: cfg.CameraIndex, Mirror: true}
	if len(fields) > 0 {
		sc.Command = fields[0]
		sc.Args = fields[1:]
	}
	return capture.NewSidecar(sc, log)
}
