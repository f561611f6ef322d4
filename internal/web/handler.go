// Package web serves the remote monitoring surface: dashboard, live MJPEG
// feed, status JSON, on-demand report and test alert, and a websocket that
// pushes status changes.
package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fall-monitor/internal/alert"
	"fall-monitor/internal/live"
	"fall-monitor/internal/platform/metrics"
	"fall-monitor/internal/posture"
	"fall-monitor/internal/timeutil"
)

// Dispatcher queues on-demand notifications without blocking.
type Dispatcher interface {
	SendTestAlert(image []byte) (uuid.UUID, error)
	SendScheduledReport(image []byte) (uuid.UUID, error)
}

// Credentials reports which collaborators are configured. MQTT is a func
// because the broker connection comes and goes.
type Credentials struct {
	LineOK   bool
	GeminiOK bool
	ImgBBOK  bool
	MQTTOK   func() bool
}

// Settings are the thresholds shown on the dashboard.
type Settings struct {
	AngleThreshold float64
	FrameThreshold int
	Cooldown       time.Duration
	ReportInterval time.Duration
	StaleAfter     time.Duration
}

// StatusResponse is the body of GET /api/status and of websocket pushes.
type StatusResponse struct {
	Status      posture.Classification `json:"status"`
	Angle       float64                `json:"angle"`
	Message     string                 `json:"message"`
	HeadRatio   float64                `json:"head_ratio"`
	Streak      int                    `json:"streak"`
	Progress    int                    `json:"progress"`
	AlertCount  int64                  `json:"alert_count"`
	LineOK      bool                   `json:"line_ok"`
	GeminiOK    bool                   `json:"gemini_ok"`
	ImgBBOK     bool                   `json:"imgbb_ok"`
	MQTTOK      bool                   `json:"mqtt_ok"`
	LastFrameAt *time.Time             `json:"last_frame_at,omitempty"`
	Stale       bool                   `json:"stale"`
}

// ActionResponse is the body of the on-demand endpoints.
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handler exposes the HTTP endpoints.
type Handler struct {
	store    live.Store
	disp     Dispatcher
	counters *alert.Counters
	creds    Credentials
	settings Settings
	clock    timeutil.Clock
	hub      *Hub
	log      *slog.Logger
	metrics  *metrics.Metrics

	tmpl     *template.Template
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler. Hub and metrics may be nil.
func NewHandler(store live.Store, disp Dispatcher, counters *alert.Counters, creds Credentials, settings Settings,
	clock timeutil.Clock, hub *Hub, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		store:    store,
		disp:     disp,
		counters: counters,
		creds:    creds,
		settings: settings,
		clock:    clock,
		hub:      hub,
		log:      log,
		metrics:  m,
		tmpl:     dashboardTemplate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Snapshot builds the current status from the live record and counters.
func (h *Handler) Snapshot() StatusResponse {
	resp := StatusResponse{
		Status:     posture.Searching,
		Message:    "Waiting for camera",
		AlertCount: h.counters.AlertCount(),
		LineOK:     h.creds.LineOK,
		GeminiOK:   h.creds.GeminiOK,
		ImgBBOK:    h.creds.ImgBBOK,
		Stale:      true,
	}
	if h.creds.MQTTOK != nil {
		resp.MQTTOK = h.creds.MQTTOK()
	}

	rec := h.store.Load()
	if rec == nil {
		return resp
	}
	st := rec.Status
	resp.Status = st.Classification
	resp.Angle = st.Angle
	resp.Message = st.Message
	resp.HeadRatio = st.HeadRatio
	resp.Streak = st.Streak
	resp.Progress = st.Progress
	at := rec.CapturedAt
	resp.LastFrameAt = &at
	resp.Stale = rec.Stale(h.clock.Now(), h.settings.StaleAfter)
	return resp
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Snapshot())
}

// Report handles GET /api/report: queue a report of the current frame.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	img, err := live.Image(h.store)
	if err != nil {
		h.unavailable(w, err)
		return
	}
	id, err := h.disp.SendScheduledReport(img)
	if err != nil {
		h.unavailable(w, err)
		return
	}
	h.counters.RecordReport(h.clock.Now())
	h.log.Info("on-demand report queued", slog.String("alert_id", id.String()))
	writeJSON(w, http.StatusOK, ActionResponse{Status: "ok", Message: "📸 Report sent!"})
}

// TestAlert handles GET /api/test_alert: queue a synthetic danger alert. It
// does not count towards alert_count.
func (h *Handler) TestAlert(w http.ResponseWriter, r *http.Request) {
	img, err := live.Image(h.store)
	if err != nil {
		h.unavailable(w, err)
		return
	}
	id, err := h.disp.SendTestAlert(img)
	if err != nil {
		h.unavailable(w, err)
		return
	}
	h.log.Info("test alert queued", slog.String("alert_id", id.String()))
	writeJSON(w, http.StatusOK, ActionResponse{Status: "ok", Message: "🚨 Test alert sent!"})
}

func (h *Handler) unavailable(w http.ResponseWriter, err error) {
	msg := "❌ Unable to capture a frame"
	if errors.Is(err, alert.ErrQueueFull) {
		msg = "❌ Dispatcher busy, try again shortly"
	}
	h.log.Warn("on-demand request rejected", slog.String("error", err.Error()))
	writeJSON(w, http.StatusServiceUnavailable, ActionResponse{Status: "error", Message: msg})
}

// WebSocket handles GET /ws: upgrade and stream status messages.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "live push disabled", http.StatusNotFound)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := newClient(h.hub, conn)
	// Greet with the current status so the page renders immediately. The
	// send buffer is empty and not yet visible to the hub.
	if b, err := json.Marshal(map[string]any{"type": "status", "payload": h.Snapshot()}); err == nil {
		c.send <- b
	}
	if !h.hub.add(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
