package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type dashboardData struct {
	AngleThreshold  string
	FrameThreshold  int
	CooldownSeconds string
	ReportInterval  string
}

// reportIntervalLabel renders the report interval for humans; "off" when
// scheduled reports are disabled.
func reportIntervalLabel(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	h := d.Hours()
	return strconv.FormatFloat(h, 'f', -1, 64) + " h"
}

// Index handles GET /: render the dashboard.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{
		AngleThreshold:  strconv.FormatFloat(h.settings.AngleThreshold, 'f', -1, 64),
		FrameThreshold:  h.settings.FrameThreshold,
		CooldownSeconds: strconv.FormatFloat(h.settings.Cooldown.Seconds(), 'f', -1, 64),
		ReportInterval:  reportIntervalLabel(h.settings.ReportInterval),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		h.log.Error("dashboard render failed", slog.String("error", err.Error()))
	}
}
