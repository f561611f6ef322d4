package alert

import (
	"fmt"
	"time"

	"fall-monitor/internal/posture"
)

// TimeLayout is the timestamp format used in notification text.
const TimeLayout = "2006/01/02 15:04:05"

// Placeholder summaries used when the analyzer cannot produce one.
const (
	AnalysisNotConfigured = "(AI analysis not configured)"
	AnalysisFailed        = "(AI analysis failed)"
)

const signature = "🛡️ Fall Monitor"

// SeverityLabel is the human label for a severity.
func SeverityLabel(s posture.Severity) string {
	if s == posture.SeverityDanger {
		return "🚨 SEVERE"
	}
	return "⚠️ MODERATE"
}

// FallAlertText is the text part of a fall alert.
func FallAlertText(at time.Time, angle float64, severity posture.Severity) string {
	return fmt.Sprintf("🚨 Fall alert!\n\n⏰ %s\n📐 Tilt angle: %.1f°\n⚡ Severity: %s\n\nPlease check on them right away!\n\n%s",
		at.Format(TimeLayout), angle, SeverityLabel(severity), signature)
}

// ReportText is the text part of a scheduled report.
func ReportText(at time.Time, analysis string) string {
	return fmt.Sprintf("📸 Scheduled status report\n\n⏰ %s\n\n🤖 AI analysis:\n%s\n\n%s",
		at.Format(TimeLayout), analysis, signature)
}
