package posture

import (
	"fmt"
	"math"
	"time"
)

// Classification is the published posture state.
type Classification int

const (
	Searching Classification = iota
	Normal
	Warning
	Danger
)

func (c Classification) String() string {
	switch c {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	default:
		return "searching"
	}
}

// MarshalText encodes the classification by name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a classification name.
func (c *Classification) UnmarshalText(b []byte) error {
	switch string(b) {
	case "searching":
		*c = Searching
	case "normal":
		*c = Normal
	case "warning":
		*c = Warning
	case "danger":
		*c = Danger
	default:
		return fmt.Errorf("unknown classification %q", b)
	}
	return nil
}

// Severity grades an alert.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityDanger
)

func (s Severity) String() string {
	if s == SeverityDanger {
		return "danger"
	}
	return "warning"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	// CollapsedHeadRatio is the head-height ratio below which the head is
	// considered to have dropped, regardless of torso angle.
	CollapsedHeadRatio = 0.5

	severeAngleFactor = 1.5
	recoveryDecay     = 2
)

// Thresholds configure the state machine.
type Thresholds struct {
	Angle    float64       // degrees; strictly greater is abnormal
	Frames   int           // consecutive abnormal frames before Danger
	Cooldown time.Duration // minimum gap between two alert intents
}

// Sample is the per-frame input of the machine.
type Sample struct {
	Angle     float64
	HeadRatio float64
}

// Status is the classification published after every frame.
type Status struct {
	Classification Classification `json:"status"`
	Angle          float64        `json:"angle"`
	HeadRatio      float64        `json:"head_ratio"`
	Streak         int            `json:"streak"`
	Progress       int            `json:"progress"`
	Message        string         `json:"message"`
}

// AlertIntent asks the dispatcher to notify the caregiver.
type AlertIntent struct {
	Angle    float64
	Severity Severity
	At       time.Time
}

// Decision is the outcome of one frame. Alert is nil unless a new alert is
// due; Suppressed is set when Danger held but the cooldown had not expired.
type Decision struct {
	Status     Status
	Alert      *AlertIntent
	Suppressed bool
}

// Machine is the debounced posture classifier. It is owned by the
// acquisition loop and must not be shared between goroutines.
type Machine struct {
	th        Thresholds
	streak    int
	lastAlert time.Time
	prevAlert time.Time
	status    Status
}

// NewMachine returns a machine in the Searching state with an empty streak.
func NewMachine(th Thresholds) *Machine {
	if th.Frames <= 0 {
		th.Frames = 1
	}
	return &Machine{
		th:     th,
		status: Status{Classification: Searching, Message: "Waiting for camera"},
	}
}

// Observe advances the machine with a measured frame taken at now.
func (m *Machine) Observe(s Sample, now time.Time) Decision {
	abnormal := s.Angle > m.th.Angle || s.HeadRatio < CollapsedHeadRatio
	severity := SeverityWarning
	if s.Angle > m.th.Angle*severeAngleFactor || s.HeadRatio < CollapsedHeadRatio {
		severity = SeverityDanger
	}

	var d Decision
	st := Status{Angle: s.Angle, HeadRatio: s.HeadRatio}

	if abnormal {
		m.streak++
		if m.streak >= m.th.Frames {
			if m.lastAlert.IsZero() || now.Sub(m.lastAlert) > m.th.Cooldown {
				d.Alert = &AlertIntent{Angle: s.Angle, Severity: severity, At: now}
				m.prevAlert, m.lastAlert = m.lastAlert, now
			} else {
				d.Suppressed = true
			}
			st.Classification = Danger
			st.Progress = 100
			st.Message = fmt.Sprintf("DANGER! %.1f°", s.Angle)
		} else {
			st.Classification = Warning
			st.Progress = Progress(m.streak, m.th.Frames)
			st.Message = fmt.Sprintf("Detecting %d%%", st.Progress)
		}
	} else {
		m.streak = max(0, m.streak-recoveryDecay)
		st.Classification = Normal
		st.Message = fmt.Sprintf("Normal %.1f°", s.Angle)
	}

	st.Streak = m.streak
	m.status = st
	d.Status = st
	return d
}

// Miss records a frame without a usable measurement. The streak is kept so
// a brief occlusion does not reset a detection in progress.
func (m *Machine) Miss() Decision {
	m.status = Status{
		Classification: Searching,
		Streak:         m.streak,
		Message:        "Searching...",
	}
	return Decision{Status: m.status}
}

// RevokeAlert undoes the cooldown taken by the last alert intent, for when
// the intent could not be delivered. The next Danger frame fires again.
func (m *Machine) RevokeAlert() {
	m.lastAlert = m.prevAlert
}

// Status returns the status produced by the last frame.
func (m *Machine) Status() Status {
	return m.status
}

// Streak returns the current abnormal streak.
func (m *Machine) Streak() int {
	return m.streak
}

// LastAlert returns when the last alert intent was emitted (zero if never).
func (m *Machine) LastAlert() time.Time {
	return m.lastAlert
}

// Progress is the Warning completion percentage, capped at 100.
func Progress(streak, frames int) int {
	if frames <= 0 {
		return 100
	}
	return min(100, int(math.Round(100*float64(streak)/float64(frames))))
}
