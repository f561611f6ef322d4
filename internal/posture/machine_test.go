package posture

import (
	"testing"
	"time"
)

var (
	defaultThresholds = Thresholds{Angle: 35, Frames: 15, Cooldown: 60 * time.Second}
	t0                = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	upright           = Sample{Angle: 5, HeadRatio: 1}
	fallen            = Sample{Angle: 60, HeadRatio: 1}
)

// frame returns the time of the n-th frame at 30 fps.
func frame(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Second / 30)
}

func TestMachine_starts_searching(t *testing.T) {
	m := NewMachine(defaultThresholds)
	if got := m.Status().Classification; got != Searching {
		t.Errorf("initial classification = %v, want searching", got)
	}
	if m.Streak() != 0 || !m.LastAlert().IsZero() {
		t.Errorf("streak=%d lastAlert=%v", m.Streak(), m.LastAlert())
	}
}

func TestMachine_upright_stays_normal(t *testing.T) {
	m := NewMachine(defaultThresholds)
	for i := 0; i < 100; i++ {
		d := m.Observe(upright, frame(i))
		if d.Status.Classification != Normal || d.Alert != nil || d.Status.Streak != 0 {
			t.Fatalf("frame %d: %+v", i, d)
		}
	}
	if got := m.Status().Message; got != "Normal 5.0°" {
		t.Errorf("message = %q", got)
	}
}

func TestMachine_fall_reaches_danger_once(t *testing.T) {
	m := NewMachine(defaultThresholds)
	wantProgress := map[int]int{1: 7, 2: 13, 14: 93}
	alerts := 0
	for i := 1; i <= 20; i++ {
		d := m.Observe(fallen, frame(i))
		if d.Alert != nil {
			alerts++
		}
		switch {
		case i < 15:
			if d.Status.Classification != Warning {
				t.Fatalf("frame %d: classification %v, want warning", i, d.Status.Classification)
			}
			if p, ok := wantProgress[i]; ok && d.Status.Progress != p {
				t.Errorf("frame %d: progress %d, want %d", i, d.Status.Progress, p)
			}
		case i == 15:
			if d.Status.Classification != Danger || d.Alert == nil {
				t.Fatalf("frame 15: %+v, want danger with alert", d)
			}
			if d.Alert.Severity != SeverityDanger || d.Alert.Angle != 60 || !d.Alert.At.Equal(frame(15)) {
				t.Errorf("alert = %+v", d.Alert)
			}
			if d.Status.Message != "DANGER! 60.0°" {
				t.Errorf("message = %q", d.Status.Message)
			}
		default:
			if d.Status.Classification != Danger || !d.Suppressed {
				t.Errorf("frame %d: %+v, want suppressed danger", i, d)
			}
		}
	}
	if alerts != 1 {
		t.Errorf("alerts = %d, want 1", alerts)
	}
	if got := m.Status().Message; got != "DANGER! 60.0°" {
		t.Errorf("message = %q", got)
	}
}

func TestMachine_warning_message(t *testing.T) {
	m := NewMachine(defaultThresholds)
	m.Observe(fallen, t0)
	if got := m.Observe(fallen, t0).Status.Message; got != "Detecting 13%" {
		t.Errorf("message = %q", got)
	}
}

func TestMachine_cooldown_suppresses_then_rearms(t *testing.T) {
	m := NewMachine(defaultThresholds)
	for i := 0; i < 15; i++ {
		m.Observe(fallen, t0)
	}
	if !m.LastAlert().Equal(t0) {
		t.Fatalf("lastAlert = %v, want %v", m.LastAlert(), t0)
	}

	for i := 1; i <= 10; i++ {
		d := m.Observe(fallen, t0.Add(time.Duration(i)*5*time.Second))
		if d.Alert != nil || !d.Suppressed {
			t.Fatalf("frame at +%ds: %+v, want suppressed", i*5, d)
		}
	}
	// Exactly the cooldown is still inside it.
	if d := m.Observe(fallen, t0.Add(60*time.Second)); d.Alert != nil {
		t.Fatal("alert at exactly +60s, want suppressed")
	}
	d := m.Observe(fallen, t0.Add(61*time.Second))
	if d.Alert == nil {
		t.Fatal("no alert at +61s")
	}
	if !m.LastAlert().Equal(t0.Add(61 * time.Second)) {
		t.Errorf("lastAlert = %v", m.LastAlert())
	}
}

func TestMachine_RevokeAlert_rearms(t *testing.T) {
	m := NewMachine(defaultThresholds)
	for i := 0; i < 15; i++ {
		m.Observe(fallen, t0)
	}
	m.RevokeAlert()
	if !m.LastAlert().IsZero() {
		t.Fatalf("lastAlert = %v, want zero after revoking the first alert", m.LastAlert())
	}
	if d := m.Observe(fallen, t0.Add(time.Second)); d.Alert == nil {
		t.Fatal("next danger frame did not alert after revoke")
	}

	// Revoking a later alert restores the earlier cooldown.
	at := t0.Add(2 * time.Minute)
	if d := m.Observe(fallen, at); d.Alert == nil {
		t.Fatal("no alert after the cooldown")
	}
	m.RevokeAlert()
	if !m.LastAlert().Equal(t0.Add(time.Second)) {
		t.Errorf("lastAlert = %v, want %v", m.LastAlert(), t0.Add(time.Second))
	}
}

func TestMachine_recovery_decays_by_two(t *testing.T) {
	m := NewMachine(defaultThresholds)
	for i := 0; i < 5; i++ {
		m.Observe(fallen, t0)
	}
	d := m.Observe(upright, t0)
	if d.Status.Streak != 3 || d.Status.Classification != Normal {
		t.Errorf("after one upright frame: streak %d class %v, want 3 normal", d.Status.Streak, d.Status.Classification)
	}
	m.Observe(upright, t0)
	m.Observe(upright, t0)
	if m.Streak() != 0 {
		t.Errorf("streak = %d, want clamped at 0", m.Streak())
	}
}

func TestMachine_streak_monotonic_while_abnormal(t *testing.T) {
	m := NewMachine(defaultThresholds)
	prev := 0
	for i := 0; i < 40; i++ {
		d := m.Observe(fallen, frame(i))
		if d.Status.Streak != prev+1 {
			t.Fatalf("frame %d: streak %d, want %d", i, d.Status.Streak, prev+1)
		}
		prev = d.Status.Streak
	}
}

func TestMachine_collapsed_head_is_abnormal(t *testing.T) {
	m := NewMachine(Thresholds{Angle: 35, Frames: 1, Cooldown: time.Minute})
	d := m.Observe(Sample{Angle: 10, HeadRatio: 0.4}, t0)
	if d.Alert == nil || d.Alert.Severity != SeverityDanger {
		t.Fatalf("collapsed head: %+v, want danger alert", d)
	}
	// 0.5 is not below the ratio threshold.
	m2 := NewMachine(Thresholds{Angle: 35, Frames: 1, Cooldown: time.Minute})
	if d := m2.Observe(Sample{Angle: 10, HeadRatio: CollapsedHeadRatio}, t0); d.Status.Classification != Normal {
		t.Errorf("ratio at threshold: %v, want normal", d.Status.Classification)
	}
}

func TestMachine_severity_grading(t *testing.T) {
	cases := []struct {
		name  string
		angle float64
		want  Severity
	}{
		{"just_over_threshold", 36, SeverityWarning},
		{"at_severe_factor", 52.5, SeverityWarning},
		{"above_severe_factor", 53, SeverityDanger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine(Thresholds{Angle: 35, Frames: 1, Cooldown: time.Minute})
			d := m.Observe(Sample{Angle: tc.angle, HeadRatio: 1}, t0)
			if d.Alert == nil {
				t.Fatal("expected alert")
			}
			if d.Alert.Severity != tc.want {
				t.Errorf("severity = %v, want %v", d.Alert.Severity, tc.want)
			}
		})
	}
}

func TestMachine_angle_at_threshold_is_normal(t *testing.T) {
	m := NewMachine(defaultThresholds)
	if d := m.Observe(Sample{Angle: 35, HeadRatio: 1}, t0); d.Status.Classification != Normal {
		t.Errorf("angle == threshold: %v, want normal", d.Status.Classification)
	}
}

func TestMachine_miss_keeps_streak(t *testing.T) {
	m := NewMachine(defaultThresholds)
	for i := 0; i < 4; i++ {
		m.Observe(fallen, t0)
	}
	d := m.Miss()
	if d.Status.Classification != Searching || d.Status.Streak != 4 || d.Alert != nil {
		t.Fatalf("miss: %+v", d)
	}
	if d := m.Observe(fallen, t0); d.Status.Streak != 5 {
		t.Errorf("streak after miss = %d, want 5", d.Status.Streak)
	}
}

func TestProgress(t *testing.T) {
	cases := []struct{ streak, frames, want int }{
		{1, 15, 7},
		{2, 15, 13},
		{15, 15, 100},
		{30, 15, 100},
		{0, 15, 0},
		{3, 0, 100},
	}
	for _, tc := range cases {
		if got := Progress(tc.streak, tc.frames); got != tc.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", tc.streak, tc.frames, got, tc.want)
		}
	}
}

func TestClassification_MarshalText(t *testing.T) {
	b, _ := Danger.MarshalText()
	if string(b) != "danger" {
		t.Errorf("got %q", b)
	}
	if Searching.String() != "searching" || Warning.String() != "warning" {
		t.Error("unexpected names")
	}
}

func TestClassification_UnmarshalText(t *testing.T) {
	var c Classification
	if err := c.UnmarshalText([]byte("warning")); err != nil || c != Warning {
		t.Errorf("got %v, %v", c, err)
	}
	if err := c.UnmarshalText([]byte("falling")); err == nil {
		t.Error("expected error for unknown name")
	}
}
