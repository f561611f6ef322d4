package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SidecarConfig describes the pose worker process.
type SidecarConfig struct {
	Command string
	Args    []string // placed before the camera flags
	Camera  int
	Width   int
	Height  int
	Mirror  bool
}

// Sidecar runs the pose worker and decodes its stdout.
type Sidecar struct {
	cfg SidecarConfig
	log *slog.Logger
	now func() time.Time

	cmd    *exec.Cmd
	dec    *Decoder
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewSidecar returns a device that starts cfg.Command on Open.
func NewSidecar(cfg SidecarConfig, log *slog.Logger) *Sidecar {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	return &Sidecar{cfg: cfg, log: log, now: time.Now}
}

func (s *Sidecar) args() []string {
	args := append([]string{}, s.cfg.Args...)
	args = append(args,
		"--camera", strconv.Itoa(s.cfg.Camera),
		"--width", strconv.Itoa(s.cfg.Width),
		"--height", strconv.Itoa(s.cfg.Height),
	)
	if s.cfg.Mirror {
		args = append(args, "--mirror")
	}
	return args
}

// Open starts the worker. The process is killed when ctx is cancelled.
func (s *Sidecar) Open(ctx context.Context) error {
	if s.cfg.Command == "" {
		return errors.New("capture: no sidecar command configured")
	}

	cmd := exec.CommandContext(ctx, s.cfg.Command, s.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("capture: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("capture: start %s: %w", s.cfg.Command, err)
	}

	s.cmd = cmd
	s.dec = NewDecoder(bufio.NewReaderSize(stdout, 256<<10))

	s.wg.Add(1)
	go s.logStderr(stderr)

	s.log.Info("pose worker started",
		slog.String("command", s.cfg.Command),
		slog.Int("pid", cmd.Process.Pid),
		slog.Int("camera", s.cfg.Camera))
	return nil
}

// ReadFrame blocks until the worker emits the next frame.
func (s *Sidecar) ReadFrame(ctx context.Context) (Frame, error) {
	if s.closed.Load() || s.dec == nil {
		return Frame{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	m, err := s.dec.Decode()
	if err != nil {
		if s.closed.Load() {
			return Frame{}, ErrClosed
		}
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("capture: %w", err)
	}
	return frameFrom(m, s.now())
}

// Close stops the worker and waits for it to exit.
func (s *Sidecar) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	_ = s.cmd.Process.Kill()
	err := s.cmd.Wait()
	s.wg.Wait()
	s.log.Info("pose worker stopped", slog.Int("pid", s.cmd.Process.Pid))

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// logStderr forwards worker log lines, mapping their level tag onto slog.
func (s *Sidecar) logStderr(r io.Reader) {
	defer s.wg.Done()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case containsAny(line, "[ERROR]", "[CRITICAL]"):
			s.log.Error("pose worker", slog.String("log", line))
		case containsAny(line, "[WARNING]", "[WARN]"):
			s.log.Warn("pose worker", slog.String("log", line))
		default:
			s.log.Debug("pose worker", slog.String("log", line))
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
