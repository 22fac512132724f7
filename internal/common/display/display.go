package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/config"
)

// ErrSetup marks a failure to provision the display environment
var ErrSetup = errors.New("display setup failed")

// Display is an environment resource acquired for the duration of a run
type Display interface {
	Start(ctx context.Context) error
	Stop() error
}

// Run acquires d, calls fn and releases d on every exit path, including a
// failed start and a panic in fn. fn is not called if d cannot be started.
func Run(ctx context.Context, d Display, fn func(ctx context.Context) error) (err error) {
	if startErr := d.Start(ctx); startErr != nil {
		_ = d.Stop()
		return fmt.Errorf("%w: %w", ErrSetup, startErr)
	}
	defer func() {
		if stopErr := d.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("stop display: %w", stopErr)
		}
	}()

	return fn(ctx)
}

// Noop is used when no virtual display is wanted
type Noop struct{}

func (Noop) Start(context.Context) error { return nil }
func (Noop) Stop() error                 { return nil }

// Xvfb runs an X virtual framebuffer and points DISPLAY at it
type Xvfb struct {
	bin       string
	number    int
	width     int
	height    int
	socketDir string
	timeout   time.Duration
	logger    *slog.Logger

	cmd         *exec.Cmd
	exited      chan error
	prevDisplay string
	hadDisplay  bool
	displaySet  bool
}

// NewXvfb creates an Xvfb display from cfg
func NewXvfb(cfg config.DisplayConfig, logger *slog.Logger) *Xvfb {
	if logger == nil {
		logger = slog.Default()
	}
	bin := cfg.XvfbBin
	if bin == "" {
		bin = "Xvfb"
	}
	return &Xvfb{
		bin:       bin,
		number:    cfg.Number,
		width:     cfg.Width,
		height:    cfg.Height,
		socketDir: "/tmp/.X11-unix",
		timeout:   10 * time.Second,
		logger:    logger,
	}
}

// Name is the DISPLAY value, e.g. ":99"
func (x *Xvfb) Name() string {
	return ":" + strconv.Itoa(x.number)
}

func (x *Xvfb) socketPath() string {
	return filepath.Join(x.socketDir, "X"+strconv.Itoa(x.number))
}

func (x *Xvfb) Start(ctx context.Context) error {
	if x.cmd != nil {
		return errors.New("xvfb already started")
	}

	path, err := exec.LookPath(x.bin)
	if err != nil {
		return fmt.Errorf("find %s: %w", x.bin, err)
	}

	screen := fmt.Sprintf("%dx%dx24", x.width, x.height)
	cmd := exec.Command(path, x.Name(), "-screen", "0", screen, "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", x.bin, err)
	}
	x.cmd = cmd
	x.exited = make(chan error, 1)
	go func() { x.exited <- cmd.Wait() }()

	if err := x.waitReady(ctx); err != nil {
		return err
	}

	x.prevDisplay, x.hadDisplay = os.LookupEnv("DISPLAY")
	if err := os.Setenv("DISPLAY", x.Name()); err != nil {
		return fmt.Errorf("set DISPLAY: %w", err)
	}
	x.displaySet = true

	x.logger.Info("[Display] Virtual display started", "display", x.Name(), "screen", screen, "pid", cmd.Process.Pid)
	return nil
}

// waitReady polls for the X socket until the server is up, exits, or times out
func (x *Xvfb) waitReady(ctx context.Context) error {
	deadline := time.NewTimer(x.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(x.socketPath()); err == nil {
			return nil
		}
		select {
		case err := <-x.exited:
			x.exited <- err
			return fmt.Errorf("xvfb exited early: %v", err)
		case <-deadline.C:
			return fmt.Errorf("xvfb not ready after %s", x.timeout)
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop terminates the server and restores DISPLAY. It is safe to call
// after a failed or missing Start.
func (x *Xvfb) Stop() error {
	if x.cmd == nil {
		return nil
	}
	defer func() { x.cmd = nil }()

	if x.displaySet {
		if x.hadDisplay {
			_ = os.Setenv("DISPLAY", x.prevDisplay)
		} else {
			_ = os.Unsetenv("DISPLAY")
		}
		x.displaySet = false
	}

	select {
	case <-x.exited:
		return nil
	default:
	}

	_ = x.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-x.exited:
	case <-time.After(5 * time.Second):
		if err := x.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill xvfb: %w", err)
		}
		<-x.exited
	}

	x.logger.Info("[Display] Virtual display stopped", "display", x.Name())
	return nil
}
