// Package packager manages the bundling backend process that serves
// application code to devices and simulators. One Packager instance is
// shared across all launches for a project; Start is idempotent and
// guarded so concurrent launches cannot race a second process into being.
package packager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbergman/mobilebridge/exec"
)

const (
	// statusCheckTimeout bounds a single status probe.
	statusCheckTimeout = 5 * time.Second

	// runningMarker is the body substring the packager's /status endpoint
	// reports once it serves bundles.
	runningMarker = "packager-status:running"
)

// StatusReporter receives packager lifecycle transitions. The indicator is
// shared across launches for the same project, like the packager itself.
type StatusReporter interface {
	PackagerStarting()
	PackagerStarted()
	PackagerStopped()
}

// LogStatusReporter reports transitions to a logger.
type LogStatusReporter struct {
	Log *slog.Logger
}

func (r *LogStatusReporter) PackagerStarting() { r.Log.Info("packager starting") }
func (r *LogStatusReporter) PackagerStarted()  { r.Log.Info("packager started") }
func (r *LogStatusReporter) PackagerStopped()  { r.Log.Info("packager stopped") }

// NoopStatusReporter ignores all transitions.
type NoopStatusReporter struct{}

func (NoopStatusReporter) PackagerStarting() {}
func (NoopStatusReporter) PackagerStarted()  {}
func (NoopStatusReporter) PackagerStopped()  {}

// Packager owns the bundler process for one project.
type Packager struct {
	projectRoot string
	port        int
	executor    exec.CommandExecutor
	status      StatusReporter
	log         *slog.Logger
	client      *http.Client

	// startWait and startPoll control how long Start waits for the
	// process to begin serving. Overridable in tests.
	startWait time.Duration
	startPoll time.Duration

	mu     sync.Mutex
	handle exec.CommandHandle
}

// New creates a Packager for the project. The reporter may be nil.
func New(projectRoot string, port int, executor exec.CommandExecutor, status StatusReporter, log *slog.Logger) *Packager {
	if status == nil {
		status = NoopStatusReporter{}
	}
	return &Packager{
		projectRoot: projectRoot,
		port:        port,
		executor:    executor,
		status:      status,
		log:         log,
		client:      &http.Client{Timeout: statusCheckTimeout},
		startWait:   60 * time.Second,
		startPoll:   500 * time.Millisecond,
	}
}

// Port returns the port the packager serves on.
func (p *Packager) Port() int {
	return p.port
}

// Start ensures the packager is running and serving on the configured
// port. A no-op when a packager (ours or an external one) already serves
// the port. Safe to call from concurrent launches.
func (p *Packager) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning(ctx) {
		p.log.Debug("packager already running", "port", p.port)
		return nil
	}

	p.status.PackagerStarting()

	handle, err := p.executor.Start(ctx, p.projectRoot,
		"npx", "react-native", "start", "--port", strconv.Itoa(p.port))
	if err != nil {
		return fmt.Errorf("failed to start packager: %w", err)
	}
	p.handle = handle

	if err := p.waitUntilRunning(ctx); err != nil {
		handle.Kill()
		p.handle = nil
		return err
	}

	p.status.PackagerStarted()
	p.log.Info("packager serving", "port", p.port)
	return nil
}

// Prewarm requests a bundle build for the platform ahead of the app
// launch, so the first debugger attach does not race an initial build.
func (p *Packager) Prewarm(ctx context.Context, platform string) error {
	url := fmt.Sprintf("http://localhost:%d/index.bundle?platform=%s&dev=true", p.port, platform)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	// Prewarm builds can take a while on a cold cache; rely on the
	// caller's context for the deadline rather than the probe timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("bundle prewarm failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bundle prewarm failed: status %d", resp.StatusCode)
	}
	return nil
}

// EnableJSDebugging asks the packager to launch its JS debugging target,
// switching the served app into a debugger-attachable mode.
func (p *Packager) EnableJSDebugging(ctx context.Context) error {
	url := fmt.Sprintf("http://localhost:%d/launch-js-devtools", p.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to enable JS debugging: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to enable JS debugging: status %d", resp.StatusCode)
	}
	return nil
}

// Stop kills the packager process if this instance owns one. Packagers
// started externally are left alone.
func (p *Packager) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return nil
	}
	err := p.handle.Kill()
	p.handle = nil
	p.status.PackagerStopped()
	return err
}

// isRunning probes the status endpoint. Caller holds mu.
func (p *Packager) isRunning(ctx context.Context) bool {
	url := fmt.Sprintf("http://localhost:%d/status", p.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false
	}
	return strings.Contains(string(body), runningMarker)
}

// waitUntilRunning polls the status endpoint until the packager serves or
// the wait budget runs out. Caller holds mu.
func (p *Packager) waitUntilRunning(ctx context.Context) error {
	deadline := time.Now().Add(p.startWait)
	for {
		if p.isRunning(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("packager did not start serving on port %d within %s", p.port, p.startWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.startPoll):
		}
	}
}
