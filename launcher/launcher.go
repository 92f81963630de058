// Package launcher sequences the launch protocol: option assembly, a
// compatibility check, then the ordered packager/app/debugger steps with
// fail-fast error propagation and per-step instrumentation.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbergman/mobilebridge/editor"
	"github.com/rbergman/mobilebridge/exec"
	"github.com/rbergman/mobilebridge/packager"
	"github.com/rbergman/mobilebridge/platform"
	"github.com/rbergman/mobilebridge/rpc"
	"github.com/rbergman/mobilebridge/settings"
	"github.com/rbergman/mobilebridge/telemetry"
)

// ErrUnsupportedPlatform is returned by the compatibility check before
// any packager interaction.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

const (
	// DefaultTarget applies when a launch request omits the target.
	DefaultTarget = platform.TargetSimulator

	// defaultStepTimeout bounds each launch step. A hung toolchain step
	// fails the launch instead of blocking the caller indefinitely.
	defaultStepTimeout = 5 * time.Minute

	// launchEventName tags step telemetry events.
	launchEventName = "launch"
)

// Launcher drives launch calls for one project. The packager and monitor
// holder are shared across launches; everything per-launch (platform
// handle, step generator) is created fresh inside Launch.
type Launcher struct {
	settings *settings.Settings
	packager *packager.Packager
	monitors *editor.MonitorHolder
	executor exec.CommandExecutor
	sink     telemetry.Sink
	log      *slog.Logger

	// stepTimeout is overridable in tests.
	stepTimeout time.Duration
}

// New creates a Launcher. A nil sink discards step telemetry.
func New(s *settings.Settings, p *packager.Packager, monitors *editor.MonitorHolder, executor exec.CommandExecutor, sink telemetry.Sink, log *slog.Logger) *Launcher {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &Launcher{
		settings:    s,
		packager:    p,
		monitors:    monitors,
		executor:    executor,
		sink:        sink,
		log:         log.With("component", "launcher"),
		stepTimeout: defaultStepTimeout,
	}
}

// step pairs a reported name with its operation.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// Launch runs the full launch sequence for one request. Steps execute
// strictly in order; the first failure aborts the rest and surfaces the
// step's own error to the caller.
func (l *Launcher) Launch(ctx context.Context, req rpc.LaunchRequest) error {
	opts := l.assembleOptions(req)
	gen := telemetry.NewGenerator(launchEventName, l.sink, l.log)
	log := l.log.With("platform", opts.Platform, "session", gen.SessionID())

	gen.Step("checkPlatformCompatibility")
	if !platform.Supported(opts.Platform) {
		err := fmt.Errorf("%w: %q", ErrUnsupportedPlatform, opts.Platform)
		log.Error("launch rejected", "error", err)
		return err
	}

	handle, err := platform.Resolve(opts.Platform, opts, platform.Dependencies{
		Packager: l.packager,
		Monitors: l.monitors,
		Executor: l.executor,
		Log:      log,
	})
	if err != nil {
		log.Error("failed to resolve platform", "error", err)
		return err
	}

	steps := []step{
		{"startPackager", handle.StartPackager},
		{"prewarmBundleCache", handle.PrewarmBundleCache},
		{"runApp", handle.RunApp},
		{"enableJSDebuggingMode", handle.EnableJSDebuggingMode},
	}
	for _, s := range steps {
		gen.Step(s.name)
		if err := l.runStep(ctx, s.run); err != nil {
			log.Error("launch step failed", "step", s.name, "error", err)
			return fmt.Errorf("%s: %w", s.name, err)
		}
		log.Debug("launch step complete", "step", s.name)
	}

	log.Info("launch complete")
	return nil
}

// runStep executes one step under the per-step timeout, honoring caller
// cancellation.
func (l *Launcher) runStep(ctx context.Context, run func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, l.stepTimeout)
	defer cancel()
	return run(stepCtx)
}

// assembleOptions merges request fields into effective launch options.
// Fields absent from the request fall back to settings defaults; present
// fields override exactly, with no element-level merging.
func (l *Launcher) assembleOptions(req rpc.LaunchRequest) platform.Options {
	target := req.Target
	if target == "" {
		target = DefaultTarget
	}

	runArgs := req.RunArguments
	if runArgs == nil {
		runArgs = l.settings.DefaultRunArguments(req.Platform, target)
	}

	variant := req.Variant
	if variant == "" {
		variant = l.settings.GetBuildVariant()
	}

	scheme := req.Scheme
	if scheme == "" {
		scheme = l.settings.GetScheme()
	}

	return platform.Options{
		Platform:        req.Platform,
		Target:          target,
		RunArguments:    runArgs,
		LogCatArguments: string(req.LogCatArguments),
		Variant:         variant,
		Scheme:          scheme,
		PackagerPort:    l.settings.GetPackagerPort(),
		ProjectRoot:     l.settings.ProjectRoot(),
	}
}
