// Package bridge assembles the full messaging bridge for one project:
// settings, the shared packager, the launch orchestrator, and the RPC
// channel, behind a single Start/Dispose lifecycle. The editor extension
// constructs one Bridge per open project.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbergman/mobilebridge/cli"
	"github.com/rbergman/mobilebridge/editor"
	"github.com/rbergman/mobilebridge/exec"
	"github.com/rbergman/mobilebridge/launcher"
	"github.com/rbergman/mobilebridge/logger"
	"github.com/rbergman/mobilebridge/packager"
	"github.com/rbergman/mobilebridge/rpc"
	"github.com/rbergman/mobilebridge/settings"
	"github.com/rbergman/mobilebridge/telemetry"
)

// Options configure a Bridge. Documents is required; everything else has
// a working default.
type Options struct {
	// Documents is the editor surface for openFileAtLocation and
	// showInformationMessage.
	Documents editor.DocumentService

	// Telemetry receives forwarded extension events and launch step
	// instrumentation. Defaults to a discarding sink.
	Telemetry telemetry.Sink

	// Executor runs toolchain commands. Defaults to the real executor.
	Executor exec.CommandExecutor

	// Status receives packager lifecycle transitions. May be nil.
	Status packager.StatusReporter

	// Log defaults to the project-scoped file logger.
	Log *slog.Logger
}

// Bridge wires the per-project collaborators together and owns their
// lifecycle. The channel, packager, and monitor holder live as long as
// the bridge; launches come and go through the channel.
type Bridge struct {
	projectRoot string
	settings    *settings.Settings
	packager    *packager.Packager
	monitors    *editor.MonitorHolder
	launcher    *launcher.Launcher
	channel     *rpc.Channel
	log         *slog.Logger
}

// New loads the project's settings and assembles an unstarted Bridge.
func New(projectRoot string, opts Options) (*Bridge, error) {
	if opts.Documents == nil {
		return nil, fmt.Errorf("document service is required")
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NoopSink{}
	}
	if opts.Executor == nil {
		opts.Executor = exec.NewRealExecutor()
	}
	if opts.Log == nil {
		opts.Log = logger.WithProject(projectRoot)
	}
	if opts.Status == nil {
		opts.Status = &packager.LogStatusReporter{Log: opts.Log}
	}

	s, err := settings.Load(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	monitors := &editor.MonitorHolder{}
	pkg := packager.New(projectRoot, s.GetPackagerPort(), opts.Executor, opts.Status, opts.Log)
	l := launcher.New(s, pkg, monitors, opts.Executor, opts.Telemetry, opts.Log)

	ch := rpc.NewChannel(projectRoot, monitors, opts.Log)
	err = rpc.RegisterMethods(ch, rpc.Collaborators{
		Settings:  s,
		Telemetry: opts.Telemetry,
		Documents: opts.Documents,
		Launch: func(ctx context.Context, req rpc.LaunchRequest) error {
			return l.Launch(ctx, req)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Bridge{
		projectRoot: projectRoot,
		settings:    s,
		packager:    pkg,
		monitors:    monitors,
		launcher:    l,
		channel:     ch,
		log:         opts.Log,
	}, nil
}

// Start binds the channel's socket and begins serving the debug adapter.
func (b *Bridge) Start() error {
	return b.channel.Start()
}

// SocketPath returns the endpoint the debug adapter should dial.
func (b *Bridge) SocketPath() string {
	return b.channel.SocketPath()
}

// Settings returns the loaded project settings.
func (b *Bridge) Settings() *settings.Settings {
	return b.settings
}

// Doctor checks the toolchain prerequisites for a platform, logging a
// warning for anything missing. The results let the extension surface
// install hints before the first launch fails.
func (b *Bridge) Doctor(platform string) []cli.CheckResult {
	var results []cli.CheckResult
	for _, prereq := range cli.PlatformPrerequisites(platform) {
		result := cli.Check(prereq)
		if !result.Found {
			b.log.Warn("missing toolchain prerequisite",
				"tool", prereq.Name, "platform", platform, "install", prereq.InstallURL)
		}
		results = append(results, result)
	}
	return results
}

// Dispose tears the bridge down: the channel (and with it any device log
// monitor) first, then the owned packager process. Idempotent.
func (b *Bridge) Dispose() error {
	err := b.channel.Dispose()
	if stopErr := b.packager.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}
