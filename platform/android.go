package platform

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rbergman/mobilebridge/editor"
)

// androidPlatform drives the Android toolchain through the react-native
// CLI and adb.
type androidPlatform struct {
	opts Options
	deps Dependencies
}

func (p *androidPlatform) StartPackager(ctx context.Context) error {
	return p.deps.Packager.Start(ctx)
}

func (p *androidPlatform) PrewarmBundleCache(ctx context.Context) error {
	return p.deps.Packager.Prewarm(ctx, "android")
}

func (p *androidPlatform) RunApp(ctx context.Context) error {
	args := []string{"react-native", "run-android", "--port", strconv.Itoa(p.opts.PackagerPort), "--no-packager"}
	if p.opts.Target == TargetDevice {
		args = append(args, "--device")
	}
	if p.opts.Variant != "" {
		args = append(args, "--variant", p.opts.Variant)
	}
	args = append(args, p.opts.RunArguments...)

	_, stderr, err := p.deps.Executor.Run(ctx, p.opts.ProjectRoot, "npx", args...)
	if err != nil {
		return fmt.Errorf("failed to run app on android: %w (%s)", err, stderr)
	}

	// Device logs start flowing as soon as the app does; keep the
	// monitor in the shared holder so the channel can release it.
	monitor := editor.NewLogCatMonitor("", p.opts.LogCatArguments, p.deps.Executor, p.deps.Log)
	if err := monitor.Start(ctx); err != nil {
		p.deps.Log.Warn("logcat monitoring unavailable", "error", err)
		return nil
	}
	p.deps.Monitors.Set(monitor)
	return nil
}

func (p *androidPlatform) EnableJSDebuggingMode(ctx context.Context) error {
	return p.deps.Packager.EnableJSDebugging(ctx)
}
