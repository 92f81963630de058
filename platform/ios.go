package platform

import (
	"context"
	"fmt"
	"strconv"
)

// iosPlatform drives the iOS toolchain through the react-native CLI.
type iosPlatform struct {
	opts Options
	deps Dependencies
}

func (p *iosPlatform) StartPackager(ctx context.Context) error {
	return p.deps.Packager.Start(ctx)
}

func (p *iosPlatform) PrewarmBundleCache(ctx context.Context) error {
	return p.deps.Packager.Prewarm(ctx, "ios")
}

func (p *iosPlatform) RunApp(ctx context.Context) error {
	args := []string{"react-native", "run-ios", "--port", strconv.Itoa(p.opts.PackagerPort), "--no-packager"}
	if p.opts.Target == TargetDevice {
		args = append(args, "--device")
	}
	if p.opts.Scheme != "" {
		args = append(args, "--scheme", p.opts.Scheme)
	}
	args = append(args, p.opts.RunArguments...)

	_, stderr, err := p.deps.Executor.Run(ctx, p.opts.ProjectRoot, "npx", args...)
	if err != nil {
		return fmt.Errorf("failed to run app on ios: %w (%s)", err, stderr)
	}
	return nil
}

func (p *iosPlatform) EnableJSDebuggingMode(ctx context.Context) error {
	return p.deps.Packager.EnableJSDebugging(ctx)
}
