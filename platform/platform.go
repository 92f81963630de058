// Package platform resolves platform identifiers to concrete launch
// capability implementations. Variants are a closed set selected by
// Resolve; every variant implements the same four launch operations.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbergman/mobilebridge/editor"
	"github.com/rbergman/mobilebridge/exec"
	"github.com/rbergman/mobilebridge/packager"
)

// ErrUnknownPlatform is returned by Resolve for identifiers outside the
// supported set.
var ErrUnknownPlatform = errors.New("unknown platform")

// Target kinds a launch can aim at.
const (
	TargetSimulator = "simulator"
	TargetDevice    = "device"
)

// Platform is the capability interface every variant implements. A
// Platform is created fresh per launch and never shared; its dependencies
// (packager, monitor holder) are long-lived and shared.
type Platform interface {
	StartPackager(ctx context.Context) error
	PrewarmBundleCache(ctx context.Context) error
	RunApp(ctx context.Context) error
	EnableJSDebuggingMode(ctx context.Context) error
}

// Options are the effective per-launch options after request merging.
type Options struct {
	Platform        string
	Target          string
	RunArguments    []string
	LogCatArguments string // filter arguments joined into one string
	Variant         string
	Scheme          string
	PackagerPort    int
	ProjectRoot     string
}

// Dependencies are the long-lived collaborators shared across launches
// for one project.
type Dependencies struct {
	Packager *packager.Packager
	Monitors *editor.MonitorHolder
	Executor exec.CommandExecutor
	Log      *slog.Logger
}

// Resolve maps a platform identifier to a fresh Platform. Deterministic;
// no state is retained between calls.
func Resolve(platformID string, opts Options, deps Dependencies) (Platform, error) {
	switch platformID {
	case "android":
		return &androidPlatform{opts: opts, deps: deps}, nil
	case "ios":
		return &iosPlatform{opts: opts, deps: deps}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platformID)
	}
}

// Supported reports whether the identifier is in the supported set.
func Supported(platformID string) bool {
	switch platformID {
	case "android", "ios":
		return true
	}
	return false
}
