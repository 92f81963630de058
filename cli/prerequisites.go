// Package cli checks for the external toolchain binaries the bridge
// shells out to.
package cli

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Prerequisite represents a required CLI tool.
type Prerequisite struct {
	Name        string // Command name (e.g., "adb", "node")
	Required    bool   // Whether the tool is required for any launch at all
	Description string
	InstallURL  string
}

// PlatformPrerequisites returns the CLI tools a platform's launch path
// shells out to.
func PlatformPrerequisites(platform string) []Prerequisite {
	node := Prerequisite{
		Name:        "node",
		Required:    true,
		Description: "Node.js runtime (runs the packager)",
		InstallURL:  "https://nodejs.org",
	}

	switch platform {
	case "android":
		return []Prerequisite{
			node,
			{
				Name:        "adb",
				Required:    true,
				Description: "Android Debug Bridge",
				InstallURL:  "https://developer.android.com/tools/adb",
			},
		}
	case "ios":
		return []Prerequisite{
			node,
			{
				Name:        "xcrun",
				Required:    true,
				Description: "Xcode command line tools",
				InstallURL:  "https://developer.apple.com/xcode/",
			},
		}
	default:
		return []Prerequisite{node}
	}
}

// CheckResult contains the result of checking a prerequisite.
type CheckResult struct {
	Prerequisite Prerequisite
	Found        bool
	Path         string // Path to the executable if found
	Error        error
}

// Check verifies that a CLI tool is available in PATH.
func Check(prereq Prerequisite) CheckResult {
	result := CheckResult{Prerequisite: prereq}

	path, err := exec.LookPath(prereq.Name)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH", prereq.Name)
		return result
	}

	result.Found = true
	result.Path = path
	return result
}

// ValidateRequired checks that all required prerequisites for a platform
// are met. Returns nil when everything is present, otherwise an error
// describing what is missing.
func ValidateRequired(platform string) error {
	var missing []string

	for _, prereq := range PlatformPrerequisites(platform) {
		if !prereq.Required {
			continue
		}
		if result := Check(prereq); !result.Found {
			missing = append(missing, fmt.Sprintf("  - %s (%s)\n    Install: %s",
				prereq.Name, prereq.Description, prereq.InstallURL))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required tools for %s:\n%s", platform, strings.Join(missing, "\n"))
	}
	return nil
}

// HostSupports reports whether the current OS can drive the platform at
// all. iOS launches need macOS; Android works everywhere adb does.
func HostSupports(platform string) bool {
	if platform == "ios" {
		return runtime.GOOS == "darwin"
	}
	return true
}
