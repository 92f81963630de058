// Package paths provides centralized path resolution for the bridge's
// on-disk artifacts.
//
// Three kinds of paths exist:
//
//   - The messaging socket: one per project, derived deterministically
//     from the project root so the extension host and the debug adapter
//     agree on the address without coordination.
//   - Logs (XDG_STATE_HOME): transient log files.
//   - Settings: .mobilebridge/settings.yaml inside the project root.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

const (
	settingsDir      = ".mobilebridge"
	settingsFileName = "settings.yaml"

	// socketHashLen is the number of hex characters of the project-root
	// hash used in the socket name. Unix socket paths are capped around
	// 104 characters, so the name must stay short; 12 hex chars gives
	// ~2^48 combinations, making collisions negligible.
	socketHashLen = 12
)

var (
	mu       sync.Mutex
	stateDir string
)

// SocketPath returns the messaging socket path for a project. The same
// project root always yields the same path, in any process.
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	short := hex.EncodeToString(sum[:])[:socketHashLen]
	return filepath.Join(os.TempDir(), "mb-"+short+".sock")
}

// SettingsFilePath returns the path of the project's settings file.
func SettingsFilePath(projectRoot string) string {
	return filepath.Join(projectRoot, settingsDir, settingsFileName)
}

// StateDir returns the directory for transient state (logs), resolving it
// once and caching the result. Honors XDG_STATE_HOME when set.
func StateDir() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if stateDir != "" {
		return stateDir, nil
	}

	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		stateDir = filepath.Join(xdg, "mobilebridge")
		return stateDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	stateDir = filepath.Join(home, ".local", "state", "mobilebridge")
	return stateDir, nil
}

// LogsDir returns the logs directory under the state dir.
func LogsDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// Reset clears the cached state dir. For tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stateDir = ""
}
