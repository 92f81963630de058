package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbergman/mobilebridge/paths"
)

func setup(t *testing.T) string {
	t.Helper()
	Reset()
	paths.Reset()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Cleanup(func() {
		Reset()
		paths.Reset()
	})
	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := Init(logPath); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return logPath
}

func TestInit_WritesToFile(t *testing.T) {
	logPath := setup(t)

	Get().Info("hello", "key", "value")
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), "key=value") {
		t.Errorf("log file missing attribute: %s", data)
	}
}

func TestInit_Idempotent(t *testing.T) {
	logPath := setup(t)

	// Second Init with a different path is a no-op.
	otherPath := filepath.Join(t.TempDir(), "other.log")
	if err := Init(otherPath); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}

	Get().Info("after second init")
	Close()

	if _, err := os.Stat(otherPath); !os.IsNotExist(err) {
		t.Error("second Init should not have created a new log file")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "after second init") {
		t.Error("entry after second Init missing from original file")
	}
}

func TestWithComponent(t *testing.T) {
	logPath := setup(t)

	WithComponent("rpc").Info("component log")
	Close()

	data, _ := os.ReadFile(logPath)
	if !strings.Contains(string(data), "component=rpc") {
		t.Errorf("log missing component field: %s", data)
	}
}

func TestWithProject(t *testing.T) {
	logPath := setup(t)

	WithProject("/home/dev/myapp").Info("project log")
	Close()

	data, _ := os.ReadFile(logPath)
	if !strings.Contains(string(data), "project=/home/dev/myapp") {
		t.Errorf("log missing project field: %s", data)
	}
}

func TestSetDebug(t *testing.T) {
	logPath := setup(t)

	Get().Debug("hidden")
	SetDebug(true)
	Get().Debug("visible")
	SetDebug(false)
	Close()

	data, _ := os.ReadFile(logPath)
	if strings.Contains(string(data), "msg=hidden") {
		t.Error("debug entry logged while debug disabled")
	}
	if !strings.Contains(string(data), "msg=visible") {
		t.Error("debug entry missing while debug enabled")
	}
}
