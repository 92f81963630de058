package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbergman/mobilebridge/exec"
)

// LogCatMonitor streams device logs via adb logcat until disposed.
type LogCatMonitor struct {
	deviceID  string
	arguments string // filter arguments as one space-joined string
	executor  exec.CommandExecutor
	log       *slog.Logger

	mu       sync.Mutex
	handle   exec.CommandHandle
	disposed bool
}

// NewLogCatMonitor creates a monitor for the given device (empty for the
// default device) with the given filter argument string.
func NewLogCatMonitor(deviceID, arguments string, executor exec.CommandExecutor, log *slog.Logger) *LogCatMonitor {
	return &LogCatMonitor{
		deviceID:  deviceID,
		arguments: arguments,
		executor:  executor,
		log:       log,
	}
}

// Start spawns the logcat process.
func (m *LogCatMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return fmt.Errorf("log monitor already disposed")
	}
	if m.handle != nil {
		return nil
	}

	args := []string{}
	if m.deviceID != "" {
		args = append(args, "-s", m.deviceID)
	}
	args = append(args, "logcat")
	if m.arguments != "" {
		args = append(args, strings.Fields(m.arguments)...)
	}

	handle, err := m.executor.Start(ctx, "", "adb", args...)
	if err != nil {
		return fmt.Errorf("failed to start logcat: %w", err)
	}
	m.handle = handle
	m.log.Info("logcat monitoring started", "deviceID", m.deviceID, "arguments", m.arguments)
	return nil
}

// Dispose stops the capture. Idempotent and safe on a never-started monitor.
func (m *LogCatMonitor) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return nil
	}
	m.disposed = true

	if m.handle == nil {
		return nil
	}
	err := m.handle.Kill()
	m.handle = nil
	m.log.Info("logcat monitoring stopped", "deviceID", m.deviceID)
	return err
}

var _ LogMonitor = (*LogCatMonitor)(nil)
