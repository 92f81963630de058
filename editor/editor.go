// Package editor defines the editor-host collaborators the bridge calls
// through, plus the device log monitor owned by the messaging channel.
package editor

import "sync"

// DocumentService is the editor surface the bridge calls into: opening a
// document at a location and surfacing messages to the user.
type DocumentService interface {
	// OpenFileAtLocation opens the file and moves the cursor to the
	// 1-based line number.
	OpenFileAtLocation(filePath string, line int) error

	// ShowInformationMessage displays a message to the user.
	ShowInformationMessage(message string) error
}

// LogMonitor is a running device log capture.
type LogMonitor interface {
	// Dispose stops the capture. Idempotent.
	Dispose() error
}

// MonitorHolder holds at most one active log monitor for a channel.
// Setting a new monitor disposes the previous one.
type MonitorHolder struct {
	mu      sync.Mutex
	monitor LogMonitor
}

// Set installs a monitor, disposing any previous one.
func (h *MonitorHolder) Set(m LogMonitor) {
	h.mu.Lock()
	prev := h.monitor
	h.monitor = m
	h.mu.Unlock()

	if prev != nil {
		prev.Dispose()
	}
}

// Stop disposes the active monitor, if any. Safe to call repeatedly.
func (h *MonitorHolder) Stop() error {
	h.mu.Lock()
	m := h.monitor
	h.monitor = nil
	h.mu.Unlock()

	if m == nil {
		return nil
	}
	return m.Dispose()
}
