package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbergman/mobilebridge/settings"
	"github.com/rbergman/mobilebridge/telemetry"
)

// fakeDocuments records editor calls.
type fakeDocuments struct {
	mu       sync.Mutex
	opened   []string
	lines    []int
	messages []string
	openErr  error
}

func (d *fakeDocuments) OpenFileAtLocation(filePath string, line int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = append(d.opened, filePath)
	d.lines = append(d.lines, line)
	return nil
}

func (d *fakeDocuments) ShowInformationMessage(message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
	return nil
}

// fakeMonitor counts disposals.
type fakeMonitor struct {
	mu       sync.Mutex
	disposed int
}

func (m *fakeMonitor) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed++
	return nil
}

type bridgeFixture struct {
	channel   *Channel
	client    *Client
	documents *fakeDocuments
	sink      *telemetry.CapturingSink

	mu         sync.Mutex
	launched   []LaunchRequest
	launchErr  error
	launchHook func(ctx context.Context, req LaunchRequest) error
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	f := &bridgeFixture{
		documents: &fakeDocuments{},
		sink:      telemetry.NewCapturingSink(),
	}
	f.channel = NewChannel(t.TempDir(), nil, discardLogger())
	t.Cleanup(func() { f.channel.Dispose() })

	err := RegisterMethods(f.channel, Collaborators{
		Settings:  &settings.Settings{PackagerPort: 9090},
		Telemetry: f.sink,
		Documents: f.documents,
		Launch: func(ctx context.Context, req LaunchRequest) error {
			f.mu.Lock()
			f.launched = append(f.launched, req)
			hook := f.launchHook
			err := f.launchErr
			f.mu.Unlock()
			if hook != nil {
				return hook(ctx, req)
			}
			return err
		},
	})
	if err != nil {
		t.Fatalf("RegisterMethods failed: %v", err)
	}
	if err := f.channel.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.client, err = Dial(f.channel.SocketPath())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { f.client.Close() })
	return f
}

func TestHandlers_GetPackagerPort(t *testing.T) {
	f := newBridgeFixture(t)

	var result PackagerPortResult
	if err := f.client.Call(MethodGetPackagerPort, nil, &result); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.Port != 9090 {
		t.Errorf("port = %d, want 9090", result.Port)
	}
}

func TestHandlers_SendTelemetry(t *testing.T) {
	f := newBridgeFixture(t)

	params := TelemetryParams{
		ExtensionID:      "mobilebridge",
		ExtensionVersion: "1.2.3",
		EventName:        "debugSessionStarted",
		Properties:       map[string]string{"platform": "android"},
		Measures:         map[string]float64{"durationMs": 420},
	}
	if err := f.client.Call(MethodSendTelemetry, params, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	events := f.sink.Events()
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	e := events[0]
	if e.EventName != "debugSessionStarted" || e.ExtensionID != "mobilebridge" {
		t.Errorf("event = %+v", e)
	}
	if e.Properties["platform"] != "android" || e.Measures["durationMs"] != 420 {
		t.Errorf("event payload = %+v", e)
	}
}

func TestHandlers_OpenFileAtLocation(t *testing.T) {
	f := newBridgeFixture(t)

	params := OpenFileParams{FilePath: "/src/App.js", LineNumber: 42}
	if err := f.client.Call(MethodOpenFileAtLocation, params, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if len(f.documents.opened) != 1 || f.documents.opened[0] != "/src/App.js" || f.documents.lines[0] != 42 {
		t.Errorf("opened = %v at %v", f.documents.opened, f.documents.lines)
	}
}

func TestHandlers_OpenFileAtLocationFailureSurfaces(t *testing.T) {
	f := newBridgeFixture(t)
	f.documents.openErr = errors.New("document not found")

	err := f.client.Call(MethodOpenFileAtLocation, OpenFileParams{FilePath: "/gone.js", LineNumber: 1}, nil)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Message != "document not found" {
		t.Errorf("error = %v, want the document error", err)
	}
}

func TestHandlers_OpenFileAtLocationRejectsInvalidParams(t *testing.T) {
	f := newBridgeFixture(t)

	err := f.client.Call(MethodOpenFileAtLocation, OpenFileParams{FilePath: "/src/App.js", LineNumber: 0}, nil)
	if err == nil {
		t.Error("expected error for 0 line number")
	}
	if len(f.documents.opened) != 0 {
		t.Errorf("document opened despite invalid params: %v", f.documents.opened)
	}
}

func TestHandlers_ShowInformationMessage(t *testing.T) {
	f := newBridgeFixture(t)

	if err := f.client.Call(MethodShowInformationMessage, ShowMessageParams{Message: "build done"}, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if len(f.documents.messages) != 1 || f.documents.messages[0] != "build done" {
		t.Errorf("messages = %v", f.documents.messages)
	}
}

func TestHandlers_ShowDevMenuEmitsNotification(t *testing.T) {
	f := newBridgeFixture(t)

	if err := f.client.Call(MethodShowDevMenu, DeviceParams{DeviceID: "emulator-5554"}, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	select {
	case n := <-f.client.Notifications():
		if n.Method != NotificationShowDevMenu {
			t.Errorf("method = %q", n.Method)
		}
		var p DeviceParams
		if err := json.Unmarshal(n.Params, &p); err != nil || p.DeviceID != "emulator-5554" {
			t.Errorf("params = %s (err %v)", n.Params, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("emitShowDevMenu not delivered")
	}
}

func TestHandlers_ReloadAppEmitsNotification(t *testing.T) {
	f := newBridgeFixture(t)

	if err := f.client.Call(MethodReloadApp, DeviceParams{}, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	select {
	case n := <-f.client.Notifications():
		if n.Method != NotificationReloadApp {
			t.Errorf("method = %q", n.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("emitReloadApp not delivered")
	}
}

func TestHandlers_StopMonitoringLogCat(t *testing.T) {
	f := newBridgeFixture(t)

	monitor := &fakeMonitor{}
	f.channel.Monitors().Set(monitor)

	if err := f.client.Call(MethodStopMonitoringLogCat, nil, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if monitor.disposed != 1 {
		t.Errorf("disposed = %d, want 1", monitor.disposed)
	}

	// Calling again with no active monitor is a no-op.
	if err := f.client.Call(MethodStopMonitoringLogCat, nil, nil); err != nil {
		t.Errorf("second call failed: %v", err)
	}
	if monitor.disposed != 1 {
		t.Errorf("disposed = %d after second stop", monitor.disposed)
	}
}

func TestHandlers_LaunchDecodesWireRequest(t *testing.T) {
	f := newBridgeFixture(t)

	raw := json.RawMessage(`{
		"platform": "android",
		"target": "device",
		"logCatArguments": ["-s", "ReactNative"]
	}`)
	if err := f.client.Call(MethodLaunch, raw, nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.launched) != 1 {
		t.Fatalf("launched = %v", f.launched)
	}
	req := f.launched[0]
	if req.Platform != "android" || req.Target != "device" {
		t.Errorf("request = %+v", req)
	}
	if req.LogCatArguments != "-s ReactNative" {
		t.Errorf("LogCatArguments = %q", req.LogCatArguments)
	}
}

func TestHandlers_LaunchFailureSurfacesStepError(t *testing.T) {
	f := newBridgeFixture(t)
	f.mu.Lock()
	f.launchErr = errors.New("runApp: device not found")
	f.mu.Unlock()

	err := f.client.Call(MethodLaunch, LaunchRequest{Platform: "android"}, nil)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Message != "runApp: device not found" {
		t.Errorf("error = %v, want the step's own error", err)
	}
}

func TestHandlers_ConcurrentLaunchesResolveIndependently(t *testing.T) {
	f := newBridgeFixture(t)

	androidEntered := make(chan struct{})
	release := make(chan struct{})
	f.mu.Lock()
	f.launchHook = func(ctx context.Context, req LaunchRequest) error {
		if req.Platform == "android" {
			close(androidEntered)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return errors.New(`unsupported platform: "windows"`)
	}
	f.mu.Unlock()

	androidDone := make(chan error, 1)
	go func() {
		androidDone <- f.client.Call(MethodLaunch, LaunchRequest{Platform: "android"}, nil)
	}()
	select {
	case <-androidEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("android launch never started")
	}

	// The second launch resolves on its own outcome while the first is
	// still in flight.
	windowsErr := f.client.Call(MethodLaunch, LaunchRequest{Platform: "windows"}, nil)
	var rpcErr *Error
	if !errors.As(windowsErr, &rpcErr) || !strings.Contains(rpcErr.Message, "windows") {
		t.Errorf("windows launch error = %v, want its own rejection", windowsErr)
	}
	select {
	case err := <-androidDone:
		t.Fatalf("android launch finished before release: %v", err)
	default:
	}

	close(release)
	if err := <-androidDone; err != nil {
		t.Errorf("android launch failed: %v", err)
	}
}

func TestHandlers_LaunchRejectsMissingPlatform(t *testing.T) {
	f := newBridgeFixture(t)

	err := f.client.Call(MethodLaunch, LaunchRequest{}, nil)
	if err == nil {
		t.Error("expected error for missing platform")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.launched) != 0 {
		t.Errorf("launch invoked despite invalid request: %v", f.launched)
	}
}
