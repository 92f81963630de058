package bridge

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbergman/mobilebridge/exec"
	"github.com/rbergman/mobilebridge/rpc"
)

type noopDocuments struct{}

func (noopDocuments) OpenFileAtLocation(string, int) error { return nil }
func (noopDocuments) ShowInformationMessage(string) error  { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b, err := New(t.TempDir(), Options{
		Documents: noopDocuments{},
		Executor:  exec.NewMockExecutor(),
		Log:       discardLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { b.Dispose() })
	return b
}

func TestNew_RequiresDocumentService(t *testing.T) {
	_, err := New(t.TempDir(), Options{Log: discardLogger()})
	if err == nil {
		t.Error("expected error without a document service")
	}
}

func TestNew_LoadsSettings(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".mobilebridge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("packagerPort: 9191\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := New(root, Options{
		Documents: noopDocuments{},
		Executor:  exec.NewMockExecutor(),
		Log:       discardLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Dispose()

	if got := b.Settings().GetPackagerPort(); got != 9191 {
		t.Errorf("packager port = %d, want 9191", got)
	}
}

func TestBridge_ServesMethodSurface(t *testing.T) {
	b := newTestBridge(t)
	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	client, err := rpc.Dial(b.SocketPath())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	var result rpc.PackagerPortResult
	if err := client.Call(rpc.MethodGetPackagerPort, nil, &result); err != nil {
		t.Fatalf("getPackagerPort failed: %v", err)
	}
	if result.Port != 8081 {
		t.Errorf("port = %d, want default 8081", result.Port)
	}

	if err := client.Call(rpc.MethodStopMonitoringLogCat, nil, nil); err != nil {
		t.Errorf("stopMonitoringLogCat failed: %v", err)
	}
}

func TestBridge_DisposeIdempotent(t *testing.T) {
	b := newTestBridge(t)
	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := b.Dispose(); err != nil {
		t.Errorf("first Dispose: %v", err)
	}
	if err := b.Dispose(); err != nil {
		t.Errorf("second Dispose: %v", err)
	}
}

func TestBridge_DoctorReportsTools(t *testing.T) {
	b := newTestBridge(t)

	results := b.Doctor("android")
	if len(results) != 2 {
		t.Fatalf("results = %v", results)
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Prerequisite.Name] = true
	}
	if !names["node"] || !names["adb"] {
		t.Errorf("expected node and adb checks, got %v", names)
	}
}
