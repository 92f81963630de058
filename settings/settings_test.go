package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbergman/mobilebridge/paths"
)

func writeSettings(t *testing.T, root, content string) {
	t.Helper()
	fp := paths.SettingsFilePath(root)
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.GetPackagerPort() != DefaultPackagerPort {
		t.Errorf("GetPackagerPort = %d, want %d", s.GetPackagerPort(), DefaultPackagerPort)
	}
	if args := s.DefaultRunArguments("android", "device"); args != nil {
		t.Errorf("DefaultRunArguments = %v, want nil", args)
	}
	if s.ProjectRoot() != root {
		t.Errorf("ProjectRoot = %q, want %q", s.ProjectRoot(), root)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
packagerPort: 9091
buildVariant: debug
scheme: MyApp
runArguments:
  android/device:
    - "--deviceId"
    - "emulator-5554"
  ios/simulator:
    - "--simulator"
    - "iPhone 15"
`)

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.GetPackagerPort() != 9091 {
		t.Errorf("GetPackagerPort = %d, want 9091", s.GetPackagerPort())
	}
	if s.GetBuildVariant() != "debug" {
		t.Errorf("GetBuildVariant = %q, want 'debug'", s.GetBuildVariant())
	}
	if s.GetScheme() != "MyApp" {
		t.Errorf("GetScheme = %q, want 'MyApp'", s.GetScheme())
	}

	args := s.DefaultRunArguments("android", "device")
	if len(args) != 2 || args[0] != "--deviceId" || args[1] != "emulator-5554" {
		t.Errorf("android/device args = %v", args)
	}

	if args := s.DefaultRunArguments("android", "simulator"); args != nil {
		t.Errorf("unconfigured pair returned %v, want nil", args)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "packagerPort: [not a number\n")

	if _, err := Load(root); err == nil {
		t.Error("expected error for malformed settings file")
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "packagerPort: 70000\n")

	if _, err := Load(root); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestDefaultRunArguments_ReturnsCopy(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
runArguments:
  android/device: ["--deviceId", "abc"]
`)

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	args := s.DefaultRunArguments("android", "device")
	args[0] = "mutated"

	again := s.DefaultRunArguments("android", "device")
	if again[0] != "--deviceId" {
		t.Error("DefaultRunArguments returned a shared slice")
	}
}
