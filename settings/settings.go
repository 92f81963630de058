// Package settings provides the project settings consumed by the bridge:
// the packager port, per-platform default run arguments, and the project
// root the messaging socket is derived from.
package settings

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rbergman/mobilebridge/paths"
)

// DefaultPackagerPort is used when the settings file does not set one.
const DefaultPackagerPort = 8081

// Settings holds the project configuration. Zero value plus a project
// root is a valid configuration with all defaults.
type Settings struct {
	PackagerPort int `yaml:"packagerPort,omitempty"`

	// RunArguments maps "platform/target" (e.g. "android/device",
	// "ios/simulator") to the default run arguments for that pair.
	RunArguments map[string][]string `yaml:"runArguments,omitempty"`

	// BuildVariant and Scheme are optional build defaults applied when
	// a launch request omits them.
	BuildVariant string `yaml:"buildVariant,omitempty"`
	Scheme       string `yaml:"scheme,omitempty"`

	mu          sync.RWMutex
	projectRoot string
}

// Load reads .mobilebridge/settings.yaml under the project root. A missing
// file yields defaults; a malformed file is an error.
func Load(projectRoot string) (*Settings, error) {
	s := &Settings{projectRoot: projectRoot}

	data, err := os.ReadFile(paths.SettingsFilePath(projectRoot))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.PackagerPort < 0 || s.PackagerPort > 65535 {
		return fmt.Errorf("packagerPort %d out of range", s.PackagerPort)
	}
	return nil
}

// ProjectRoot returns the project root this settings instance was loaded for.
func (s *Settings) ProjectRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectRoot
}

// GetPackagerPort returns the configured packager port, defaulting to 8081.
func (s *Settings) GetPackagerPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.PackagerPort == 0 {
		return DefaultPackagerPort
	}
	return s.PackagerPort
}

// DefaultRunArguments returns the default run arguments for a
// platform/target pair. Returns a copy; callers may append freely.
func (s *Settings) DefaultRunArguments(platform, target string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	args, ok := s.RunArguments[platform+"/"+target]
	if !ok {
		return nil
	}
	out := make([]string, len(args))
	copy(out, args)
	return out
}

// GetBuildVariant returns the default build variant, or empty.
func (s *Settings) GetBuildVariant() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BuildVariant
}

// GetScheme returns the default build scheme, or empty.
func (s *Settings) GetScheme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Scheme
}
