// pkg/settings/settings.go - tool-level settings for PEDeploy.
//
// Settings carry the storage roots the catalog core scans. They are
// injected everywhere instead of hardcoding mapped-drive letters so the
// resolver can be pointed at a temporary root under test.

package settings

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsPath is where the WinPE image carries the tool configuration.
const SettingsPath = `X:\ProgramData\PEDeploy\pedeploy.yaml`

// Settings holds the configurable options for PEDeploy in YAML format.
type Settings struct {
	BaseImagesRoot     string `yaml:"BaseImagesRoot"`     // root of the Windows/<version>/<build> tree
	CustomerImagesRoot string `yaml:"CustomerImagesRoot"` // root of per-customer image directories
	CustomerConfigRoot string `yaml:"CustomerConfigRoot"` // root of per-customer Config.json directories
	DefaultCustomer    string `yaml:"DefaultCustomer"`    // fallback customer profile name
	LogRoot            string `yaml:"LogRoot"`
	LogLevel           string `yaml:"LogLevel"`
	Debug              bool   `yaml:"Debug"`
	Verbose            bool   `yaml:"Verbose"`
}

// Load reads settings from the YAML file at path (SettingsPath when empty).
// If the file doesn't exist it falls back to registry policy values on
// Windows, and finally to built-in defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Settings file does not exist: %s", path)

		if s, regErr := loadFromRegistry(); regErr == nil {
			log.Printf("Loaded settings from registry policy values")
			return s, nil
		}

		log.Printf("No settings file or registry policy found, using defaults")
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// Save writes the settings back to the YAML file.
func Save(s *Settings, path string) error {
	if path == "" {
		path = SettingsPath
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Default provides the built-in settings matching the standard WinPE
// drive mappings.
func Default() *Settings {
	return &Settings{
		BaseImagesRoot:     `W:\Images`,
		CustomerImagesRoot: `Z:\CustomerImages`,
		CustomerConfigRoot: `Z:\Customers`,
		DefaultCustomer:    "Default",
		LogRoot:            `X:\ProgramData\PEDeploy\logs`,
		LogLevel:           "INFO",
	}
}

// applyDefaults fills any field left empty by a partial settings file.
func (s *Settings) applyDefaults() {
	d := Default()
	if s.BaseImagesRoot == "" {
		s.BaseImagesRoot = d.BaseImagesRoot
	}
	if s.CustomerImagesRoot == "" {
		s.CustomerImagesRoot = d.CustomerImagesRoot
	}
	if s.CustomerConfigRoot == "" {
		s.CustomerConfigRoot = d.CustomerConfigRoot
	}
	if s.DefaultCustomer == "" {
		s.DefaultCustomer = d.DefaultCustomer
	}
	if s.LogRoot == "" {
		s.LogRoot = d.LogRoot
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
}
