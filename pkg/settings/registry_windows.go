// pkg/settings/registry_windows.go - registry policy fallback for settings.
//
// Deployment environments that bake policy into the WinPE image via
// registry values rather than a YAML file land here.

package settings

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// PolicyRegistryPath is the policy key checked when no settings file exists.
const PolicyRegistryPath = `SOFTWARE\PEDeploy\Config`

func loadFromRegistry() (*Settings, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, PolicyRegistryPath, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy registry key %s: %w", PolicyRegistryPath, err)
	}
	defer key.Close()

	s := Default()
	loadString(key, "BaseImagesRoot", &s.BaseImagesRoot)
	loadString(key, "CustomerImagesRoot", &s.CustomerImagesRoot)
	loadString(key, "CustomerConfigRoot", &s.CustomerConfigRoot)
	loadString(key, "DefaultCustomer", &s.DefaultCustomer)
	loadString(key, "LogRoot", &s.LogRoot)
	loadString(key, "LogLevel", &s.LogLevel)
	loadBool(key, "Debug", &s.Debug)
	loadBool(key, "Verbose", &s.Verbose)
	return s, nil
}

// loadString loads a string value from registry if it exists.
func loadString(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
	}
}

// loadBool loads a boolean value from registry if it exists.
// Accepts DWORD 1/0 or the strings "true"/"false".
func loadBool(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
		return
	}
	if val, _, err := key.GetStringValue(valueName); err == nil {
		*target = val == "true" || val == "1"
	}
}
