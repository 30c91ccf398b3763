//go:build !windows

package settings

import "errors"

// Registry policy only exists on Windows; elsewhere the caller falls
// through to built-in defaults.
func loadFromRegistry() (*Settings, error) {
	return nil, errors.New("registry policy not available on this platform")
}
