//go:build !windows

package deviceinfo

// WMI hardware identity is only available on Windows.
func collectHardware(info *Info) {}
