// pkg/editions/iso.go - ISO mount handles and the PowerShell mounter.
//
// A mounted ISO is the one stateful resource whose lifetime spans the
// whole selection flow (inspect, operator decision, build or cancel).
// Every flow that mounts must dismount; a stale mount is a defect, not
// accepted behavior.

package editions

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

// Mount is a live ISO mount handle. Dismount is idempotent and retries
// once on failure; a second failure is logged for manual cleanup and
// never blocks the operator.
type Mount struct {
	ISOPath    string
	MountPoint string

	dismount func() error
	released bool
}

// NewMount builds a mount handle around a dismount action. Used by the
// production mounter and by test fakes.
func NewMount(isoPath, mountPoint string, dismount func() error) *Mount {
	return &Mount{ISOPath: isoPath, MountPoint: mountPoint, dismount: dismount}
}

// InstallWIM returns the path to the install.wim inside the mounted
// volume; this, not the ISO itself, is what the deployment engine
// applies.
func (m *Mount) InstallWIM() string {
	return filepath.Join(m.MountPoint, "sources", "install.wim")
}

// Dismount releases the mounted volume. Safe to call on a nil handle
// and safe to call twice.
func (m *Mount) Dismount() error {
	if m == nil || m.released {
		return nil
	}
	m.released = true
	if m.dismount == nil {
		return nil
	}

	err := m.dismount()
	if err == nil {
		logging.Info("Dismounted ISO", "iso", m.ISOPath)
		return nil
	}

	logging.Warn("Dismount failed, retrying once", "iso", m.ISOPath, "error", err)
	if err = m.dismount(); err != nil {
		logging.Error("Dismount failed after retry, manual cleanup required",
			"iso", m.ISOPath, "mount", m.MountPoint, "error", err)
		return err
	}
	logging.Info("Dismounted ISO on retry", "iso", m.ISOPath)
	return nil
}

// PowerShellMounter mounts ISOs through Mount-DiskImage.
type PowerShellMounter struct{}

// Mount attaches the ISO and resolves the drive letter Windows assigned
// to it.
func (PowerShellMounter) Mount(isoPath string) (*Mount, error) {
	script := fmt.Sprintf(
		"(Mount-DiskImage -ImagePath '%s' -PassThru | Get-Volume).DriveLetter",
		escapeSingleQuotes(isoPath))
	out, err := exec.Command("powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script).Output()
	if err != nil {
		return nil, fmt.Errorf("Mount-DiskImage failed for %s: %w", isoPath, err)
	}

	letter := strings.TrimSpace(string(out))
	if len(letter) != 1 {
		// Mounted but no volume letter: unwind before reporting.
		_ = dismountDiskImage(isoPath)
		return nil, fmt.Errorf("mounted %s but no drive letter was assigned (got %q)", isoPath, letter)
	}

	mountPoint := letter + `:\`
	logging.Info("Mounted ISO", "iso", isoPath, "mount", mountPoint)
	return NewMount(isoPath, mountPoint, func() error {
		return dismountDiskImage(isoPath)
	}), nil
}

func dismountDiskImage(isoPath string) error {
	script := fmt.Sprintf("Dismount-DiskImage -ImagePath '%s' | Out-Null", escapeSingleQuotes(isoPath))
	if out, err := exec.Command("powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script).CombinedOutput(); err != nil {
		return fmt.Errorf("Dismount-DiskImage failed for %s: %s: %w", isoPath, strings.TrimSpace(string(out)), err)
	}
	return nil
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
