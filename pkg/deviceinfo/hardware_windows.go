// pkg/deviceinfo/hardware_windows.go - WMI hardware identity queries.

package deviceinfo

import (
	"strings"

	"github.com/yusufpapurcu/wmi"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

type win32ComputerSystem struct {
	Manufacturer string
	Model        string
}

type win32BIOS struct {
	SerialNumber string
}

// collectHardware fills manufacturer, model and serial from WMI.
func collectHardware(info *Info) {
	var systems []win32ComputerSystem
	if err := wmi.Query("SELECT Manufacturer, Model FROM Win32_ComputerSystem", &systems); err == nil && len(systems) > 0 {
		info.Manufacturer = strings.TrimSpace(systems[0].Manufacturer)
		info.Model = strings.TrimSpace(systems[0].Model)
	} else {
		logging.Debug("Win32_ComputerSystem query failed", "error", err)
	}

	var bios []win32BIOS
	if err := wmi.Query("SELECT SerialNumber FROM Win32_BIOS", &bios); err == nil && len(bios) > 0 {
		info.SerialNumber = strings.TrimSpace(bios[0].SerialNumber)
	} else {
		logging.Debug("Win32_BIOS query failed", "error", err)
	}
}
