// pkg/deviceinfo/deviceinfo.go - target machine facts for the deployment record.
//
// Collection is best-effort: a field that can't be read stays empty and
// never blocks a deployment. The core passes Info through to the
// selection untouched.

package deviceinfo

import (
	"math"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

// Info describes the machine being deployed.
type Info struct {
	Hostname     string  `json:"hostname,omitempty"`
	OSVersion    string  `json:"os_version,omitempty"`
	Architecture string  `json:"architecture"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	Model        string  `json:"model,omitempty"`
	SerialNumber string  `json:"serial_number,omitempty"`
	MemoryGB     float64 `json:"memory_gb,omitempty"`
	DiskGB       float64 `json:"disk_gb,omitempty"`
}

// Collect gathers device facts for the current machine.
func Collect() Info {
	info := Info{Architecture: runtime.GOARCH}

	if hostInfo, err := host.Info(); err == nil {
		info.Hostname = hostInfo.Hostname
		info.OSVersion = hostInfo.PlatformVersion
	} else {
		logging.Debug("Host info unavailable", "error", err)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryGB = roundGB(vm.Total)
	}

	systemRoot := "/"
	if runtime.GOOS == "windows" {
		systemRoot = `C:\`
	}
	if usage, err := disk.Usage(systemRoot); err == nil {
		info.DiskGB = roundGB(usage.Total)
	}

	collectHardware(&info)
	return info
}

func roundGB(bytes uint64) float64 {
	return math.Round(float64(bytes)/(1<<30)*100) / 100
}
