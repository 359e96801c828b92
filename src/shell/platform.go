package shell

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// Platform describes the host OS, for example "ubuntu 24.04".
func Platform() string {
	info, err := host.Info()
	if err == nil {
		if info.PlatformVersion != "" {
			return fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		}
		if info.Platform != "" {
			return info.Platform
		}
	}

	return runtime.GOOS
}
