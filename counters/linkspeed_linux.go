//go:build linux

package counters

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var sysClassNet = "/sys/class/net"

// readLinkSpeed reports the negotiated speed the kernel exposes in sysfs.
// Virtual and down links report -1 or fail to read; both map to zero.
func readLinkSpeed(name string) int {
	data, err := os.ReadFile(filepath.Join(sysClassNet, name, "speed"))
	if err != nil {
		return 0
	}

	speed, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || speed < 0 {
		return 0
	}

	return speed
}
