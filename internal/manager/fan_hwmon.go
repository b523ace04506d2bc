package manager

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const defaultHwmonRoot = "/sys/class/hwmon"

// hwmonFan reads the first fanN_input under a Linux hwmon tree.
type hwmonFan struct {
	root string
}

func (h hwmonFan) RPM(context.Context) (uint64, bool) {
	matches, err := filepath.Glob(filepath.Join(h.root, "hwmon*", "fan*_input"))
	if err != nil || len(matches) == 0 {
		return 0, false
	}
	sort.Strings(matches)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		rpm, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			continue
		}
		return rpm, true
	}
	return 0, false
}
