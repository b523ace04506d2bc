//go:build windows

package manager

import (
	"context"
	"time"

	wmi "github.com/StackExchange/wmi"
)

type win32Fan struct {
	Name         string
	DesiredSpeed *uint64
}

// wmiFan queries Win32_Fan. Most consumer boards do not populate the speed,
// in which case the fan is reported unavailable.
type wmiFan struct{}

// NewFanProbe returns the WMI-backed fan reader.
func NewFanProbe() FanProbe {
	return wmiFan{}
}

func (wmiFan) RPM(ctx context.Context) (uint64, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	var fans []win32Fan
	if err := wmi.QueryWithContext(ctx, "SELECT Name, DesiredSpeed FROM Win32_Fan", &fans); err != nil {
		return 0, false
	}
	for _, f := range fans {
		if f.DesiredSpeed != nil {
			return *f.DesiredSpeed, true
		}
	}
	return 0, false
}
