//go:build !linux && !windows

package manager

// NewFanProbe reports no fan sensor on platforms without a reader.
func NewFanProbe() FanProbe {
	return noFan{}
}
