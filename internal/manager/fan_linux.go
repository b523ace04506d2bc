//go:build linux

package manager

// NewFanProbe returns the hwmon-backed fan reader.
func NewFanProbe() FanProbe {
	return hwmonFan{root: defaultHwmonRoot}
}
