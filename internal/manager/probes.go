package manager

import "context"

// GPUProbe reports GPU utilization. The probe is chosen once at startup;
// a host without a supported GPU gets one that is always unavailable.
type GPUProbe interface {
	Name() string
	Utilization() (float64, bool)
	Close() error
}

// FanProbe reports the speed of the first fan sensor found.
type FanProbe interface {
	RPM(ctx context.Context) (uint64, bool)
}

type noGPU struct{}

func (noGPU) Name() string                 { return "none" }
func (noGPU) Utilization() (float64, bool) { return 0, false }
func (noGPU) Close() error                 { return nil }

type noFan struct{}

func (noFan) RPM(context.Context) (uint64, bool) { return 0, false }
