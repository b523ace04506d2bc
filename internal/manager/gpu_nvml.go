//go:build cgo && (linux || windows)

package manager

import (
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"procmon/internal/utils"
)

// nvmlProbe reads utilization of the first NVIDIA device.
type nvmlProbe struct {
	mu     sync.Mutex
	device nvml.Device
	name   string
	closed bool
}

// DetectGPU initialises NVML. Any failure (no driver, no device) yields a probe
// that reports the GPU as unavailable.
func DetectGPU(logger *utils.Logger) GPUProbe {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		logger.Infof("NVIDIA monitoring disabled: %s", nvml.ErrorString(ret))
		return noGPU{}
	}
	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		logger.Infof("NVIDIA monitoring disabled: %s", nvml.ErrorString(ret))
		_ = nvml.Shutdown()
		return noGPU{}
	}
	name, ret := device.GetName()
	if ret != nvml.SUCCESS {
		name = "nvidia:0"
	}
	logger.Infof("NVIDIA monitoring initialised on %s", name)
	return &nvmlProbe{device: device, name: name}
}

func (p *nvmlProbe) Name() string { return p.name }

func (p *nvmlProbe) Utilization() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, false
	}
	rates, ret := p.device.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		return 0, false
	}
	return float64(rates.Gpu), true
}

func (p *nvmlProbe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("nvml shutdown: %s", nvml.ErrorString(ret))
	}
	return nil
}
