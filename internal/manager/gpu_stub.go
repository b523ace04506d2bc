//go:build !cgo || !(linux || windows)

package manager

import "procmon/internal/utils"

// DetectGPU reports no GPU on builds without NVML support.
func DetectGPU(logger *utils.Logger) GPUProbe {
	logger.Infof("GPU monitoring unavailable on this build")
	return noGPU{}
}
