//go:build !cuda

package backend

import (
	"fmt"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/backend/cpu"
)

const cudaEnabled = false

func newCPU(opts Options) accel.Device {
	return cpu.New(opts.Workers)
}

func newCUDA(Options) (accel.Device, error) {
	return nil, fmt.Errorf("%w: cuda backend is not available in this build", accel.ErrDevice)
}
