//go:build cuda

package backend

import (
	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/backend/cpu"
	"github.com/samcharles93/seedscan/internal/backend/cuda"
)

const cudaEnabled = true

func newCPU(opts Options) accel.Device {
	return cpu.New(opts.Workers)
}

func newCUDA(opts Options) (accel.Device, error) {
	return cuda.New(opts.Ordinal)
}
