// Package backend selects and opens the accelerator the fine filter runs on.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/logger"
)

const (
	CPU  = "cpu"
	CUDA = "cuda"
	Auto = "auto"
)

type Options struct {
	// Workers bounds the cpu device's dispatch goroutines.
	Workers int
	// Ordinal picks the cuda device.
	Ordinal int
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case CPU, CUDA, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected auto, cpu, or cuda)", backend)
	}
}

// Open returns a session on the named backend. Auto prefers cuda when this
// build has it and a device answers, falling back to cpu.
func Open(ctx context.Context, name string, opts Options) (*accel.Session, error) {
	backend, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	switch backend {
	case CPU:
		return accel.NewSession(newCPU(opts)), nil
	case CUDA:
		dev, err := newCUDA(opts)
		if err != nil {
			return nil, err
		}
		return accel.NewSession(dev), nil
	}

	if Has(CUDA) {
		dev, err := newCUDA(opts)
		if err == nil {
			return accel.NewSession(dev), nil
		}
		log.Warn("cuda unavailable, falling back to cpu", "error", err)
	}
	return accel.NewSession(newCPU(opts)), nil
}
