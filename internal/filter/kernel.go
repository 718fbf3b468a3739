package filter

import (
	"context"
	"fmt"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/logger"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

type Config struct {
	Ranges        []xrsr.Range
	FilterBits    int
	WorkgroupSize int
}

// Kernel is one compiled fine filter program plus its device-resident
// combined tables. A Kernel may serve any number of Buffers, one Run at a
// time per Buffers.
type Kernel struct {
	session *accel.Session
	module  *kernelgen.Module
	program accel.Program
	table   accel.BindGroup
}

func NewKernel(ctx context.Context, s *accel.Session, cfg Config) (*Kernel, error) {
	module, err := kernelgen.Compile(kernelgen.Options{
		Ranges:        cfg.Ranges,
		FilterBits:    cfg.FilterBits,
		WorkgroupSize: cfg.WorkgroupSize,
		MaxOutputs:    MaxOutputs,
	})
	if err != nil {
		return nil, err
	}

	limits := s.Limits()
	if module.SharedBytes() > limits.MaxWorkgroupStorageSize {
		return nil, fmt.Errorf("%w: combined tables need %d bytes of workgroup storage, device allows %d",
			xrsr.ErrConfig, module.SharedBytes(), limits.MaxWorkgroupStorageSize)
	}
	if module.WorkgroupSize > limits.MaxInvocationsPerWorkgroup {
		return nil, fmt.Errorf("%w: workgroup size %d exceeds device limit %d",
			xrsr.ErrConfig, module.WorkgroupSize, limits.MaxInvocationsPerWorkgroup)
	}

	dev := s.Device()
	program, err := dev.CreateProgram(ctx, accel.ProgramSource{
		Entry:         module.Entry,
		Text:          module.Source,
		Fingerprint:   module.Fingerprint,
		WorkgroupSize: module.WorkgroupSize,
		SharedBytes:   module.SharedBytes(),
		Host:          module,
	})
	if err != nil {
		return nil, err
	}

	words := module.TableWords()
	table, err := dev.CreateBuffer(len(words), accel.UsageStorage|accel.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("create table buffer: %w", err)
	}
	if err := dev.WriteBuffer(table, 0, words); err != nil {
		return nil, fmt.Errorf("upload combined tables: %w", err)
	}
	group, err := dev.CreateBindGroup(table)
	if err != nil {
		return nil, fmt.Errorf("create table bind group: %w", err)
	}

	logger.FromContext(ctx).Debug("fine filter kernel ready",
		"backend", s.Info().Backend,
		"fingerprint", module.Fingerprint,
		"lookups", len(module.Ranges),
		"residual_bits", len(module.Residual),
		"table_bytes", module.SharedBytes(),
	)
	return &Kernel{session: s, module: module, program: program, table: group}, nil
}

func (k *Kernel) Module() *kernelgen.Module {
	return k.module
}

// Run filters the batch staged in b and leaves the survivors in b's output
// mirror. An empty batch resets the survivor count without touching the
// device.
func (k *Kernel) Run(ctx context.Context, b *Buffers) error {
	n := b.Len()
	if n > MaxInputs {
		return fmt.Errorf("%w: %d candidates, capacity %d", ErrCapacity, n, MaxInputs)
	}
	total := uint64(n) << kernelgen.InputBits
	if total > 1<<32 {
		return fmt.Errorf("%w: %d invocations exceed 2^32", ErrCapacity, total)
	}
	if n == 0 {
		b.outputs[0] = 0
		return nil
	}

	x, y, z, err := WorkgroupCounts(total, k.module.WorkgroupSize, k.session.Limits().MaxWorkgroupsPerDimension)
	if err != nil {
		return err
	}

	dev := k.session.Device()
	if err := dev.WriteBuffer(b.input, 0, b.inputs[:1+n*layout.Words]); err != nil {
		return err
	}
	var enc accel.Encoder
	enc.ClearBuffer(b.output, 1)
	enc.Dispatch(k.program, []accel.BindGroup{k.table, b.group}, x, y, z)
	enc.CopyBuffer(b.output, b.staging, OutputWords)
	if err := dev.Submit(ctx, enc.Finish()); err != nil {
		return err
	}
	if err := dev.ReadBuffer(ctx, b.staging, b.outputs); err != nil {
		return err
	}
	if c := b.SurvivorCount(); c > MaxOutputs {
		return fmt.Errorf("%w: %d survivors, capacity %d", ErrCapacity, c, MaxOutputs)
	}
	return nil
}

// WorkgroupCounts spreads total invocations over X, then Y, then Z, each
// capped at maxPerDim. Z must come out as 1.
func WorkgroupCounts(total uint64, workgroupSize int, maxPerDim uint32) (x, y, z uint32, err error) {
	if workgroupSize < 1 || maxPerDim < 1 {
		return 0, 0, 0, accel.Errorf("invalid workgroup size %d or dimension limit %d", workgroupSize, maxPerDim)
	}
	size := uint64(workgroupSize)
	limit := uint64(maxPerDim)
	cx := min(ceilDiv(total, size), limit)
	cy := min(ceilDiv(total, size*max(cx, 1)), limit)
	cz := min(ceilDiv(total, size*max(cx, 1)*max(cy, 1)), limit)
	if cz != 1 {
		return 0, 0, 0, accel.Errorf("%d invocations need %d workgroups along z", total, cz)
	}
	return uint32(cx), uint32(cy), uint32(cz), nil
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
