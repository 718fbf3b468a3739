// Package cpu is the software accelerator: it runs a program's host form
// over every invocation of a dispatch, spread across goroutines.
package cpu

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"

	"github.com/samcharles93/seedscan/internal/accel"
)

const (
	// Name matches backend.CPU.
	Name = "cpu"

	maxWorkgroupsPerDimension  = 65535
	maxWorkgroupStorageSize    = 48 << 10
	maxInvocationsPerWorkgroup = 1024

	// chunkGroups is how many workgroups one goroutine claims at a time.
	chunkGroups = 16
)

type Device struct {
	workers int
	info    accel.Info
	closed  atomic.Bool
}

// New returns a device using workers goroutines per dispatch. workers <= 0
// uses GOMAXPROCS.
func New(workers int) *Device {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Device{
		workers: workers,
		info: accel.Info{
			Backend:     Name,
			Name:        strings.TrimSpace(cpuid.CPU.BrandName),
			Description: describe(workers),
		},
	}
}

func describe(workers int) string {
	var features []string
	switch runtime.GOARCH {
	case "amd64":
		if cpu.X86.HasAVX2 {
			features = append(features, "avx2")
		}
		if cpu.X86.HasBMI2 {
			features = append(features, "bmi2")
		}
		if cpu.X86.HasAVX512F {
			features = append(features, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "asimd")
		}
	}
	desc := fmt.Sprintf("%d physical / %d logical cores, %d workers", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, workers)
	if len(features) > 0 {
		desc += ", " + strings.Join(features, " ")
	}
	return desc
}

func (d *Device) Info() accel.Info { return d.info }

func (d *Device) Limits() accel.Limits {
	return accel.Limits{
		MaxWorkgroupsPerDimension:  maxWorkgroupsPerDimension,
		MaxWorkgroupStorageSize:    maxWorkgroupStorageSize,
		MaxInvocationsPerWorkgroup: maxInvocationsPerWorkgroup,
	}
}

type buffer struct {
	data  []uint32
	usage accel.BufferUsage
}

func (b *buffer) Words() int               { return len(b.data) }
func (b *buffer) Usage() accel.BufferUsage { return b.usage }

type bindGroup struct {
	buffers []accel.Buffer
	data    [][]uint32
}

func (g *bindGroup) Buffers() []accel.Buffer { return g.buffers }

type program struct {
	src accel.ProgramSource
}

func (p *program) Entry() string       { return p.src.Entry }
func (p *program) Fingerprint() string { return p.src.Fingerprint }

func (d *Device) check() error {
	if d.closed.Load() {
		return accel.Errorf("cpu device closed")
	}
	return nil
}

func (d *Device) CreateBuffer(words int, usage accel.BufferUsage) (accel.Buffer, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if words <= 0 {
		return nil, accel.Errorf("buffer size %d must be positive", words)
	}
	return &buffer{data: make([]uint32, words), usage: usage}, nil
}

func own(b accel.Buffer) (*buffer, error) {
	cb, ok := b.(*buffer)
	if !ok {
		return nil, accel.Errorf("buffer %T does not belong to the cpu device", b)
	}
	return cb, nil
}

func (d *Device) WriteBuffer(b accel.Buffer, offset int, data []uint32) error {
	if err := d.check(); err != nil {
		return err
	}
	cb, err := own(b)
	if err != nil {
		return err
	}
	if !cb.usage.Has(accel.UsageCopyDst) {
		return accel.Errorf("write target lacks copy-dst usage")
	}
	if offset < 0 || offset+len(data) > len(cb.data) {
		return accel.Errorf("write of %d words at %d exceeds buffer of %d", len(data), offset, len(cb.data))
	}
	copy(cb.data[offset:], data)
	return nil
}

func (d *Device) CreateBindGroup(buffers ...accel.Buffer) (accel.BindGroup, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	g := &bindGroup{buffers: buffers, data: make([][]uint32, len(buffers))}
	for i, b := range buffers {
		cb, err := own(b)
		if err != nil {
			return nil, err
		}
		g.data[i] = cb.data
	}
	return g, nil
}

func (d *Device) CreateProgram(_ context.Context, src accel.ProgramSource) (accel.Program, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if src.Host == nil {
		return nil, accel.Errorf("program %q has no host form", src.Entry)
	}
	if src.WorkgroupSize < 1 || src.WorkgroupSize > maxInvocationsPerWorkgroup {
		return nil, accel.Errorf("workgroup size %d out of range", src.WorkgroupSize)
	}
	if src.SharedBytes > maxWorkgroupStorageSize {
		return nil, accel.Errorf("program needs %d bytes of workgroup storage, limit %d", src.SharedBytes, maxWorkgroupStorageSize)
	}
	return &program{src: src}, nil
}

func (d *Device) Submit(ctx context.Context, cmds []accel.Command) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := accel.Validate(cmds); err != nil {
		return err
	}
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch c := c.(type) {
		case accel.ClearCommand:
			b, err := own(c.Buffer)
			if err != nil {
				return err
			}
			clear(b.data[:c.Words])
		case accel.CopyCommand:
			src, err := own(c.Src)
			if err != nil {
				return err
			}
			dst, err := own(c.Dst)
			if err != nil {
				return err
			}
			copy(dst.data[:c.Words], src.data[:c.Words])
		case accel.DispatchCommand:
			if err := d.dispatch(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Device) dispatch(ctx context.Context, c accel.DispatchCommand) error {
	p, ok := c.Program.(*program)
	if !ok {
		return accel.Errorf("program %T does not belong to the cpu device", c.Program)
	}
	bindings := make([][][]uint32, len(c.Groups))
	for i, g := range c.Groups {
		bg, ok := g.(*bindGroup)
		if !ok {
			return accel.Errorf("bind group %T does not belong to the cpu device", g)
		}
		bindings[i] = bg.data
	}
	for _, n := range c.Workgroups {
		if n > maxWorkgroupsPerDimension {
			return accel.Errorf("workgroup count %d exceeds %d per dimension", n, maxWorkgroupsPerDimension)
		}
	}

	groups := uint64(c.Workgroups[0]) * uint64(c.Workgroups[1]) * uint64(c.Workgroups[2])
	size := uint64(p.src.WorkgroupSize)
	host := p.src.Host

	var next atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	for range d.workers {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				first := next.Add(chunkGroups) - chunkGroups
				if first >= groups {
					return nil
				}
				last := min(first+chunkGroups, groups)
				for id := first * size; id < last*size; id++ {
					host.Invoke(id, bindings)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Device) ReadBuffer(ctx context.Context, b accel.Buffer, dst []uint32) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cb, err := own(b)
	if err != nil {
		return err
	}
	if !cb.usage.Has(accel.UsageMapRead) {
		return accel.Errorf("read source lacks map-read usage")
	}
	if len(dst) > len(cb.data) {
		return accel.Errorf("read of %d words exceeds buffer of %d", len(dst), len(cb.data))
	}
	copy(dst, cb.data)
	return nil
}

func (d *Device) Close() error {
	d.closed.Store(true)
	return nil
}
