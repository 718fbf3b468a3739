//go:build cuda

// Package cuda runs generated kernels through the CUDA driver API, compiling
// their source with NVRTC at program creation.
package cuda

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/backend/cuda/native"
)

const Name = "cuda"

// Device owns one CUDA context and the stream every submission runs on.
// Driver calls are serialized and pinned to a locked OS thread.
type Device struct {
	mu     sync.Mutex
	ctx    *native.Context
	stream native.Stream
	info   accel.Info
	limits accel.Limits
	major  int
	minor  int

	buffers []*buffer
	modules []native.Module
	closed  bool
}

func New(ordinal int) (*Device, error) {
	count, err := native.DeviceCount()
	if err != nil {
		return nil, deviceError("device query", err)
	}
	if count <= ordinal {
		return nil, fmt.Errorf("%w: no cuda device %d (%d detected)", accel.ErrDevice, ordinal, count)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, err := native.NewContext(ordinal)
	if err != nil {
		return nil, deviceError("context create", err)
	}
	d := &Device{ctx: ctx}
	if err := d.describe(); err != nil {
		_ = ctx.Destroy()
		return nil, err
	}
	stream, err := native.NewStream()
	if err != nil {
		_ = ctx.Destroy()
		return nil, deviceError("stream create", err)
	}
	d.stream = stream
	return d, nil
}

func (d *Device) describe() error {
	attr := func(a native.Attribute) int {
		v, err := d.ctx.Attribute(a)
		if err != nil {
			return 0
		}
		return v
	}
	name, err := d.ctx.Name()
	if err != nil {
		return deviceError("device name", err)
	}
	d.major = attr(native.AttrComputeCapabilityMajor)
	d.minor = attr(native.AttrComputeCapabilityMinor)
	if d.major == 0 {
		return fmt.Errorf("%w: cuda device reports no compute capability", accel.ErrDevice)
	}
	maxDim := min(attr(native.AttrMaxGridDimX), attr(native.AttrMaxGridDimY), attr(native.AttrMaxGridDimZ))
	d.limits = accel.Limits{
		MaxWorkgroupsPerDimension:  uint32(min(maxDim, 1<<31-1)),
		MaxWorkgroupStorageSize:    attr(native.AttrMaxSharedMemoryPerBlock),
		MaxInvocationsPerWorkgroup: attr(native.AttrMaxThreadsPerBlock),
	}
	d.info = accel.Info{
		Backend:     Name,
		Name:        name,
		Description: fmt.Sprintf("sm_%d%d, %d multiprocessors", d.major, d.minor, attr(native.AttrMultiprocessorCount)),
	}
	return nil
}

func (d *Device) Info() accel.Info     { return d.info }
func (d *Device) Limits() accel.Limits { return d.limits }

// do runs fn with the context current on a locked thread.
func (d *Device) do(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return accel.Errorf("cuda device closed")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := d.ctx.MakeCurrent(); err != nil {
		return deviceError("context bind", err)
	}
	return fn()
}

// buffer is device memory, or pinned host memory for map-read buffers.
type buffer struct {
	dev   native.DeviceBuffer
	host  native.HostBuffer
	words int
	usage accel.BufferUsage
}

func (b *buffer) Words() int               { return b.words }
func (b *buffer) Usage() accel.BufferUsage { return b.usage }
func (b *buffer) mapped() bool             { return b.usage.Has(accel.UsageMapRead) }

type bindGroup struct {
	buffers []accel.Buffer
}

func (g *bindGroup) Buffers() []accel.Buffer { return g.buffers }

type program struct {
	src accel.ProgramSource
	fn  native.Function
}

func (p *program) Entry() string       { return p.src.Entry }
func (p *program) Fingerprint() string { return p.src.Fingerprint }

func own(b accel.Buffer) (*buffer, error) {
	cb, ok := b.(*buffer)
	if !ok {
		return nil, accel.Errorf("buffer %T does not belong to the cuda device", b)
	}
	return cb, nil
}

func (d *Device) CreateBuffer(words int, usage accel.BufferUsage) (accel.Buffer, error) {
	if words <= 0 {
		return nil, accel.Errorf("buffer size %d must be positive", words)
	}
	if usage.Has(accel.UsageMapRead) && usage.Has(accel.UsageStorage) {
		return nil, accel.Errorf("map-read buffers cannot be bound as storage")
	}
	b := &buffer{words: words, usage: usage}
	err := d.do(func() error {
		var err error
		if b.mapped() {
			b.host, err = native.AllocHostPinned(int64(words) * 4)
		} else {
			b.dev, err = native.AllocDevice(int64(words) * 4)
		}
		if err != nil {
			return deviceError("alloc", err)
		}
		d.buffers = append(d.buffers, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) WriteBuffer(b accel.Buffer, offset int, data []uint32) error {
	cb, err := own(b)
	if err != nil {
		return err
	}
	if !cb.usage.Has(accel.UsageCopyDst) || cb.mapped() {
		return accel.Errorf("write target must be a copy-dst device buffer")
	}
	if offset < 0 || offset+len(data) > cb.words {
		return accel.Errorf("write of %d words at %d exceeds buffer of %d", len(data), offset, cb.words)
	}
	return d.do(func() error {
		if err := native.CopyToDevice(cb.dev, offset, data); err != nil {
			return deviceError("upload", err)
		}
		return nil
	})
}

func (d *Device) CreateBindGroup(buffers ...accel.Buffer) (accel.BindGroup, error) {
	for _, b := range buffers {
		cb, err := own(b)
		if err != nil {
			return nil, err
		}
		if cb.mapped() {
			return nil, accel.Errorf("map-read buffer cannot be bound")
		}
	}
	return &bindGroup{buffers: buffers}, nil
}

func (d *Device) CreateProgram(_ context.Context, src accel.ProgramSource) (accel.Program, error) {
	if src.Text == "" {
		return nil, accel.Errorf("program %q has no source", src.Entry)
	}
	if src.WorkgroupSize < 1 || src.WorkgroupSize > d.limits.MaxInvocationsPerWorkgroup {
		return nil, accel.Errorf("workgroup size %d out of range", src.WorkgroupSize)
	}
	if src.SharedBytes > d.limits.MaxWorkgroupStorageSize {
		return nil, accel.Errorf("program needs %d bytes of workgroup storage, limit %d", src.SharedBytes, d.limits.MaxWorkgroupStorageSize)
	}
	p := &program{src: src}
	err := d.do(func() error {
		ptx, err := native.CompilePTX(src.Text, src.Entry+".cu", d.major, d.minor)
		if err != nil {
			return deviceError("compile", err)
		}
		mod, err := native.LoadModule(ptx)
		if err != nil {
			return deviceError("module load", err)
		}
		d.modules = append(d.modules, mod)
		p.fn, err = mod.Function(src.Entry)
		if err != nil {
			return deviceError("function lookup", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Device) Submit(ctx context.Context, cmds []accel.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := accel.Validate(cmds); err != nil {
		return err
	}
	return d.do(func() error {
		for _, c := range cmds {
			if err := d.enqueue(c); err != nil {
				return err
			}
		}
		if err := d.stream.Synchronize(); err != nil {
			return deviceError("synchronize", err)
		}
		return nil
	})
}

func (d *Device) enqueue(c accel.Command) error {
	switch c := c.(type) {
	case accel.ClearCommand:
		b, err := own(c.Buffer)
		if err != nil {
			return err
		}
		if b.mapped() {
			return accel.Errorf("clear of a map-read buffer")
		}
		if err := native.MemsetD32Async(b.dev, 0, int64(c.Words), d.stream); err != nil {
			return deviceError("clear", err)
		}
	case accel.CopyCommand:
		src, err := own(c.Src)
		if err != nil {
			return err
		}
		dst, err := own(c.Dst)
		if err != nil {
			return err
		}
		if src.mapped() {
			return accel.Errorf("copy from a map-read buffer")
		}
		bytes := int64(c.Words) * 4
		if dst.mapped() {
			err = native.CopyToHostAsync(dst.host, src.dev, bytes, d.stream)
		} else {
			err = native.CopyDeviceAsync(dst.dev, src.dev, bytes, d.stream)
		}
		if err != nil {
			return deviceError("copy", err)
		}
	case accel.DispatchCommand:
		p, ok := c.Program.(*program)
		if !ok {
			return accel.Errorf("program %T does not belong to the cuda device", c.Program)
		}
		var args []native.DeviceBuffer
		for _, g := range c.Groups {
			for _, b := range g.Buffers() {
				cb, err := own(b)
				if err != nil {
					return err
				}
				args = append(args, cb.dev)
			}
		}
		if err := native.Launch(p.fn, c.Workgroups, uint32(p.src.WorkgroupSize), 0, d.stream, args...); err != nil {
			return deviceError("launch", err)
		}
	}
	return nil
}

func (d *Device) ReadBuffer(ctx context.Context, b accel.Buffer, dst []uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb, err := own(b)
	if err != nil {
		return err
	}
	if !cb.mapped() {
		return accel.Errorf("read source lacks map-read usage")
	}
	if len(dst) > cb.words {
		return accel.Errorf("read of %d words exceeds buffer of %d", len(dst), cb.words)
	}
	return d.do(func() error {
		copy(dst, cb.host.Words())
		return nil
	})
}

// Close releases the context. Individual buffers and modules live until
// here.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	_ = d.ctx.MakeCurrent()
	for _, m := range d.modules {
		_ = m.Unload()
	}
	for _, b := range d.buffers {
		_ = b.dev.Free()
		_ = b.host.Free()
	}
	_ = d.stream.Destroy()
	if err := d.ctx.Destroy(); err != nil {
		return deviceError("context destroy", err)
	}
	return nil
}
