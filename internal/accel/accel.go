// Package accel is the small compute-device surface the fine filter needs:
// word buffers, bind groups, one program per kernel and a blocking command
// submission. Implementations live under internal/backend.
package accel

import (
	"context"
	"errors"
	"fmt"
)

// ErrDevice reports accelerator initialization, compilation, submission or
// read-back failures.
var ErrDevice = errors.New("accelerator error")

// Errorf wraps a device failure so callers can match ErrDevice.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDevice, fmt.Sprintf(format, args...))
}

type BufferUsage uint8

const (
	UsageStorage BufferUsage = 1 << iota
	UsageCopySrc
	UsageCopyDst
	UsageMapRead
)

func (u BufferUsage) Has(f BufferUsage) bool {
	return u&f == f
}

func (u BufferUsage) String() string {
	names := []string{"storage", "copy-src", "copy-dst", "map-read"}
	out := ""
	for i, n := range names {
		if u&(1<<i) == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n
	}
	if out == "" {
		return "none"
	}
	return out
}

type Info struct {
	Backend     string `json:"backend"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Limits struct {
	MaxWorkgroupsPerDimension  uint32 `json:"max_workgroups_per_dimension"`
	MaxWorkgroupStorageSize    int    `json:"max_workgroup_storage_size"`
	MaxInvocationsPerWorkgroup int    `json:"max_invocations_per_workgroup"`
}

// Buffer is a device allocation measured in u32 words.
type Buffer interface {
	Words() int
	Usage() BufferUsage
}

// BindGroup is an ordered set of buffers bound together to one dispatch slot.
type BindGroup interface {
	Buffers() []Buffer
}

type Program interface {
	Entry() string
	Fingerprint() string
}

// HostProgram runs one invocation directly on host memory. Bindings are
// indexed [group][binding].
type HostProgram interface {
	Invoke(id uint64, bindings [][][]uint32)
}

// ProgramSource is everything a device may need to build a program. Devices
// that compile text use Text; host devices run Host.
type ProgramSource struct {
	Entry         string
	Text          string
	Fingerprint   string
	WorkgroupSize int
	SharedBytes   int
	Host          HostProgram
}

type Device interface {
	Info() Info
	Limits() Limits
	CreateBuffer(words int, usage BufferUsage) (Buffer, error)
	// WriteBuffer copies data into b starting at word offset.
	WriteBuffer(b Buffer, offset int, data []uint32) error
	CreateBindGroup(buffers ...Buffer) (BindGroup, error)
	CreateProgram(ctx context.Context, src ProgramSource) (Program, error)
	// Submit runs the commands in order and returns once all of them have
	// completed on the device.
	Submit(ctx context.Context, cmds []Command) error
	// ReadBuffer maps a map-read buffer and copies len(dst) words out.
	ReadBuffer(ctx context.Context, b Buffer, dst []uint32) error
	Close() error
}
