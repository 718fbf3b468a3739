// Package filter runs the accelerator fine filter: fixed-capacity candidate
// buffers and a compiled kernel bound to its combined tables.
package filter

import (
	"errors"
	"fmt"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
)

// ErrCapacity reports an input batch or survivor count beyond the fixed
// buffer sizes.
var ErrCapacity = errors.New("buffer too small")

const (
	MaxInputs  = 1 << 16
	MaxOutputs = kernelgen.DefaultMaxOutputs

	InputWords  = 1 + MaxInputs*layout.Words
	OutputWords = 1 + MaxOutputs*layout.Words
)

// Buffers is one pipeline slot: host mirrors of the input and output arrays
// plus their device buffers and bind group, all sized once.
//
// A Buffers is not safe for concurrent use; the pipeline alternates two of
// them so one can be filled while the other is on the device.
type Buffers struct {
	inputs  []uint32
	outputs []uint32

	input   accel.Buffer
	output  accel.Buffer
	staging accel.Buffer
	group   accel.BindGroup
}

func NewBuffers(s *accel.Session) (*Buffers, error) {
	dev := s.Device()
	input, err := dev.CreateBuffer(InputWords, accel.UsageStorage|accel.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("create input buffer: %w", err)
	}
	output, err := dev.CreateBuffer(OutputWords, accel.UsageStorage|accel.UsageCopySrc|accel.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("create output buffer: %w", err)
	}
	staging, err := dev.CreateBuffer(OutputWords, accel.UsageMapRead|accel.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	group, err := dev.CreateBindGroup(input, output)
	if err != nil {
		return nil, fmt.Errorf("create data bind group: %w", err)
	}
	return &Buffers{
		inputs:  make([]uint32, InputWords),
		outputs: make([]uint32, OutputWords),
		input:   input,
		output:  output,
		staging: staging,
		group:   group,
	}, nil
}

// Capacity is the most candidates one batch can hold.
func (b *Buffers) Capacity() int {
	return MaxInputs
}

// Len is the number of candidates currently staged.
func (b *Buffers) Len() int {
	return int(b.inputs[0])
}

// SetInputs replaces the staged batch. Nothing is written when the batch does
// not fit.
func (b *Buffers) SetInputs(cands []layout.Candidate) error {
	if len(cands) > MaxInputs {
		return fmt.Errorf("%w: %d candidates, capacity %d", ErrCapacity, len(cands), MaxInputs)
	}
	b.inputs[0] = uint32(len(cands))
	for i, c := range cands {
		c.Put(b.inputs[1+i*layout.Words:])
	}
	return nil
}

// Candidates decodes the staged batch.
func (b *Buffers) Candidates() []layout.Candidate {
	out := make([]layout.Candidate, b.Len())
	for i := range out {
		out[i] = layout.DecodeCandidate(b.inputs[1+i*layout.Words:])
	}
	return out
}

// SurvivorCount is the raw device count from the last run. It exceeds
// MaxOutputs when survivors were dropped.
func (b *Buffers) SurvivorCount() int {
	return int(b.outputs[0])
}

// Survivors decodes the output mirror of the last run.
func (b *Buffers) Survivors() ([]layout.Survivor, error) {
	n := b.SurvivorCount()
	if n > MaxOutputs {
		return nil, fmt.Errorf("%w: %d survivors, capacity %d", ErrCapacity, n, MaxOutputs)
	}
	out := make([]layout.Survivor, n)
	for i := range out {
		out[i] = layout.DecodeSurvivor(b.outputs[1+i*layout.Words:])
	}
	return out, nil
}
