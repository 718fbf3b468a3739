// Package kernelgen turns a precompute partition of the 128-bit selector into
// the fine filter's accelerator kernel.
//
// A compiled Module carries two equivalent forms of the same program: CUDA C
// source for devices that compile text, and an ordered step list that host
// devices execute directly. Both are produced from one step schedule, so the
// order of table lookups and residual XORs is identical in each.
package kernelgen

import (
	"encoding/hex"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/crypto/blake2b"

	"github.com/samcharles93/seedscan/internal/xrsr"
)

const (
	// EntryPoint is the kernel function name in the generated source.
	EntryPoint = "seedscan_filter"

	DefaultWorkgroupSize = 256
	DefaultMaxOutputs    = 1024
	DefaultFilterBits    = 16

	// InputBits is the number of world seed bits enumerated per candidate:
	// every structure seed expands to 2^16 world seeds.
	InputBits           = 16
	InvocationsPerInput = 1 << InputBits

	// RecordWords is the size of one input or output record in u32 words.
	// Both device arrays start with a one-word count.
	RecordWords = 4
	// EntryBytes is the size of one combined table entry.
	EntryBytes = xrsr.StateWords * 4
)

// Options selects the partition and the fixed parameters baked into the
// generated source.
type Options struct {
	Ranges        []xrsr.Range
	FilterBits    int
	WorkgroupSize int
	MaxOutputs    int
}

type StepKind uint8

const (
	// StepLookup XORs a combined table entry selected by one field.
	StepLookup StepKind = iota
	// StepResidual XORs a literal basis image when one selector bit is set.
	StepResidual
)

type Step struct {
	Kind   StepKind
	Range  xrsr.Range
	Offset int
	Bit    int
	Value  xrsr.State
}

// Module is one compiled fine filter.
type Module struct {
	Source        string
	Entry         string
	Fingerprint   string
	Ranges        []xrsr.Range
	Residual      []int
	Steps         []Step
	Table         xrsr.Table
	FilterBits    int
	WorkgroupSize int
	MaxOutputs    int
}

// Compile validates the partition, builds the combined tables in range order
// and renders the kernel.
func Compile(opts Options) (*Module, error) {
	if opts.WorkgroupSize == 0 {
		opts.WorkgroupSize = DefaultWorkgroupSize
	}
	if opts.MaxOutputs == 0 {
		opts.MaxOutputs = DefaultMaxOutputs
	}
	if opts.FilterBits < 0 || opts.FilterBits > 64 {
		return nil, fmt.Errorf("filter bits %d must be in [0, 64]", opts.FilterBits)
	}
	if opts.WorkgroupSize < 1 {
		return nil, fmt.Errorf("workgroup size %d must be positive", opts.WorkgroupSize)
	}
	if opts.MaxOutputs < 1 {
		return nil, fmt.Errorf("max outputs %d must be positive", opts.MaxOutputs)
	}

	mask, err := xrsr.Coverage(opts.Ranges)
	if err != nil {
		return nil, err
	}

	images := xrsr.BasisImages()
	table := make(xrsr.Table, 0, lo.SumBy(opts.Ranges, xrsr.Range.Size))
	lookups := make([]Step, 0, len(opts.Ranges))
	for _, r := range opts.Ranges {
		t, err := images.Table(r.Word, r.First, r.Width)
		if err != nil {
			return nil, err
		}
		lookups = append(lookups, Step{Kind: StepLookup, Range: r, Offset: len(table)})
		table = append(table, t...)
	}
	if len(table) == 0 {
		table = xrsr.ZeroTable()
	}

	residual := mask.Residual()
	residuals := lo.Map(residual, func(bit int, _ int) Step {
		return Step{Kind: StepResidual, Bit: bit, Value: images[bit]}
	})

	m := &Module{
		Entry:         EntryPoint,
		Ranges:        append([]xrsr.Range(nil), opts.Ranges...),
		Residual:      residual,
		Steps:         Interleave(lookups, residuals),
		Table:         table,
		FilterBits:    opts.FilterBits,
		WorkgroupSize: opts.WorkgroupSize,
		MaxOutputs:    opts.MaxOutputs,
	}
	src, err := render(m)
	if err != nil {
		return nil, fmt.Errorf("render kernel: %w", err)
	}
	m.Source = src
	sum := blake2b.Sum256([]byte(src))
	m.Fingerprint = hex.EncodeToString(sum[:16])
	return m, nil
}

// Interleave spreads residual steps across the lookups: after lookup i of L
// come residuals [R*i/L, R*(i+1)/L). Table reads and branchy literal XORs
// then alternate through the instruction stream instead of forming one long
// serial tail. With no lookups the residuals run in order.
func Interleave(lookups, residuals []Step) []Step {
	out := make([]Step, 0, len(lookups)+len(residuals))
	if len(lookups) == 0 {
		return append(out, residuals...)
	}
	l, r := len(lookups), len(residuals)
	for i, step := range lookups {
		out = append(out, step)
		out = append(out, residuals[r*i/l:r*(i+1)/l]...)
	}
	return out
}

// TableEntries is the number of combined table entries held on the device.
func (m *Module) TableEntries() int {
	return len(m.Table)
}

// SharedBytes is the workgroup storage the kernel reserves for its table.
func (m *Module) SharedBytes() int {
	return len(m.Table) * EntryBytes
}

// TableWords flattens the combined tables for upload.
func (m *Module) TableWords() []uint32 {
	out := make([]uint32, 0, len(m.Table)*xrsr.StateWords)
	for _, s := range m.Table {
		out = append(out, s[:]...)
	}
	return out
}
