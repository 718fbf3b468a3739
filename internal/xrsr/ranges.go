package xrsr

import (
	"fmt"
	"strconv"
	"strings"
)

// Range names a contiguous bit field inside one state word.
type Range struct {
	Word  int `json:"word" yaml:"word"`
	First int `json:"first" yaml:"first"`
	Width int `json:"width" yaml:"width"`
}

// FieldSpec asks for Count fields of Width bits each.
type FieldSpec struct {
	Width int
	Count int
}

// DefaultFieldSpecs is twenty 5-bit tables: 100 bits from lookups, 28 from
// residual conditionals.
var DefaultFieldSpecs = []FieldSpec{{Width: 5, Count: 20}}

func (r Range) Size() int {
	return 1 << r.Width
}

func (r Range) Mask() uint32 {
	return uint32((uint64(1)<<r.Width - 1) << r.First)
}

// Extract returns the field's bits of sel as a table index.
func (r Range) Extract(sel State) uint32 {
	return sel[r.Word] >> r.First & uint32(uint64(1)<<r.Width-1)
}

func (r Range) String() string {
	return fmt.Sprintf("w%d[%d:%d]", r.Word, r.First, r.First+r.Width)
}

func (r Range) validate() error {
	if r.Word < 0 || r.Word >= StateWords {
		return configErrorf("precompute range %v: word out of range", r)
	}
	if r.Width < 1 || r.Width > WordBits {
		return configErrorf("precompute range %v: width must be in [1, %d]", r, WordBits)
	}
	if r.First < 0 || r.First+r.Width > WordBits {
		return configErrorf("precompute range %v: field crosses a word boundary", r)
	}
	return nil
}

// MakeRanges packs fields greedily into the four state words. A field never
// straddles a word; if it does not fit in the current word packing moves to
// the next one. The layout is a pure function of specs.
func MakeRanges(specs []FieldSpec) ([]Range, error) {
	var ranges []Range
	word, bit := 0, 0
	for _, spec := range specs {
		if spec.Width < 1 || spec.Width > WordBits {
			return nil, configErrorf("field width %d must be in [1, %d]", spec.Width, WordBits)
		}
		if spec.Count < 0 {
			return nil, configErrorf("field count %d must not be negative", spec.Count)
		}
		for range spec.Count {
			if bit+spec.Width > WordBits {
				word++
				bit = 0
				if word >= StateWords {
					return nil, configErrorf("ranges do not fit in %d bits", StateBits)
				}
			}
			ranges = append(ranges, Range{Word: word, First: bit, Width: spec.Width})
			bit += spec.Width
		}
	}
	return ranges, nil
}

// ParseFieldSpecs reads the "WIDTHxCOUNT[,WIDTHxCOUNT...]" form, e.g. "5x20".
// An empty string means no precompute.
func ParseFieldSpecs(s string) ([]FieldSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return nil, nil
	}
	var specs []FieldSpec
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		w, c, ok := strings.Cut(strings.ToLower(part), "x")
		if !ok {
			return nil, configErrorf("field spec %q: expected WIDTHxCOUNT", part)
		}
		width, err := strconv.Atoi(w)
		if err != nil {
			return nil, configErrorf("field spec %q: bad width: %v", part, err)
		}
		count, err := strconv.Atoi(c)
		if err != nil {
			return nil, configErrorf("field spec %q: bad count: %v", part, err)
		}
		specs = append(specs, FieldSpec{Width: width, Count: count})
	}
	return specs, nil
}

func FormatFieldSpecs(specs []FieldSpec) string {
	if len(specs) == 0 {
		return "none"
	}
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = fmt.Sprintf("%dx%d", s.Width, s.Count)
	}
	return strings.Join(parts, ",")
}

// Mask is a set of selector bits.
type Mask State

// Coverage validates ranges and returns the bits they cover. Overlapping
// ranges are a configuration error.
func Coverage(ranges []Range) (Mask, error) {
	var m Mask
	for _, r := range ranges {
		if err := r.validate(); err != nil {
			return Mask{}, err
		}
		if m[r.Word]&r.Mask() != 0 {
			return Mask{}, configErrorf("precompute range %v overlaps an earlier range", r)
		}
		m[r.Word] |= r.Mask()
	}
	return m, nil
}

func (m Mask) Covered(bit int) bool {
	return State(m).Bit(bit)
}

// Residual lists the uncovered bits in ascending order.
func (m Mask) Residual() []int {
	out := make([]int, 0, StateBits-State(m).OnesCount())
	for b := range StateBits {
		if !m.Covered(b) {
			out = append(out, b)
		}
	}
	return out
}
