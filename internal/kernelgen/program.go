package kernelgen

import (
	"sync/atomic"

	"github.com/samcharles93/seedscan/internal/xrsr"
)

// WorldSeed joins a candidate's 48-bit structure seed with the upper 16 bits
// enumerated by one invocation.
func WorldSeed(seedLo, seedHi uint32, upper uint16) uint64 {
	return uint64(seedLo) | uint64(seedHi&0xffff)<<32 | uint64(upper)<<48
}

// Passes is the fine filter predicate on a jumped state: the first draw must
// agree with mix(aux) on its top bits bits.
func Passes(jumped xrsr.State, aux0, aux1 uint32, bits int) bool {
	if bits == 0 {
		return true
	}
	r := xrsr.NewXoroshiro(jumped).NextLong()
	want := xrsr.Mix(uint64(aux0) | uint64(aux1)<<32)
	return (r^want)>>(64-bits) == 0
}

// Eval runs the step program against the module's own tables.
func (m *Module) Eval(sel xrsr.State) xrsr.State {
	var st xrsr.State
	for _, s := range m.Steps {
		switch s.Kind {
		case StepLookup:
			st = st.Xor(m.Table[s.Offset+int(s.Range.Extract(sel))])
		case StepResidual:
			if sel.Bit(s.Bit) {
				st = st.Xor(s.Value)
			}
		}
	}
	return st
}

// evalWords is Eval reading the table from a flattened device buffer.
func (m *Module) evalWords(table []uint32, sel xrsr.State) xrsr.State {
	var st xrsr.State
	for _, s := range m.Steps {
		switch s.Kind {
		case StepLookup:
			i := (s.Offset + int(s.Range.Extract(sel))) * xrsr.StateWords
			st[0] ^= table[i]
			st[1] ^= table[i+1]
			st[2] ^= table[i+2]
			st[3] ^= table[i+3]
		case StepResidual:
			if sel.Bit(s.Bit) {
				st = st.Xor(s.Value)
			}
		}
	}
	return st
}

// Invoke executes one kernel invocation on host memory. Bindings are indexed
// [group][binding]: group 0 holds the combined table, group 1 the input and
// output arrays. The output count is advanced atomically so invocations may
// run concurrently.
func (m *Module) Invoke(id uint64, bindings [][][]uint32) {
	table := bindings[0][0]
	in, out := bindings[1][0], bindings[1][1]
	if id >= uint64(in[0])<<InputBits {
		return
	}
	item := in[1+(id>>InputBits)*RecordWords:]
	seed := WorldSeed(item[0], item[1], uint16(id))

	st := m.evalWords(table, xrsr.UpgradeSeed(seed))
	if !Passes(st, item[2], item[3], m.FilterBits) {
		return
	}
	if atomic.LoadUint32(&out[0]) > uint32(m.MaxOutputs) {
		return
	}
	slot := atomic.AddUint32(&out[0], 1) - 1
	if slot >= uint32(m.MaxOutputs) {
		return
	}
	rec := out[1+slot*RecordWords:]
	rec[0] = uint32(seed)
	rec[1] = uint32(seed >> 32)
	rec[2] = item[2]
	rec[3] = item[3]
}
