// Package xrsr models the 128-bit xoroshiro128 state space as a vector space
// over GF(2). The jump applied by the fine filter is linear, so its effect on
// any state is the XOR of the images of the state's set bits.
package xrsr

import (
	"fmt"
	"math/bits"
)

const (
	StateWords = 4
	WordBits   = 32
	StateBits  = StateWords * WordBits
)

// State is a 128-bit xoroshiro128 state as four 32-bit words in the order
// lo low, lo high, hi low, hi high. The same type serves as a selector (the
// bits being jumped) and as a contribution (the jumped result).
type State [StateWords]uint32

// FromHalves packs the (lo, hi) register pair.
func FromHalves(lo, hi uint64) State {
	return State{uint32(lo), uint32(lo >> 32), uint32(hi), uint32(hi >> 32)}
}

// Unit returns the selector with only bit i set.
func Unit(i int) State {
	var s State
	s[i/WordBits] = 1 << (i % WordBits)
	return s
}

func (s State) Lo() uint64 { return uint64(s[0]) | uint64(s[1])<<32 }
func (s State) Hi() uint64 { return uint64(s[2]) | uint64(s[3])<<32 }

func (s State) Xor(o State) State {
	return State{s[0] ^ o[0], s[1] ^ o[1], s[2] ^ o[2], s[3] ^ o[3]}
}

func (s State) And(o State) State {
	return State{s[0] & o[0], s[1] & o[1], s[2] & o[2], s[3] & o[3]}
}

func (s State) IsZero() bool {
	return s[0]|s[1]|s[2]|s[3] == 0
}

func (s State) Bit(i int) bool {
	return s[i/WordBits]>>(i%WordBits)&1 == 1
}

func (s State) OnesCount() int {
	return bits.OnesCount32(s[0]) + bits.OnesCount32(s[1]) + bits.OnesCount32(s[2]) + bits.OnesCount32(s[3])
}

// String prints the state most significant word first.
func (s State) String() string {
	return fmt.Sprintf("%08x%08x%08x%08x", s[3], s[2], s[1], s[0])
}
