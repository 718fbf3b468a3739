package xrsr

import "math/bits"

const (
	silverRatio = 0x6a09e667f3bcc909
	goldenRatio = 0x9e3779b97f4a7c15
)

// Xoroshiro is the xoroshiro128++ generator.
type Xoroshiro struct {
	lo, hi uint64
}

func NewXoroshiro(s State) *Xoroshiro {
	return &Xoroshiro{lo: s.Lo(), hi: s.Hi()}
}

// Seeded returns a generator initialised from a 64-bit seed the way world
// generation derives its positional random source.
func Seeded(seed uint64) *Xoroshiro {
	return NewXoroshiro(UpgradeSeed(seed))
}

func (x *Xoroshiro) State() State {
	return FromHalves(x.lo, x.hi)
}

func (x *Xoroshiro) NextLong() uint64 {
	l, h := x.lo, x.hi
	r := bits.RotateLeft64(l+h, 17) + l
	h ^= l
	x.lo = bits.RotateLeft64(l, 49) ^ h ^ (h << 21)
	x.hi = bits.RotateLeft64(h, 28)
	return r
}

// Skip advances the generator by n outputs one step at a time.
func (x *Xoroshiro) Skip(n uint64) {
	for range n {
		x.NextLong()
	}
}

// Advance is the state transition of one NextLong call. It is linear over
// GF(2), which is what makes table driven jumps exact.
func Advance(s State) State {
	l, h := s.Lo(), s.Hi()
	h ^= l
	return FromHalves(bits.RotateLeft64(l, 49)^h^(h<<21), bits.RotateLeft64(h, 28))
}

// UpgradeSeed expands a 64-bit seed into a 128-bit state.
func UpgradeSeed(seed uint64) State {
	lo := seed ^ silverRatio
	hi := lo + goldenRatio
	return FromHalves(Mix(lo), Mix(hi))
}

// Mix is the stafford13 variant of the splitmix64 finaliser.
func Mix(z uint64) uint64 {
	z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
	z = (z ^ z>>27) * 0x94d049bb133111eb
	return z ^ z>>31
}
