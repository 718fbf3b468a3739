package verify

import (
	"context"

	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

// DefaultVerifyBits is how many bits of the second draw Recompute checks.
const DefaultVerifyBits = 16

// Recompute is the in-process verifier. It steps the generator one draw at a
// time instead of using the jump tables, repeats the accelerator's predicate
// and then checks VerifyBits bits of the following draw against the chained
// mix of the aux words.
type Recompute struct {
	FilterBits int
	VerifyBits int
}

func (r Recompute) Verify(ctx context.Context, s layout.Survivor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	x := xrsr.Seeded(s.WorldSeed)
	x.Skip(xrsr.JumpDistance)
	if !kernelgen.Passes(x.State(), s.Aux[0], s.Aux[1], r.FilterBits) {
		return false, nil
	}
	if r.VerifyBits <= 0 {
		return true, nil
	}
	x.NextLong()
	want := xrsr.Mix(xrsr.Mix(uint64(s.Aux[0]) | uint64(s.Aux[1])<<32))
	return (x.NextLong()^want)>>(64-min(r.VerifyBits, 64)) == 0, nil
}

func (Recompute) Close() error { return nil }
