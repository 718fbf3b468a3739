package coarse

import (
	"context"

	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

// DefaultRarityBits keeps about 64 of every 65536 structure seeds.
const DefaultRarityBits = 10

// Synthetic is an in-process stand-in for the layout generator. A structure
// seed becomes a candidate when a keyed hash of it has RarityBits leading
// zeros; the hash also places the start and portal chunks. Output depends
// only on the seed, so any partition of a range yields the same candidates.
type Synthetic struct {
	RarityBits int
	Key        uint64
}

func (s Synthetic) candidate(seed uint64) (layout.Candidate, bool) {
	h := xrsr.Mix(seed ^ s.Key)
	if s.RarityBits > 0 && h>>(64-s.RarityBits) != 0 {
		return layout.Candidate{}, false
	}
	startX := int16(int8(h))
	startZ := int16(int8(h >> 8))
	return layout.Candidate{
		StructureSeed: seed & layout.StructureSeedMask,
		StartChunkX:   startX,
		StartChunkZ:   startZ,
		PortalChunkX:  startX + int16(int8(h>>16))/4,
		PortalChunkZ:  startZ + int16(int8(h>>24))/4,
	}, true
}

func (s Synthetic) GenerateLayouts(ctx context.Context, start, end uint64) ([]layout.Candidate, error) {
	var out []layout.Candidate
	for seed := start; seed < end; seed++ {
		if seed&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if c, ok := s.candidate(seed); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (Synthetic) Close() error { return nil }

// SyntheticFactory hands every pool slot the same generator.
func SyntheticFactory(s Synthetic) Factory {
	return func(context.Context, int) (Worker, error) {
		return s, nil
	}
}
