package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCandidateWords(t *testing.T) {
	t.Parallel()

	c := Candidate{
		StructureSeed: 0xfedc_ba98_7654_3210 & StructureSeedMask,
		StartChunkX:   -3,
		StartChunkZ:   12,
		PortalChunkX:  -100,
		PortalChunkZ:  7,
	}
	var w [Words]uint32
	c.Put(w[:])
	require.Equal(t, [Words]uint32{0x76543210, 0xba98, 0xff9c_fffd, 0x0007_000c}, w)
	require.Equal(t, c, DecodeCandidate(w[:]))
	require.Equal(t, [2]uint32{w[2], w[3]}, c.Aux())
}

func TestCandidateDropsHighSeedBits(t *testing.T) {
	t.Parallel()

	var w [Words]uint32
	Candidate{StructureSeed: 0xffff_0000_0000_0001}.Put(w[:])
	require.Zero(t, w[1])
	require.Equal(t, uint64(1), DecodeCandidate(w[:]).StructureSeed)
}

func TestSurvivorToHit(t *testing.T) {
	t.Parallel()

	c := Candidate{StructureSeed: 123456789, StartChunkX: 4, StartChunkZ: -5, PortalChunkX: -20, PortalChunkZ: 33}
	s := Survivor{WorldSeed: 0xabcd<<48 | c.StructureSeed, Aux: c.Aux()}

	var w [Words]uint32
	s.Put(w[:])
	require.Equal(t, s, DecodeSurvivor(w[:]))
	require.Equal(t, c.StructureSeed, s.StructureSeed())
	require.Equal(t, c, s.Candidate())

	h := NewHit(s)
	require.Equal(t, Hit{WorldSeed: s.WorldSeed, StartChunkX: 4, StartChunkZ: -5, PortalX: -320, PortalZ: 528}, h)
	require.Equal(t, "seed -6067193122874733291 start chunk (4, -5) portal (-320, 528)", h.String())
}
