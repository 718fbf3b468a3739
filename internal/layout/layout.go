// Package layout defines the fixed 16-byte records exchanged between the
// coarse generator, the accelerator and the verifier.
package layout

import (
	"fmt"

	"github.com/samcharles93/seedscan/internal/kernelgen"
)

const (
	// Words is the number of u32 words in one record.
	Words = kernelgen.RecordWords
	// StructureSeedBits is the width of the searched key space.
	StructureSeedBits = 48
	StructureSeedMask = 1<<StructureSeedBits - 1
	// ChunkSize converts a portal chunk coordinate to a block position.
	ChunkSize = 16
)

// Candidate is one stage-1 survivor: a structure seed plus the layout the
// generator predicted for it.
type Candidate struct {
	StructureSeed uint64 `json:"structure_seed"`
	StartChunkX   int16  `json:"start_chunk_x"`
	StartChunkZ   int16  `json:"start_chunk_z"`
	PortalChunkX  int16  `json:"portal_chunk_x"`
	PortalChunkZ  int16  `json:"portal_chunk_z"`
}

// Put encodes c into dst[:Words].
func (c Candidate) Put(dst []uint32) {
	_ = dst[Words-1]
	dst[0] = uint32(c.StructureSeed)
	dst[1] = uint32(c.StructureSeed>>32) & 0xffff
	dst[2] = uint32(uint16(c.StartChunkX)) | uint32(uint16(c.PortalChunkX))<<16
	dst[3] = uint32(uint16(c.StartChunkZ)) | uint32(uint16(c.PortalChunkZ))<<16
}

// Aux returns the trailing words the accelerator copies into a survivor.
func (c Candidate) Aux() [2]uint32 {
	var w [Words]uint32
	c.Put(w[:])
	return [2]uint32{w[2], w[3]}
}

// DecodeCandidate is the inverse of Put.
func DecodeCandidate(src []uint32) Candidate {
	_ = src[Words-1]
	return Candidate{
		StructureSeed: uint64(src[0]) | uint64(src[1]&0xffff)<<32,
		StartChunkX:   int16(uint16(src[2])),
		PortalChunkX:  int16(uint16(src[2] >> 16)),
		StartChunkZ:   int16(uint16(src[3])),
		PortalChunkZ:  int16(uint16(src[3] >> 16)),
	}
}

// Survivor is one accelerator output record. Aux is the candidate's aux pair,
// carried through untouched.
type Survivor struct {
	WorldSeed uint64    `json:"world_seed"`
	Aux       [2]uint32 `json:"aux"`
}

func (s Survivor) Put(dst []uint32) {
	_ = dst[Words-1]
	dst[0] = uint32(s.WorldSeed)
	dst[1] = uint32(s.WorldSeed >> 32)
	dst[2] = s.Aux[0]
	dst[3] = s.Aux[1]
}

func DecodeSurvivor(src []uint32) Survivor {
	_ = src[Words-1]
	return Survivor{
		WorldSeed: uint64(src[0]) | uint64(src[1])<<32,
		Aux:       [2]uint32{src[2], src[3]},
	}
}

// StructureSeed is the low 48 bits of the world seed.
func (s Survivor) StructureSeed() uint64 {
	return s.WorldSeed & StructureSeedMask
}

// Candidate recovers the layout the survivor was generated from.
func (s Survivor) Candidate() Candidate {
	return DecodeCandidate([]uint32{uint32(s.WorldSeed), uint32(s.WorldSeed>>32) & 0xffff, s.Aux[0], s.Aux[1]})
}

// Hit is a verified world seed.
type Hit struct {
	WorldSeed   uint64 `json:"world_seed"`
	StartChunkX int16  `json:"start_chunk_x"`
	StartChunkZ int16  `json:"start_chunk_z"`
	PortalX     int32  `json:"portal_x"`
	PortalZ     int32  `json:"portal_z"`
}

// NewHit builds the reported form of a verified survivor.
func NewHit(s Survivor) Hit {
	c := s.Candidate()
	return Hit{
		WorldSeed:   s.WorldSeed,
		StartChunkX: c.StartChunkX,
		StartChunkZ: c.StartChunkZ,
		PortalX:     int32(c.PortalChunkX) * ChunkSize,
		PortalZ:     int32(c.PortalChunkZ) * ChunkSize,
	}
}

func (h Hit) String() string {
	return fmt.Sprintf("seed %d start chunk (%d, %d) portal (%d, %d)",
		int64(h.WorldSeed), h.StartChunkX, h.StartChunkZ, h.PortalX, h.PortalZ)
}
