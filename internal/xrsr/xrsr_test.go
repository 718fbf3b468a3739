package xrsr

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomState(rng *rand.Rand) State {
	return State{rng.Uint32(), rng.Uint32(), rng.Uint32(), rng.Uint32()}
}

func TestApplyZeroIsZero(t *testing.T) {
	t.Parallel()
	require.True(t, Apply(State{}).IsZero())
}

func TestApplyLinearity(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		a := randomState(rng)
		b := randomState(rng)
		// make b disjoint from a
		for w := range b {
			b[w] &^= a[w]
		}
		require.Equal(t, Apply(a).Xor(Apply(b)), Apply(a.Xor(b)), "a=%v b=%v", a, b)
	}
}

func TestApplyUnitMatchesBasis(t *testing.T) {
	t.Parallel()
	images := BasisImages()
	for i := range StateBits {
		assert.Equal(t, images[i], Apply(Unit(i)), "bit %d", i)
	}
}

func TestBasisImagesAreTheJump(t *testing.T) {
	t.Parallel()
	require.Equal(t, BasisImages(), JumpImages(JumpDistance))
}

func TestApplyMatchesIterativeStepping(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 4))
	for range 20 {
		s := randomState(rng)
		x := NewXoroshiro(s)
		x.Skip(JumpDistance)
		require.Equal(t, x.State(), Apply(s))
	}
}

func TestJumpImagesSmallDistances(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(5, 6))
	for _, n := range []uint64{0, 1, 2, 3, 17, 64, 1000} {
		im := JumpImages(n)
		for range 8 {
			s := randomState(rng)
			want := s
			for range n {
				want = Advance(want)
			}
			require.Equal(t, want, im.Apply(s), "n=%d", n)
		}
	}
}

func TestAdvanceMatchesNextLong(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 8))
	s := randomState(rng)
	x := NewXoroshiro(s)
	for range 10 {
		x.NextLong()
		s = Advance(s)
		require.Equal(t, s, x.State())
	}
}

func TestUpgradeSeedVectors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		seed     uint64
		lo, hi   uint64
		nextLong uint64
	}{
		{0, 0x3564b439cd1e1f16, 0x63cfc62a2b097592, 0x2a2ca488f66f517e},
		{12345, 0x0a2c34e6ca54dd9e, 0xcf828dadc78bbeeb, 0x8f5558a8036890fb},
	}
	for _, tc := range tests {
		s := UpgradeSeed(tc.seed)
		assert.Equal(t, tc.lo, s.Lo(), "seed %d lo", tc.seed)
		assert.Equal(t, tc.hi, s.Hi(), "seed %d hi", tc.seed)
		assert.Equal(t, tc.nextLong, Seeded(tc.seed).NextLong(), "seed %d", tc.seed)
	}
}

func TestCombinedTableEquivalence(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(9, 10))
	for _, r := range []Range{{0, 0, 5}, {1, 27, 5}, {2, 3, 10}, {3, 31, 1}, {0, 20, 12}} {
		table, err := CombinedTable(r.Word, r.First, r.Width)
		require.NoError(t, err)
		require.Len(t, table, r.Size())
		for b := range uint32(r.Size()) {
			var sel State
			sel[r.Word] = b << r.First
			require.Equal(t, Apply(sel), table[b], "range %v value %d", r, b)

			// bits outside the field must not change the lookup
			noisy := randomState(rng)
			noisy[r.Word] = noisy[r.Word]&^r.Mask() | b<<r.First
			require.Equal(t, table[b], table.Lookup(r, noisy))
		}
	}
}

func TestCombinedTableRejectsBadFields(t *testing.T) {
	t.Parallel()
	for _, r := range []Range{{0, 0, 0}, {4, 0, 1}, {0, 30, 5}, {-1, 0, 1}, {0, 0, 33}} {
		_, err := CombinedTable(r.Word, r.First, r.Width)
		require.ErrorIs(t, err, ErrConfig, "range %v", r)
	}
}

func TestZeroTable(t *testing.T) {
	t.Parallel()
	z := ZeroTable()
	require.Len(t, z, 1)
	require.True(t, z[0].IsZero())
}

func TestMakeRangesDefault(t *testing.T) {
	t.Parallel()
	ranges, err := MakeRanges(DefaultFieldSpecs)
	require.NoError(t, err)
	require.Len(t, ranges, 20)
	assert.Equal(t, Range{Word: 0, First: 0, Width: 5}, ranges[0])
	assert.Equal(t, Range{Word: 0, First: 25, Width: 5}, ranges[5])
	assert.Equal(t, Range{Word: 1, First: 0, Width: 5}, ranges[6])
	assert.Equal(t, Range{Word: 3, First: 5, Width: 5}, ranges[19])

	mask, err := Coverage(ranges)
	require.NoError(t, err)
	assert.Len(t, mask.Residual(), 28)
}

func TestMakeRangesDeterministic(t *testing.T) {
	t.Parallel()
	specs := []FieldSpec{{Width: 7, Count: 3}, {Width: 3, Count: 9}, {Width: 1, Count: 5}}
	first, err := MakeRanges(specs)
	require.NoError(t, err)
	for range 5 {
		again, err := MakeRanges(specs)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	// 7,7,7 fill 21 bits, a 3-bit field at 21, 24, 27; then 30+3 overflows.
	assert.Equal(t, Range{Word: 0, First: 27, Width: 3}, first[5])
	assert.Equal(t, Range{Word: 1, First: 0, Width: 3}, first[6])
}

func TestMakeRangesOverflow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		specs []FieldSpec
		ok    bool
	}{
		{"four full words", []FieldSpec{{32, 4}}, true},
		{"fifth word", []FieldSpec{{32, 5}}, false},
		{"24 five-bit fields", []FieldSpec{{5, 24}}, true},
		{"25 five-bit fields", []FieldSpec{{5, 25}}, false},
		{"mixed fit", []FieldSpec{{10, 12}}, true},
		{"mixed overflow", []FieldSpec{{10, 12}, {1, 9}}, false},
		{"empty", nil, true},
		{"zero width", []FieldSpec{{0, 1}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MakeRanges(tc.specs)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrConfig))
		})
	}
}

func TestCoverageRejectsOverlap(t *testing.T) {
	t.Parallel()
	_, err := Coverage([]Range{{0, 0, 5}, {0, 4, 3}})
	require.ErrorIs(t, err, ErrConfig)

	mask, err := Coverage([]Range{{0, 0, 5}, {0, 5, 3}, {3, 31, 1}})
	require.NoError(t, err)
	assert.True(t, mask.Covered(7))
	assert.False(t, mask.Covered(8))
	assert.True(t, mask.Covered(127))
	assert.Len(t, mask.Residual(), 128-9)
}

func TestParseFieldSpecs(t *testing.T) {
	t.Parallel()
	specs, err := ParseFieldSpecs(" 5x20, 3X2 ")
	require.NoError(t, err)
	require.Equal(t, []FieldSpec{{5, 20}, {3, 2}}, specs)
	require.Equal(t, "5x20,3x2", FormatFieldSpecs(specs))

	none, err := ParseFieldSpecs("")
	require.NoError(t, err)
	require.Empty(t, none)
	require.Equal(t, "none", FormatFieldSpecs(none))

	for _, bad := range []string{"5", "ax2", "5xb"} {
		_, err := ParseFieldSpecs(bad)
		require.ErrorIs(t, err, ErrConfig, bad)
	}
}
