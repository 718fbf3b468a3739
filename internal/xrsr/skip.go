package xrsr

import "math/bits"

// Images holds the image of every unit selector under a linear operator.
type Images [StateBits]State

// Table is a combined lookup table: entry b is the operator's output for the
// sub-selector holding pattern b in one field and zero elsewhere.
type Table []State

// BasisImages returns the images of the fine filter's fixed jump.
func BasisImages() Images {
	return skipData
}

// Apply returns the jump of sel computed by superposing basis images.
func Apply(sel State) State {
	return skipData.Apply(sel)
}

// CombinedTable builds the table for the field (word, first, width) of the
// fine filter's jump.
func CombinedTable(word, first, width int) (Table, error) {
	return skipData.Table(word, first, width)
}

// ZeroTable stands in for "no precompute": a single zero entry.
func ZeroTable() Table {
	return Table{State{}}
}

// Apply XOR-folds the images of the set bits of sel.
func (im *Images) Apply(sel State) State {
	var out State
	for w, word := range sel {
		for word != 0 {
			b := bits.TrailingZeros32(word)
			out = out.Xor(im[w*WordBits+b])
			word &= word - 1
		}
	}
	return out
}

// Table enumerates all 2^width patterns of one field. Each entry extends an
// earlier entry by a single basis image, so construction is O(2^width).
func (im *Images) Table(word, first, width int) (Table, error) {
	if err := (Range{Word: word, First: first, Width: width}).validate(); err != nil {
		return nil, err
	}
	t := make(Table, 1<<width)
	base := word*WordBits + first
	for b := 1; b < len(t); b++ {
		low := bits.TrailingZeros(uint(b))
		t[b] = t[b&(b-1)].Xor(im[base+low])
	}
	return t, nil
}

// Lookup returns the table entry selected by the field r of sel.
func (t Table) Lookup(r Range, sel State) State {
	return t[r.Extract(sel)]
}
