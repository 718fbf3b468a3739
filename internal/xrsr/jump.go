package xrsr

// Identity returns the images of the identity operator.
func Identity() Images {
	var im Images
	for i := range im {
		im[i] = Unit(i)
	}
	return im
}

// StepImages returns the images of a single generator step.
func StepImages() Images {
	var im Images
	for i := range im {
		im[i] = Advance(Unit(i))
	}
	return im
}

// Compose returns the operator "b, then a".
func Compose(a, b *Images) Images {
	var out Images
	for i := range out {
		out[i] = a.Apply(b[i])
	}
	return out
}

// JumpImages returns the basis images of advancing the generator by n steps,
// by square-and-multiply over GF(2). Cost is O(log n) compositions.
func JumpImages(n uint64) Images {
	result := Identity()
	base := StepImages()
	for n > 0 {
		if n&1 == 1 {
			result = Compose(&base, &result)
		}
		base = Compose(&base, &base)
		n >>= 1
	}
	return result
}
