package calculation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMapOffsetsAreDistinctAndInRange(t *testing.T) {
	im := NewIndexMap(2, 5, true, true, 2)

	seen := make(map[int]string)
	record := func(name string, idx int) {
		require.GreaterOrEqual(t, idx, 0, name)
		require.Less(t, idx, im.NVars, name)
		if prev, ok := seen[idx]; ok {
			t.Fatalf("offset %d used by both %s and %s", idx, prev, name)
		}
		seen[idx] = name
	}

	for i := 0; i < im.NI; i++ {
		for j := 0; j < im.NJ; j++ {
			for n := 0; n <= im.NN; n++ {
				record("b", im.IxB(i, j, n))
			}
		}
	}
	for i := 0; i < im.NI; i++ {
		for n := 0; n < im.NN; n++ {
			record("d", im.IxD(i, n))
			record("x", im.IxX(i, n))
		}
	}
	for n := 0; n < im.NN; n++ {
		record("e", im.IxE(n))
		record("g", im.IxG(n))
		record("m", im.IxM(n))
		record("s", im.IxS(n))
	}
	for tt := 0; tt < im.NT; tt++ {
		for n := 0; n < im.NN; n++ {
			record("f", im.IxF(tt, n))
		}
	}
	for i := 0; i < im.NI; i++ {
		for j := 0; j < im.NJ; j++ {
			for n := 0; n < im.NN; n++ {
				record("w", im.IxW(i, j, n))
			}
		}
	}
	for i := 0; i < im.NI; i++ {
		for n := 0; n < im.NN; n++ {
			for k := 0; k < 2; k++ {
				record("zx", im.IxZX(i, n, k))
			}
		}
	}
	for nn := 0; nn < im.NMedicareYears; nn++ {
		for q := 0; q < im.NQ-1; q++ {
			record("zm", im.IxZM(nn, q))
		}
	}

	assert.Equal(t, im.NVars, len(seen), "every slot in the flat vector should be used exactly once")

	binaryCount := im.NI*im.NN*2 + im.NMedicareYears*(im.NQ-1)
	assert.Equal(t, binaryCount, im.NBins)
	// Binary offsets must all land in the trailing NBins slots.
	binStart := im.NVars - im.NBins
	for i := 0; i < im.NI; i++ {
		for n := 0; n < im.NN; n++ {
			assert.GreaterOrEqual(t, im.IxZX(i, n, 0), binStart)
		}
	}
}

func TestIndexMapOutOfRangePanics(t *testing.T) {
	im := NewIndexMap(2, 5, false, false, 0)
	assert.Panics(t, func() { im.IxB(2, 0, 0) })
	assert.Panics(t, func() { im.IxW(0, 3, 0) })
	assert.Panics(t, func() { im.IxZX(0, 0, 0) }, "zx disabled should panic")
}

func TestIndexMapNoMedicareNoXORHasNoBinaries(t *testing.T) {
	im := NewIndexMap(1, 10, false, false, 0)
	assert.Equal(t, 0, im.NBins)
}
