package calculation

import (
	"fmt"

	"github.com/mdlacasse/owlgo/internal/domain"
)

// IndexMap computes the flat-vector offset layout for every decision
// variable family. All continuous families are laid
// out first, in canonical order, followed by the binary families; the
// IndexMap records each family's starting offset (C[family]) and exposes
// typed q1/q2/q3/q4-style helpers so nothing outside this file does
// offset arithmetic by hand.
type IndexMap struct {
	NI, NJ, NN, NT, NQ int

	HasXOR      bool // z_x present
	HasMedicare bool // z_m present (Medicare == optimize)
	NMedicare   int  // n_m: first Medicare-eligible year index
	NMedicareYears int // N_n - n_m, clamped to >= 0

	offB, offD, offE, offF, offG, offM, offS, offW, offX int
	offZX, offZM int

	NVars int // total length of the flat vector
	NBins int // number of trailing binary entries (NVars - NBins is where binaries start)
}

// NewIndexMap builds the offset table for a plan with the given
// dimensions. nMedicareStart is n_m; it is only meaningful when
// hasMedicare is true.
func NewIndexMap(ni, nn int, hasXOR, hasMedicare bool, nMedicareStart int) *IndexMap {
	im := &IndexMap{
		NI: ni,
		NJ: domain.NumAccountTypes,
		NN: nn,
		NT: domain.NumTaxBrackets,
		NQ: domain.NumMedicareTiers,
		HasXOR:      hasXOR,
		HasMedicare: hasMedicare,
		NMedicare:   nMedicareStart,
	}
	if hasMedicare {
		im.NMedicareYears = nn - nMedicareStart
		if im.NMedicareYears < 0 {
			im.NMedicareYears = 0
		}
	}

	offset := 0
	offset = im.place(&im.offB, offset, ni*im.NJ*(nn+1))
	offset = im.place(&im.offD, offset, ni*nn)
	offset = im.place(&im.offE, offset, nn)
	offset = im.place(&im.offF, offset, im.NT*nn)
	offset = im.place(&im.offG, offset, nn)
	offset = im.place(&im.offM, offset, nn)
	offset = im.place(&im.offS, offset, nn)
	offset = im.place(&im.offW, offset, ni*im.NJ*nn)
	offset = im.place(&im.offX, offset, ni*nn)

	binStart := offset
	if hasXOR {
		offset = im.place(&im.offZX, offset, ni*nn*2)
	}
	if hasMedicare {
		offset = im.place(&im.offZM, offset, im.NMedicareYears*(im.NQ-1))
	}

	im.NVars = offset
	im.NBins = offset - binStart
	return im
}

func (im *IndexMap) place(field *int, offset, size int) int {
	*field = offset
	return offset + size
}

func (im *IndexMap) assertRange(name string, idx, bound int) {
	if idx < 0 || idx >= bound {
		panic(fmt.Sprintf("indexmap: %s index %d out of range [0,%d)", name, idx, bound))
	}
}

// q3 implements the mapping formula for a 3-index family (a,b,c) with
// extents (NA,NB,NC): offset = base + a*NB*NC + b*NC + c.
func q3(base, a, na, b, nb, c, nc int) int {
	return base + a*nb*nc + b*nc + c
}

func q2(base, a, na, b, nb int) int {
	return base + a*nb + b
}

// IxB returns the offset of b_{i,j,n}, n in [0, N_n].
func (im *IndexMap) IxB(i, j, n int) int {
	im.assertRange("b.i", i, im.NI)
	im.assertRange("b.j", j, im.NJ)
	im.assertRange("b.n", n, im.NN+1)
	return q3(im.offB, i, im.NI, j, im.NJ, n, im.NN+1)
}

func (im *IndexMap) IxD(i, n int) int {
	im.assertRange("d.i", i, im.NI)
	im.assertRange("d.n", n, im.NN)
	return q2(im.offD, i, im.NI, n, im.NN)
}

func (im *IndexMap) IxE(n int) int {
	im.assertRange("e.n", n, im.NN)
	return im.offE + n
}

func (im *IndexMap) IxF(t, n int) int {
	im.assertRange("f.t", t, im.NT)
	im.assertRange("f.n", n, im.NN)
	return q2(im.offF, t, im.NT, n, im.NN)
}

func (im *IndexMap) IxG(n int) int {
	im.assertRange("g.n", n, im.NN)
	return im.offG + n
}

func (im *IndexMap) IxM(n int) int {
	im.assertRange("m.n", n, im.NN)
	return im.offM + n
}

func (im *IndexMap) IxS(n int) int {
	im.assertRange("s.n", n, im.NN)
	return im.offS + n
}

func (im *IndexMap) IxW(i, j, n int) int {
	im.assertRange("w.i", i, im.NI)
	im.assertRange("w.j", j, im.NJ)
	im.assertRange("w.n", n, im.NN)
	return q3(im.offW, i, im.NI, j, im.NJ, n, im.NN)
}

func (im *IndexMap) IxX(i, n int) int {
	im.assertRange("x.i", i, im.NI)
	im.assertRange("x.n", n, im.NN)
	return q2(im.offX, i, im.NI, n, im.NN)
}

// IxZX returns the offset of z_x{i,n,k}, k in {0,1} (deposit-vs-withdraw,
// Roth-convert-vs-Roth-withdraw exclusions).
func (im *IndexMap) IxZX(i, n, k int) int {
	if !im.HasXOR {
		panic("indexmap: z_x accessed but XOR constraints are disabled")
	}
	im.assertRange("zx.i", i, im.NI)
	im.assertRange("zx.n", n, im.NN)
	im.assertRange("zx.k", k, 2)
	return q3(im.offZX, i, im.NI, n, im.NN, k, 2)
}

// IxZM returns the offset of z_m{nn,q}, where nn is a Medicare-year index
// in [0, N_n-n_m) and q in [0, N_q-1).
func (im *IndexMap) IxZM(nn, q int) int {
	if !im.HasMedicare {
		panic("indexmap: z_m accessed but Medicare is not in optimize mode")
	}
	im.assertRange("zm.nn", nn, im.NMedicareYears)
	im.assertRange("zm.q", q, im.NQ-1)
	return q2(im.offZM, nn, im.NMedicareYears, q, im.NQ-1)
}
