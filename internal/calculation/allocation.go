package calculation

import (
	"math"

	"github.com/mdlacasse/owlgo/internal/domain"
)

// minTanhWidth floors the S-curve width to avoid a divide-by-zero when a
// caller supplies a zero or near-zero width.
const minTanhWidth = 1e-4

// defaultTanhCenter is the S-curve inflection point, in years from plan
// start, used when the caller leaves Center unset.
const defaultTanhCenter = 15.0

// AllocationInterpolator produces alpha_{i,j,k,n}, the per-individual,
// per-account, per-asset allocation over the horizon, either
// by linear interpolation or by a tanh S-curve whose two free
// coefficients are solved so the curve matches the supplied start/end
// percentages exactly at the endpoints.
type AllocationInterpolator struct{}

// Generate returns alpha[n][k] for n in [0, nin] inclusive (the extra
// slot is the terminal balance's slice), each row summing to 1.
func (AllocationInterpolator) Generate(ab domain.AllocationBounds, nin int) [][domain.NumAssetClasses]float64 {
	out := make([][domain.NumAssetClasses]float64, nin+1)

	var start, end [domain.NumAssetClasses]float64
	for k := 0; k < domain.NumAssetClasses; k++ {
		start[k] = f64(ab.Start[k])
		end[k] = f64(ab.End[k])
	}

	switch ab.Method {
	case domain.AllocationLinear:
		for n := 0; n <= nin; n++ {
			t := fracOf(n, nin)
			for k := 0; k < domain.NumAssetClasses; k++ {
				out[n][k] = lerp(start[k], end[k], t)
			}
		}
	case domain.AllocationTanh:
		width := f64(ab.Width)
		if width < minTanhWidth {
			width = minTanhWidth
		}
		center := f64(ab.Center)
		if center == 0 {
			center = defaultTanhCenter
		}
		for k := 0; k < domain.NumAssetClasses; k++ {
			a, b := solveSCurveCoefficients(start[k], end[k], float64(nin), center, width)
			for n := 0; n <= nin; n++ {
				out[n][k] = sCurve(a, b, float64(n), center, width)
			}
		}
	}

	for n := range out {
		normalizeToOne(&out[n])
	}
	return out
}

func lerp(start, end, t float64) float64 { return start + (end-start)*t }

func fracOf(n, nin int) float64 {
	if nin == 0 {
		return 0
	}
	return float64(n) / float64(nin)
}

// solveSCurveCoefficients solves the 2x2 linear system for (a,b) in
// f(t) = a + 0.5*(b-a)*(1+tanh((t-c)/w)) such that f(0) = start and
// f(nin-1) = end exactly.
func solveSCurveCoefficients(start, end, nin, center, width float64) (a, b float64) {
	u0 := 0.5 * (1 + math.Tanh((0-center)/width))
	u1 := 0.5 * (1 + math.Tanh((nin-1-center)/width))

	// a*(1-u0) + b*u0 = start
	// a*(1-u1) + b*u1 = end
	det := (1-u0)*u1 - (1-u1)*u0
	if math.Abs(det) < 1e-12 {
		// Degenerate (u0 == u1): fall back to a flat midpoint curve.
		return (start + end) / 2, (start + end) / 2
	}
	a = (start*u1 - end*u0) / det
	b = ((1-u0)*end - (1-u1)*start) / det
	return a, b
}

func sCurve(a, b, t, center, width float64) float64 {
	return a + 0.5*(b-a)*(1+math.Tanh((t-center)/width))
}

func normalizeToOne(row *[domain.NumAssetClasses]float64) {
	var sum float64
	for _, v := range row {
		sum += v
	}
	if sum == 0 {
		return
	}
	for k := range row {
		row[k] /= sum
	}
}
