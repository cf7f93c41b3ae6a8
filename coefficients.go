package ssbjstruct

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Family is one coefficient-table family of the response surface.
//
// A family fixes the correction factor the surface must reach when a
// single dimension is shifted by -w and +w from its anchor (w is the
// query's shift magnitude). The factor at the anchor is always 1.
//
//	f(-w) = Lower
//	f(0)  = 1
//	f(+w) = Upper
//
// The quadratic through those three points gives the constant, linear
// and diagonal quadratic coefficient of the dimension.
type Family struct {
	Lower float64 // Correction factor at -w
	Upper float64 // Correction factor at +w
}

// CoefficientLibrary is the fixed table the surfaces draw their
// coefficients from. Families are selected per dimension by small
// integer codes; Interaction couples dimension i and j (i < j) through
// Q[i][j] = Q[i][i]·Interaction[i][j].
type CoefficientLibrary struct {
	Families    map[int]Family
	Interaction [][]float64
}

// Coefficients of one dimension, solved for a specific shift magnitude.
type Coefficients struct {
	Constant  float64 // A0
	Linear    float64 // A1
	Quadratic float64 // A2 (diagonal of Q)
}

// DefaultCoefficients returns the published SSBJ structures table
// (Sobieski, Agte & Sandusky, NASA/TM-1998-208715).
//
// Selector families:
//   - 1: rising, symmetric   (0.95, 1, 1.05)
//   - 2: rising, convex      (0.95, 1, 1.10)
//   - 3: falling, symmetric  (1.05, 1, 0.95)
//   - 4: falling, concave    (1.05, 1, 0.90)
//   - 5: bowl                (1.0025, 1, 1.0025)
func DefaultCoefficients() CoefficientLibrary {
	return CoefficientLibrary{
		Families: map[int]Family{
			1: {Lower: 1 - 0.5*0.1, Upper: 1 + 0.5*0.1},
			2: {Lower: 1 - 0.5*0.1, Upper: 1 + 0.5*0.2},
			3: {Lower: 1 + 0.5*0.1, Upper: 1 - 0.5*0.1},
			4: {Lower: 1 + 0.5*0.1, Upper: 1 - 0.5*0.2},
			5: {Lower: 1 + (0.5*0.1)*(0.5*0.1), Upper: 1 + (0.5*0.1)*(0.5*0.1)},
		},
		Interaction: [][]float64{
			{0.2736, 0.3970, 0.8152, 0.9230, 0.1108},
			{0.4252, 0.4415, 0.6357, 0.7435, 0.1138},
			{0.0329, 0.8856, 0.8390, 0.3657, 0.0019},
			{0.0878, 0.7248, 0.1978, 0.0200, 0.0169},
			{0.8955, 0.4568, 0.8075, 0.9239, 0.2525},
		},
	}
}

// MaxDimensions is the largest surface the interaction table supports.
func (lib CoefficientLibrary) MaxDimensions() int {
	n := len(lib.Interaction)
	for _, row := range lib.Interaction {
		if len(row) < n {
			n = len(row)
		}
	}
	return n
}

// Solve fits the quadratic of a family through its end-point factors
// at shifts -w, 0 and +w.
func (lib CoefficientLibrary) Solve(selector int, shift float64) (Coefficients, error) {
	fam, ok := lib.Families[selector]
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: unknown coefficient family %d", ErrInvalidQuery, selector)
	}
	if !(shift > 0) || math.IsInf(shift, 0) {
		return Coefficients{}, fmt.Errorf("%w: shift magnitude must be positive and finite, got %g", ErrInvalidQuery, shift)
	}

	// Rows are [1, s, s²] at s = -w, 0, +w.
	vandermonde := mat.NewDense(3, 3, []float64{
		1, -shift, shift * shift,
		1, 0, 0,
		1, shift, shift * shift,
	})
	bounds := mat.NewVecDense(3, []float64{fam.Lower, 1, fam.Upper})

	var a mat.VecDense
	if err := a.SolveVec(vandermonde, bounds); err != nil {
		return Coefficients{}, fmt.Errorf("%w: family %d at shift %g: %v", ErrInvalidQuery, selector, shift, err)
	}

	return Coefficients{
		Constant:  a.AtVec(0),
		Linear:    a.AtVec(1),
		Quadratic: a.AtVec(2),
	}, nil
}

// quadratic assembles the symmetric quadratic-coefficient matrix from
// the per-dimension diagonal terms.
func (lib CoefficientLibrary) quadratic(diag []float64) (*mat.SymDense, error) {
	n := len(diag)
	if n > lib.MaxDimensions() {
		return nil, fmt.Errorf("%w: %d dimensions exceed the %d×%d interaction table",
			ErrInvalidQuery, n, lib.MaxDimensions(), lib.MaxDimensions())
	}

	q := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		q.SetSym(i, i, diag[i])
		for j := i + 1; j < n; j++ {
			q.SetSym(i, j, diag[i]*lib.Interaction[i][j])
		}
	}
	return q, nil
}
