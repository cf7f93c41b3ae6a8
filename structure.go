package ssbjstruct

import (
	"fmt"
	"math"
)

// Discipline constants.
const (
	OperatingWeight = 25000.0 // WO: fixed operating weight (lb)
	FuelReserve     = 2000.0  // WFO: fixed fuel overhead (lb)
	LoadFactor      = 6.0     // NZ: ultimate load factor
)

// fuelVolumeFactor collects 5/18 · 2/3 · 42.5 of the wing fuel weight.
const fuelVolumeFactor = 5.0 / 18.0 * 2.0 / 3.0 * 42.5

// Design carries the discipline inputs. The same type holds the scaled
// form at the boundary and the dimensional form inside.
//
//	Z = (t/c, h, M, AR, Λ, Sref)   shared design variables (Λ in degrees)
//	X = (λ, x)                     taper ratio, wingbox section
//	L                              coupling load
//	WE                             coupling weight
type Design struct {
	Z  [6]float64
	X  [2]float64
	L  float64
	WE float64
}

// Vector flattens d in Jacobian column order.
func (d Design) Vector() []float64 {
	v := make([]float64, 0, NumInputs)
	v = append(v, d.Z[:]...)
	v = append(v, d.X[:]...)
	return append(v, d.L, d.WE)
}

// DesignFromVector is the inverse of Design.Vector.
func DesignFromVector(v []float64) (Design, error) {
	if len(v) != NumInputs {
		return Design{}, &OpError{
			Op:   "design.from_vector",
			Kind: KindDimensionMismatch,
			Err:  fmt.Errorf("%w: want %d entries, got %d", ErrDimensionMismatch, NumInputs, len(v)),
		}
	}
	var d Design
	copy(d.Z[:], v[:6])
	copy(d.X[:], v[6:8])
	d.L, d.WE = v[ColL], v[ColWE]
	return d, nil
}

// ReferenceDesign is the scaled reference point of the discipline.
func ReferenceDesign() Design {
	return Design{
		Z:  [6]float64{1.2, 1.333, 0.875, 0.45, 1.27, 1.5},
		X:  [2]float64{1.6, 0.75},
		L:  0.888,
		WE: 1.49,
	}
}

// Outputs of the structures discipline.
type Outputs struct {
	WT    float64    // Total weight
	Theta float64    // Wing twist
	WF    float64    // Fuel weight
	Sigma [5]float64 // Stress ratios
}

// Vector flattens o in Jacobian row order.
func (o Outputs) Vector() []float64 {
	v := make([]float64, 0, NumOutputs)
	v = append(v, o.WT, o.Theta, o.WF)
	return append(v, o.Sigma[:]...)
}

// Geometry holds the intermediate quantities shared by the weight and
// stress formulas, together with their partials.
type Geometry struct {
	T float64 // Skin-thickness proxy t = t/c · Sref / √|Sref·AR|
	B float64 // Semi-span proxy b = √|Sref·AR| / 2
	R float64 // Taper structural factor R = (1+2λ) / (3(1+λ))

	DT Partials // ∂t/∂input
	DB Partials // ∂b/∂input
	DR Partials // ∂R/∂input
}

// NewGeometry derives t, b and R from a dimensional design.
func NewGeometry(d Design) Geometry {
	tc, ar, sref := d.Z[0], d.Z[3], d.Z[5]
	lambda := d.X[0]

	root := math.Sqrt(math.Abs(sref * ar))
	g := Geometry{
		T: tc * sref / root,
		B: root / 2,
		R: (1 + 2*lambda) / (3 * (1 + lambda)),
	}

	g.DT[ColZ0] = sref / root
	g.DT[ColZ3] = -0.5 * g.T / ar
	g.DT[ColZ5] = 0.5 * tc / root

	g.DB[ColZ3] = 0.5 * g.B / ar
	g.DB[ColZ5] = 0.5 * g.B / sref

	g.DR[ColX0] = 1 / (3 * (1 + lambda) * (1 + lambda))

	return g
}

// Surface identifiers.
const (
	SurfaceTwist  = "twist"
	SurfaceRelief = "Fo1"
)

// SurfaceSigma returns the identifier of stress ratio k (0-based).
func SurfaceSigma(k int) string {
	return fmt.Sprintf("sigma[%d]", k+1)
}

var sigmaShifts = [5]float64{0.10, 0.15, 0.20, 0.25, 0.30}

func twistQuery(d Design, g Geometry, derivs bool) SurfaceQuery {
	return SurfaceQuery{
		ID:          SurfaceTwist,
		Values:      []float64{math.Abs(d.X[1]), g.B, g.R, d.L},
		Selectors:   []int{2, 4, 4, 3},
		Shifts:      []float64{0.25, 0.25, 0.25, 0.25},
		Derivatives: derivs,
	}
}

func reliefQuery(d Design, derivs bool) SurfaceQuery {
	return SurfaceQuery{
		ID:          SurfaceRelief,
		Values:      []float64{d.X[1]},
		Selectors:   []int{1},
		Shifts:      []float64{0.008},
		Derivatives: derivs,
	}
}

func sigmaQuery(k int, d Design, g Geometry, derivs bool) SurfaceQuery {
	w := sigmaShifts[k]
	return SurfaceQuery{
		ID:          SurfaceSigma(k),
		Values:      []float64{d.Z[0], d.L, d.X[1], g.B, g.R},
		Selectors:   []int{4, 1, 4, 1, 1},
		Shifts:      []float64{w, w, w, w, w},
		Derivatives: derivs,
	}
}

// corrections are the surface results of one design point.
type corrections struct {
	twist  SurfaceResult
	relief SurfaceResult
	sigma  [5]SurfaceResult
}

// StructuralAnalysis computes the dimensional discipline outputs.
type StructuralAnalysis struct {
	surface *PolynomialSurface
}

// NewStructuralAnalysis binds the analysis to a surface evaluator.
func NewStructuralAnalysis(surface *PolynomialSurface) *StructuralAnalysis {
	return &StructuralAnalysis{surface: surface}
}

// evaluateSurfaces evaluates every surface of the discipline. The value and
// sensitivity paths both go through here, so they issue identical
// queries and see identical saturation decisions.
func (a *StructuralAnalysis) evaluateSurfaces(d Design, g Geometry, derivs bool) (corrections, error) {
	var c corrections
	var err error

	if c.twist, err = a.surface.Evaluate(twistQuery(d, g, derivs)); err != nil {
		return c, err
	}
	if c.relief, err = a.surface.Evaluate(reliefQuery(d, derivs)); err != nil {
		return c, err
	}
	for k := range c.sigma {
		if c.sigma[k], err = a.surface.Evaluate(sigmaQuery(k, d, g, derivs)); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Compute returns twist, fuel weight, total weight and stress ratios of
// a dimensional design.
//
// Power-law bases and radicands are taken in absolute value, so
// transient sign changes during optimization never produce NaN. The
// 1/|cos Λ| term is unguarded: Λ must stay away from 90°.
func (a *StructuralAnalysis) Compute(d Design) (Outputs, error) {
	g := NewGeometry(d)

	c, err := a.evaluateSurfaces(d, g, false)
	if err != nil {
		return Outputs{}, err
	}

	ww := c.relief.Value * wingWeightBase(d)
	wf := wingFuelWeight(d, g) + FuelReserve

	out := Outputs{
		WT:    OperatingWeight + ww + wf + d.WE,
		Theta: c.twist.Value,
		WF:    wf,
	}
	for k := range out.Sigma {
		out.Sigma[k] = c.sigma[k].Value
	}
	return out, nil
}

// wingWeightBase is the wing weight buildup before the weight-relief
// correction.
func wingWeightBase(d Design) float64 {
	tc, ar, sweep, sref := d.Z[0], d.Z[3], d.Z[4], d.Z[5]
	return 0.0051 *
		math.Pow(math.Abs(d.L*LoadFactor), 0.557) *
		math.Pow(math.Abs(sref), 0.649) *
		math.Pow(math.Abs(ar), 0.5) *
		math.Pow(math.Abs(tc), -0.4) *
		math.Pow(math.Abs(1+d.X[0]), 0.1) *
		math.Pow(0.1875*math.Abs(sref), 0.1) /
		math.Abs(math.Cos(sweep*math.Pi/180))
}

// wingFuelWeight is the fuel carried in the wing box.
func wingFuelWeight(d Design, g Geometry) float64 {
	return fuelVolumeFactor * math.Abs(d.Z[5]) * g.T
}
