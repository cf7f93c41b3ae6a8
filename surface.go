package ssbjstruct

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Trust region of a surface dimension, as a ratio to its anchor.
const (
	TrustLower = 0.75
	TrustUpper = 1.25
)

// Deviation is the normalized position of one surface input relative
// to its anchor. The value path and the derivative path both read it,
// so they always agree on whether a dimension is saturated.
type Deviation struct {
	Ratio  float64 // Raw ratio x/anchor
	Value  float64 // Ratio clamped to the trust region, minus 1
	Slope  float64 // ∂Value/∂x: 1/anchor when active, exactly 0 when saturated
	Active bool    // Ratio within [TrustLower, TrustUpper]
}

// normalize places x relative to anchor.
//
// Outside the trust region the deviation holds at the boundary, so the
// correction stays continuous and flat, and its slope is zero.
func normalize(x, anchor float64) Deviation {
	r := x / anchor
	d := Deviation{Ratio: r}

	switch {
	case r > TrustUpper:
		d.Value = TrustUpper - 1
	case r < TrustLower:
		d.Value = TrustLower - 1
	case r >= TrustLower && r <= TrustUpper:
		d.Value = r - 1
		d.Slope = 1 / anchor
		d.Active = true
	default:
		// NaN ratio (zero anchor and zero input).
		d.Value = r
	}
	return d
}

// SurfaceQuery is the input of a single surface evaluation.
type SurfaceQuery struct {
	ID          string    // Surface identifier (anchor cache key)
	Values      []float64 // Current input values, one per dimension
	Selectors   []int     // Coefficient family per dimension
	Shifts      []float64 // Shift magnitude (influence weight) per dimension
	Derivatives bool      // Also return gradient and Hessian
}

func (q SurfaceQuery) validate() error {
	n := len(q.Values)
	if n == 0 {
		return fmt.Errorf("%w: empty value vector", ErrInvalidQuery)
	}
	if len(q.Selectors) != n || len(q.Shifts) != n {
		return fmt.Errorf("%w: %d values, %d selectors, %d shifts",
			ErrDimensionMismatch, n, len(q.Selectors), len(q.Shifts))
	}
	return nil
}

// AnchorPoint fixes the origin and the shape of one surface. It is
// created by the first evaluation of its identifier and never changes.
type AnchorPoint struct {
	ID        string
	Values    []float64
	Selectors []int
	Shifts    []float64

	constant  float64
	linear    []float64
	quadratic *mat.SymDense
}

// Dimensions returns the number of surface inputs.
func (a AnchorPoint) Dimensions() int { return len(a.Values) }

// clone returns a copy that shares no memory with the cached anchor.
func (a AnchorPoint) clone() AnchorPoint {
	c := AnchorPoint{
		ID:        a.ID,
		Values:    append([]float64(nil), a.Values...),
		Selectors: append([]int(nil), a.Selectors...),
		Shifts:    append([]float64(nil), a.Shifts...),
		constant:  a.constant,
		linear:    append([]float64(nil), a.linear...),
	}
	if a.quadratic != nil {
		c.quadratic = mat.NewSymDense(a.quadratic.SymmetricDim(), nil)
		c.quadratic.CopySym(a.quadratic)
	}
	return c
}

// SurfaceResult is the outcome of an evaluation.
//
// Value is the correction factor A0 + A·s + ½·sᵀ·Q·s, where s is the
// vector of Deviation values. Gradient and Hessian are taken with
// respect to the raw query values and already include the saturation
// slopes; Linear and Quadratic are the bare coefficients.
type SurfaceResult struct {
	Value      float64
	Deviations []Deviation

	// Derivative mode only.
	Linear    []float64
	Quadratic *mat.SymDense
	Gradient  []float64
	Hessian   *mat.SymDense
}

// Shifted returns the deviation row vector s.
func (r SurfaceResult) Shifted() []float64 {
	s := make([]float64, len(r.Deviations))
	for i, d := range r.Deviations {
		s[i] = d.Value
	}
	return s
}

// PolynomialSurface evaluates anchored second-order response surfaces.
//
// Each surface identifier is anchored by its first evaluation. Anchors
// live in an insert-if-absent store, so concurrent first use of the same
// identifier still yields exactly one anchor; afterwards they are only
// read.
type PolynomialSurface struct {
	lib     CoefficientLibrary
	anchors *cache.Cache
	logger  *slog.Logger
}

// NewPolynomialSurface creates a surface evaluator with an empty anchor
// store. A nil logger discards output.
func NewPolynomialSurface(lib CoefficientLibrary, logger *slog.Logger) *PolynomialSurface {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PolynomialSurface{
		lib:     lib,
		anchors: cache.New(cache.NoExpiration, 0),
		logger:  logger,
	}
}

// Len returns the number of anchored surfaces.
func (p *PolynomialSurface) Len() int {
	return p.anchors.ItemCount()
}

// Anchor returns a copy of the anchor of id, if it exists.
func (p *PolynomialSurface) Anchor(id string) (AnchorPoint, bool) {
	v, ok := p.anchors.Get(id)
	if !ok {
		return AnchorPoint{}, false
	}
	return v.(AnchorPoint).clone(), true
}

// anchor returns the anchor of q.ID, creating it from q on first use.
func (p *PolynomialSurface) anchor(q SurfaceQuery) (AnchorPoint, error) {
	if v, ok := p.anchors.Get(q.ID); ok {
		return v.(AnchorPoint), nil
	}

	n := len(q.Values)
	a := AnchorPoint{
		ID:        q.ID,
		Values:    append([]float64(nil), q.Values...),
		Selectors: append([]int(nil), q.Selectors...),
		Shifts:    append([]float64(nil), q.Shifts...),
		linear:    make([]float64, n),
	}

	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		c, err := p.lib.Solve(q.Selectors[i], q.Shifts[i])
		if err != nil {
			return AnchorPoint{}, fmt.Errorf("dimension %d: %w", i, err)
		}
		a.constant = c.Constant
		a.linear[i] = c.Linear
		diag[i] = c.Quadratic
	}

	quad, err := p.lib.quadratic(diag)
	if err != nil {
		return AnchorPoint{}, err
	}
	a.quadratic = quad

	if err := p.anchors.Add(q.ID, a, cache.NoExpiration); err != nil {
		// Lost the race to another first evaluation; its anchor wins.
		v, _ := p.anchors.Get(q.ID)
		return v.(AnchorPoint), nil
	}

	p.logger.Debug("surface anchored", "surface", q.ID, "values", a.Values)
	return a, nil
}

// Evaluate computes the correction factor of q.ID at q.Values and, when
// q.Derivatives is set, its gradient and Hessian.
func (p *PolynomialSurface) Evaluate(q SurfaceQuery) (SurfaceResult, error) {
	if err := q.validate(); err != nil {
		return SurfaceResult{}, p.fail(q.ID, err)
	}

	a, err := p.anchor(q)
	if err != nil {
		return SurfaceResult{}, p.fail(q.ID, err)
	}

	n := a.Dimensions()
	if len(q.Values) != n {
		return SurfaceResult{}, p.fail(q.ID, fmt.Errorf("%w: anchored with %d dimensions, queried with %d",
			ErrDimensionMismatch, n, len(q.Values)))
	}

	res := SurfaceResult{Deviations: make([]Deviation, n)}
	s := make([]float64, n)
	for i := range res.Deviations {
		d := normalize(q.Values[i], a.Values[i])
		if !d.Active {
			p.logger.Debug("surface dimension saturated", "surface", q.ID, "dim", i, "ratio", d.Ratio)
		}
		res.Deviations[i] = d
		s[i] = d.Value
	}

	sv := mat.NewVecDense(n, s)
	res.Value = a.constant + floats.Dot(a.linear, s) + 0.5*mat.Inner(sv, a.quadratic, sv)

	if !q.Derivatives {
		return res, nil
	}

	var qs mat.VecDense
	qs.MulVec(a.quadratic, sv)

	res.Linear = append([]float64(nil), a.linear...)
	res.Quadratic = mat.NewSymDense(n, nil)
	res.Quadratic.CopySym(a.quadratic)
	res.Gradient = make([]float64, n)
	res.Hessian = mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		si := res.Deviations[i].Slope
		res.Gradient[i] = si * (a.linear[i] + qs.AtVec(i))
		for j := i; j < n; j++ {
			res.Hessian.SetSym(i, j, si*res.Deviations[j].Slope*a.quadratic.At(i, j))
		}
	}

	return res, nil
}

func (p *PolynomialSurface) fail(id string, err error) error {
	kind := KindInvalidQuery
	if errors.Is(err, ErrDimensionMismatch) {
		kind = KindDimensionMismatch
	}
	return &OpError{Op: "surface.evaluate", Kind: kind, Surface: id, Err: err}
}
