package ssbjstruct

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/num/hyperdual"
)

func oneDim(id string, x float64, derivs bool) SurfaceQuery {
	return SurfaceQuery{
		ID:          id,
		Values:      []float64{x},
		Selectors:   []int{1},
		Shifts:      []float64{0.25},
		Derivatives: derivs,
	}
}

func sigmaLike(id string, values []float64) SurfaceQuery {
	return SurfaceQuery{
		ID:          id,
		Values:      values,
		Selectors:   []int{4, 1, 4, 1, 1},
		Shifts:      []float64{0.2, 0.2, 0.2, 0.2, 0.2},
		Derivatives: true,
	}
}

// TestEvaluate_AnchorsOnFirstUse verifies the first query fixes the
// anchor and later queries never move it.
func TestEvaluate_AnchorsOnFirstUse(t *testing.T) {
	p := NewPolynomialSurface(DefaultCoefficients(), nil)

	res, err := p.Evaluate(oneDim("f", 2, false))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Value, 1e-15, "value at the anchor is the constant term")
	assert.Equal(t, 1, p.Len())

	_, err = p.Evaluate(oneDim("f", 2.2, false))
	require.NoError(t, err)

	a, ok := p.Anchor("f")
	require.True(t, ok)
	assert.Equal(t, []float64{2}, a.Values)
	assert.Equal(t, []int{1}, a.Selectors)
	assert.Equal(t, []float64{0.25}, a.Shifts)

	// Mutating the returned copy must not touch the stored anchor.
	a.Values[0] = 99
	again, _ := p.Anchor("f")
	assert.Equal(t, 2.0, again.Values[0])

	_, ok = p.Anchor("missing")
	assert.False(t, ok)

	t.Logf("✓ Anchor fixed at %v after %d surfaces", again.Values, p.Len())
}

// TestEvaluate_Deterministic verifies identical queries give identical
// results.
func TestEvaluate_Deterministic(t *testing.T) {
	p := NewPolynomialSurface(DefaultCoefficients(), nil)
	anchor := []float64{0.06, 44000, 1, 24, 0.86}
	_, err := p.Evaluate(sigmaLike("s", anchor))
	require.NoError(t, err)

	x := []float64{0.065, 42000, 1.1, 26, 0.84}
	first, err := p.Evaluate(sigmaLike("s", x))
	require.NoError(t, err)
	second, err := p.Evaluate(sigmaLike("s", x))
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Gradient, second.Gradient)
	t.Logf("✓ Repeated evaluation: %.12f", first.Value)
}

// TestEvaluate_TrustRegionBoundary verifies saturation at the window
// edges: boundary ratios stay active, anything beyond holds the
// boundary value with exactly zero slope.
func TestEvaluate_TrustRegionBoundary(t *testing.T) {
	p := NewPolynomialSurface(DefaultCoefficients(), nil)
	_, err := p.Evaluate(oneDim("f", 2, true))
	require.NoError(t, err)

	tests := []struct {
		name   string
		x      float64
		value  float64
		slope  float64
		active bool
	}{
		{"lower edge", 1.5, 1 - 0.2*0.25, 0.5, true},
		{"upper edge", 2.5, 1 + 0.2*0.25, 0.5, true},
		{"below window", 1.49998, 1 - 0.2*0.25, 0, false},
		{"above window", 2.50002, 1 + 0.2*0.25, 0, false},
		{"far above", 40, 1 + 0.2*0.25, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Evaluate(oneDim("f", tt.x, true))
			require.NoError(t, err)

			d := res.Deviations[0]
			assert.Equal(t, tt.active, d.Active)
			assert.Equal(t, tt.slope, d.Slope)
			assert.InDelta(t, tt.value, res.Value, 1e-15)
			assert.InDelta(t, tt.slope*0.2, res.Gradient[0], 1e-15)
			assert.InDelta(t, tt.x/2, d.Ratio, 1e-15, "ratio is reported raw")

			t.Logf("✓ x=%g ratio=%.5f value=%.6f slope=%g", tt.x, d.Ratio, res.Value, d.Slope)
		})
	}
}

// TestEvaluate_DerivativesMatchHyperdual cross-checks the gradient and
// Hessian against hyperdual differentiation of the surface polynomial.
func TestEvaluate_DerivativesMatchHyperdual(t *testing.T) {
	p := NewPolynomialSurface(DefaultCoefficients(), nil)
	anchorValues := []float64{0.06, 44000, 1, 24, 0.86}
	_, err := p.Evaluate(sigmaLike("s", anchorValues))
	require.NoError(t, err)

	x := []float64{0.066, 40000, 1.15, 22, 0.9}
	res, err := p.Evaluate(sigmaLike("s", x))
	require.NoError(t, err)
	for i, d := range res.Deviations {
		require.True(t, d.Active, "dimension %d", i)
	}

	a, _ := p.Anchor("s")
	n := a.Dimensions()

	f := func(seeded []hyperdual.Number) hyperdual.Number {
		s := make([]hyperdual.Number, n)
		for k := range s {
			s[k] = hyperdual.Sub(hyperdual.Scale(1/a.Values[k], seeded[k]), hyperdual.Number{Real: 1})
		}
		v := hyperdual.Number{Real: a.constant}
		for k := 0; k < n; k++ {
			v = hyperdual.Add(v, hyperdual.Scale(a.linear[k], s[k]))
			for l := 0; l < n; l++ {
				v = hyperdual.Add(v, hyperdual.Scale(0.5*a.quadratic.At(k, l), hyperdual.Mul(s[k], s[l])))
			}
		}
		return v
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			seeded := make([]hyperdual.Number, n)
			for k := range seeded {
				seeded[k] = hyperdual.Number{Real: x[k]}
			}
			seeded[i].E1mag = 1
			seeded[j].E2mag = 1

			v := f(seeded)
			if i == j {
				assert.InDelta(t, v.Real, res.Value, 1e-12)
			}
			assert.InEpsilon(t, v.E1mag, res.Gradient[i], 1e-10, "gradient %d", i)
			assert.InDelta(t, v.E1E2mag, res.Hessian.At(i, j), 1e-12*(1+math.Abs(v.E1E2mag)), "hessian %d,%d", i, j)
			assert.Equal(t, res.Hessian.At(i, j), res.Hessian.At(j, i))
		}
	}

	t.Logf("✓ Gradient and Hessian agree with hyperdual over %d×%d entries", n, n)
}

// TestEvaluate_SaturatedDimensionDecouples verifies a saturated input
// drops out of gradient and Hessian while the rest stay coupled.
func TestEvaluate_SaturatedDimensionDecouples(t *testing.T) {
	p := NewPolynomialSurface(DefaultCoefficients(), nil)
	_, err := p.Evaluate(sigmaLike("s", []float64{0.06, 44000, 1, 24, 0.86}))
	require.NoError(t, err)

	res, err := p.Evaluate(sigmaLike("s", []float64{0.066, 40000, 1.6, 22, 0.9}))
	require.NoError(t, err)

	require.False(t, res.Deviations[2].Active)
	assert.Equal(t, 0.0, res.Gradient[2])
	for j := 0; j < 5; j++ {
		assert.Equal(t, 0.0, res.Hessian.At(2, j))
		assert.Equal(t, 0.0, res.Hessian.At(j, 2))
	}
	assert.NotZero(t, res.Hessian.At(0, 1))
	assert.NotZero(t, res.Quadratic.At(0, 2), "bare coefficients keep the coupling")

	t.Logf("✓ Saturated dimension decoupled, value=%.6f", res.Value)
}

func TestEvaluate_Errors(t *testing.T) {
	p := NewPolynomialSurface(DefaultCoefficients(), nil)

	_, err := p.Evaluate(SurfaceQuery{ID: "e"})
	assert.True(t, IsKind(err, KindInvalidQuery), "empty: %v", err)

	_, err = p.Evaluate(SurfaceQuery{ID: "e", Values: []float64{1, 2}, Selectors: []int{1}, Shifts: []float64{0.1, 0.1}})
	assert.True(t, IsKind(err, KindDimensionMismatch), "selectors: %v", err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = p.Evaluate(SurfaceQuery{ID: "e", Values: []float64{1}, Selectors: []int{7}, Shifts: []float64{0.1}})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Equal(t, 0, p.Len(), "failed queries never anchor")

	_, err = p.Evaluate(oneDim("e", 1, false))
	require.NoError(t, err)
	_, err = p.Evaluate(SurfaceQuery{ID: "e", Values: []float64{1, 1}, Selectors: []int{1, 1}, Shifts: []float64{0.1, 0.1}})
	assert.True(t, IsKind(err, KindDimensionMismatch), "re-query: %v", err)

	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "e", oe.Surface)
	t.Logf("✓ %v", err)
}

// TestEvaluate_ConcurrentFirstUse verifies racing first evaluations of
// one identifier agree on a single anchor.
func TestEvaluate_ConcurrentFirstUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPolynomialSurface(DefaultCoefficients(), nil)
	const workers = 16

	values := make([]float64, workers)
	results := make([]float64, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		values[w] = 1 + 0.01*float64(w)
		g.Go(func() error {
			res, err := p.Evaluate(oneDim("shared", values[w], false))
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			results[w] = res.Value
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, p.Len())

	for w := 0; w < workers; w++ {
		res, err := p.Evaluate(oneDim("shared", values[w], false))
		require.NoError(t, err)
		assert.Equal(t, res.Value, results[w], "worker %d saw a different anchor", w)
	}

	a, _ := p.Anchor("shared")
	t.Logf("✓ %d workers, one anchor at %v", workers, a.Values)
}

func TestEvaluate_LogsAnchoringAndSaturation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewPolynomialSurface(DefaultCoefficients(), logger)

	_, err := p.Evaluate(oneDim("f", 2, false))
	require.NoError(t, err)
	_, err = p.Evaluate(oneDim("f", 4, false))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "surface anchored")
	assert.Contains(t, buf.String(), "surface dimension saturated")
}
