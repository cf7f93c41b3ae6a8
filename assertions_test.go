package ssbjstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPartials_ReferencePoint checks the Jacobian of a fresh instance,
// anchored by the check itself.
func TestPartials_ReferencePoint(t *testing.T) {
	d, err := NewDiscipline(StandardScalers())
	require.NoError(t, err)

	report := AssertPartialsConsistent(t, d, ReferenceDesign(), DefaultCheckConfig())
	assert.Len(t, report.Entries, NumOutputs*NumInputs)
	assert.True(t, report.Passed())
	AssertStructuralZeros(t, report.Analytic)
}

// TestPartials_AwayFromAnchor checks points evaluated on an instance
// anchored elsewhere, with every surface input inside its window and
// with several saturated.
func TestPartials_AwayFromAnchor(t *testing.T) {
	outside := Design{
		Z:  [6]float64{0.8, 1.1, 1.2, 0.6, 1.1, 1.5},
		X:  [2]float64{1, 0.5},
		L:  0.6,
		WE: 1.2,
	}

	points := map[string]Design{
		"inside window":   secondPoint(),
		"x and L beyond":  saturatedPoint(),
		"below on z[0]/x": outside,
	}

	for name, p := range points {
		t.Run(name, func(t *testing.T) {
			d, err := NewDiscipline(StandardScalers())
			require.NoError(t, err)
			_, err = d.Compute(ReferenceDesign())
			require.NoError(t, err)

			report := AssertPartialsConsistent(t, d, p, DefaultCheckConfig())
			AssertStructuralZeros(t, report.Analytic)

			a, _ := d.Anchor(SurfaceRelief)
			assert.InDelta(t, StandardScalers().Descale(ReferenceDesign()).X[1], a.Values[0], 1e-12,
				"the check never re-anchors")
		})
	}
}

func TestCheckPartials_PropagatesErrors(t *testing.T) {
	lib := DefaultCoefficients()
	delete(lib.Families, 4)

	d, err := NewDiscipline(StandardScalers(), WithCoefficients(lib))
	require.NoError(t, err)

	_, err = CheckPartials(d, ReferenceDesign(), DefaultCheckConfig())
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestPartialsReport_Failures(t *testing.T) {
	report := PartialsReport{
		Entries: []PartialCheck{
			{Output: "WT", Input: "L", Analytic: 1, FiniteDifference: 1, RelError: 0},
			{Output: "Theta", Input: "x_str[1]", Analytic: 0.5, FiniteDifference: 0.4, RelError: 0.2},
		},
		Tolerance: 1e-5,
	}
	report.Worst = report.Entries[1]

	assert.False(t, report.Passed())
	require.Len(t, report.Failures(), 1)
	assert.Contains(t, report.Failures()[0].String(), "dTheta/dx_str[1]")

	t.Logf("✓ %s", report.Worst)
}
