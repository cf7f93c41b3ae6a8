package ssbjstruct

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CheckConfig controls the partials audit.
type CheckConfig struct {
	// Central-difference step in scaled units (0 = fd default).
	Step float64

	// Maximum relative error between analytic and finite-difference
	// entries.
	Tolerance float64

	// Magnitude below which errors are measured in absolute terms.
	// Keeps exact-zero and near-zero entries from blowing up the ratio.
	Floor float64
}

// DefaultCheckConfig returns the thresholds used by the reference
// partials check.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		Step:      1e-6,
		Tolerance: 1e-5,
		Floor:     1e-3,
	}
}

// PartialCheck compares one Jacobian entry.
type PartialCheck struct {
	Row, Col         int
	Output, Input    string
	Analytic         float64
	FiniteDifference float64
	RelError         float64
}

func (c PartialCheck) String() string {
	return fmt.Sprintf("d%s/d%s: analytic=%.9g fd=%.9g rel=%.3g",
		c.Output, c.Input, c.Analytic, c.FiniteDifference, c.RelError)
}

// PartialsReport is the outcome of CheckPartials.
type PartialsReport struct {
	Point     Design
	Analytic  *mat.Dense
	Numeric   *mat.Dense
	Entries   []PartialCheck
	Worst     PartialCheck
	Tolerance float64
}

// Passed reports whether every entry is within tolerance.
func (r PartialsReport) Passed() bool {
	return r.Worst.RelError <= r.Tolerance
}

// Failures returns the entries above tolerance.
func (r PartialsReport) Failures() []PartialCheck {
	var out []PartialCheck
	for _, e := range r.Entries {
		if e.RelError > r.Tolerance {
			out = append(out, e)
		}
	}
	return out
}

// CheckPartials compares the analytic Jacobian of d at the scaled point
// in against a central-difference Jacobian of d.Compute.
//
// The analytic Jacobian is taken first, so a fresh discipline is
// anchored at in. Finite differences reuse whatever anchors d already
// holds; they never re-anchor.
func CheckPartials(d *Discipline, in Design, cfg CheckConfig) (PartialsReport, error) {
	analytic, err := d.ComputePartials(in)
	if err != nil {
		return PartialsReport{}, err
	}

	var evalErr error
	f := func(y, x []float64) {
		p, err := DesignFromVector(x)
		if err == nil {
			var out Outputs
			if out, err = d.Compute(p); err == nil {
				copy(y, out.Vector())
				return
			}
		}
		if evalErr == nil {
			evalErr = err
		}
		for i := range y {
			y[i] = math.NaN()
		}
	}

	numeric := mat.NewDense(NumOutputs, NumInputs, nil)
	fd.Jacobian(numeric, f, in.Vector(), &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    cfg.Step,
	})
	if evalErr != nil {
		return PartialsReport{}, evalErr
	}

	report := PartialsReport{
		Point:     in,
		Analytic:  analytic,
		Numeric:   numeric,
		Entries:   make([]PartialCheck, 0, NumOutputs*NumInputs),
		Tolerance: cfg.Tolerance,
	}
	report.Worst.RelError = -1

	for i := 0; i < NumOutputs; i++ {
		for j := 0; j < NumInputs; j++ {
			a, n := analytic.At(i, j), numeric.At(i, j)
			scale := floats.Max([]float64{math.Abs(a), math.Abs(n), cfg.Floor})
			c := PartialCheck{
				Row:              i,
				Col:              j,
				Output:           OutputName(i),
				Input:            InputName(j),
				Analytic:         a,
				FiniteDifference: n,
				RelError:         math.Abs(a-n) / scale,
			}
			if math.IsNaN(c.RelError) {
				c.RelError = math.Inf(1)
			}
			report.Entries = append(report.Entries, c)
			if c.RelError > report.Worst.RelError {
				report.Worst = c
			}
		}
	}

	return report, nil
}

// AssertPartialsConsistent verifies the analytic Jacobian against
// central differences at a scaled point.
//
// Mathematical property:
//
//	|J[i][j] - (f(x+h·eⱼ) - f(x-h·eⱼ))ᵢ / 2h| ≤ tol · max(|J[i][j]|, floor)
func AssertPartialsConsistent(t testing.TB, d *Discipline, in Design, cfg CheckConfig) PartialsReport {
	t.Helper()

	report, err := CheckPartials(d, in, cfg)
	if err != nil {
		t.Fatalf("Partials check failed to run: %v", err)
	}

	for _, c := range report.Failures() {
		t.Errorf("Jacobian entry out of tolerance (%.1e): %s", cfg.Tolerance, c)
	}

	t.Logf("✓ Worst entry: %s", report.Worst)
	return report
}

// AssertStructuralZeros verifies that outputs have exactly zero partials
// with respect to inputs they do not depend on.
func AssertStructuralZeros(t testing.TB, jac mat.Matrix) {
	t.Helper()

	for _, z := range StructuralZeros() {
		if v := jac.At(z[0], z[1]); v != 0 {
			t.Errorf("d%s/d%s = %g, want exactly 0", OutputName(z[0]), InputName(z[1]), v)
		}
	}
}

// StructuralZeros lists the (row, col) pairs with no algebraic
// dependency.
func StructuralZeros() [][2]int {
	var zeros [][2]int
	for i := 0; i < NumOutputs; i++ {
		for j := 0; j < NumInputs; j++ {
			if !dependsOn(i, j) {
				zeros = append(zeros, [2]int{i, j})
			}
		}
	}
	return zeros
}

// dependsOn reports whether output row i depends on input column j.
func dependsOn(i, j int) bool {
	switch j {
	case ColZ1, ColZ2: // h and M never enter the structures formulas
		return false
	}

	switch i {
	case RowWT:
		return true
	case RowTheta:
		return j == ColZ3 || j == ColZ5 || j == ColX0 || j == ColX1 || j == ColL
	case RowWF:
		return j == ColZ0 || j == ColZ3 || j == ColZ5
	default: // stress ratios
		return j == ColZ0 || j == ColZ3 || j == ColZ5 || j == ColX0 || j == ColX1 || j == ColL
	}
}
