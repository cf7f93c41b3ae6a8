package ssbjstruct

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Jacobian rows.
const (
	RowWT = iota
	RowTheta
	RowWF
	RowSigma0
	RowSigma1
	RowSigma2
	RowSigma3
	RowSigma4

	NumOutputs
)

// Jacobian columns.
const (
	ColZ0 = iota // t/c
	ColZ1        // h
	ColZ2        // M
	ColZ3        // AR
	ColZ4        // Λ
	ColZ5        // Sref
	ColX0        // λ
	ColX1        // x
	ColL
	ColWE

	NumInputs
)

var (
	outputNames = [NumOutputs]string{"WT", "Theta", "WF", "sigma[0]", "sigma[1]", "sigma[2]", "sigma[3]", "sigma[4]"}
	inputNames  = [NumInputs]string{"z[0]", "z[1]", "z[2]", "z[3]", "z[4]", "z[5]", "x_str[0]", "x_str[1]", "L", "WE"}
)

// OutputName returns the name of Jacobian row i.
func OutputName(i int) string { return outputNames[i] }

// InputName returns the name of Jacobian column j.
func InputName(j int) string { return inputNames[j] }

// Partials is a row of derivatives with respect to every discipline input.
type Partials [NumInputs]float64

// unit returns the partials of the input in column j itself.
func unit(j int) Partials {
	var p Partials
	p[j] = 1
	return p
}

// add accumulates k·q into p, skipping structural zeros of q.
func (p *Partials) add(k float64, q Partials) {
	for j, v := range q {
		if v != 0 {
			p[j] += k * v
		}
	}
}

// chain composes a surface gradient with the partials of each surface
// input: ∂f/∂input = Σᵢ ∂f/∂uᵢ · ∂uᵢ/∂input.
func chain(gradient []float64, inputs []Partials) Partials {
	var out Partials
	for i, g := range gradient {
		out.add(g, inputs[i])
	}
	return out
}

// SensitivityAssembler produces the analytic Jacobian of the
// dimensional outputs.
type SensitivityAssembler struct {
	analysis *StructuralAnalysis
}

// NewSensitivityAssembler binds the assembler to the value path it
// differentiates.
func NewSensitivityAssembler(analysis *StructuralAnalysis) *SensitivityAssembler {
	return &SensitivityAssembler{analysis: analysis}
}

// ComputeJacobian returns the NumOutputs×NumInputs matrix of
// ∂output/∂input at a dimensional design. Entries for inputs an output
// does not depend on are exactly zero.
func (s *SensitivityAssembler) ComputeJacobian(d Design) (*mat.Dense, error) {
	g := NewGeometry(d)

	c, err := s.analysis.evaluateSurfaces(d, g, true)
	if err != nil {
		return nil, err
	}

	xSign := math.Copysign(1, d.X[1])
	if d.X[1] == 0 {
		xSign = 0
	}
	var absX Partials
	absX[ColX1] = xSign

	twistInputs := []Partials{absX, g.DB, g.DR, unit(ColL)}
	reliefInputs := []Partials{unit(ColX1)}
	sigmaInputs := []Partials{unit(ColZ0), unit(ColL), unit(ColX1), g.DB, g.DR}

	// Wing weight: WW = Fo1·P.
	base := wingWeightBase(d)
	dBase := wingWeightBasePartials(d, base)
	dRelief := chain(c.relief.Gradient, reliefInputs)

	var dWW Partials
	dWW.add(c.relief.Value, dBase)
	dWW.add(base, dRelief)

	// Wing fuel: WFW = k·|Sref|·t.
	var dWFW Partials
	sref := d.Z[5]
	dWFW.add(fuelVolumeFactor*math.Abs(sref), g.DT)
	if sref != 0 {
		dWFW[ColZ5] += fuelVolumeFactor * math.Copysign(1, sref) * g.T
	}

	dWT := dWW
	dWT.add(1, dWFW)
	dWT[ColWE] = 1

	rows := [NumOutputs]Partials{
		RowWT:    dWT,
		RowTheta: chain(c.twist.Gradient, twistInputs),
		RowWF:    dWFW,
	}
	for k := range c.sigma {
		rows[RowSigma0+k] = chain(c.sigma[k].Gradient, sigmaInputs)
	}

	jac := mat.NewDense(NumOutputs, NumInputs, nil)
	for i, row := range rows {
		jac.SetRow(i, row[:])
	}
	return jac, nil
}

// wingWeightBasePartials differentiates wingWeightBase. Each factor is
// a power of an absolute value, so ∂|u|^p/∂u = p·|u|^p/u and the
// product rule reduces to P·p/u per factor.
func wingWeightBasePartials(d Design, base float64) Partials {
	tc, ar, sweep, sref := d.Z[0], d.Z[3], d.Z[4], d.Z[5]
	theta := sweep * math.Pi / 180

	var p Partials
	p[ColZ0] = -0.4 * base / tc
	p[ColZ3] = 0.5 * base / ar
	p[ColZ4] = base * math.Tan(theta) * math.Pi / 180
	p[ColZ5] = (0.649 + 0.1) * base / sref
	p[ColX0] = 0.1 * base / (1 + d.X[0])
	p[ColL] = 0.557 * base / d.L
	return p
}
