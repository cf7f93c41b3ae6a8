package ssbjstruct

import (
	"fmt"
	"math"
)

// ScalerTable holds one nondimensionalization factor per named
// variable. Scaled inputs are multiplied by their factor on the way in;
// dimensional outputs are divided by theirs on the way out.
//
// The table is a value: a Discipline keeps its own copy, so the factors
// cannot change after construction.
type ScalerTable struct {
	Z     [6]float64
	X     [2]float64
	L     float64
	WE    float64
	WT    float64
	Theta float64
	WF    float64
	Sigma [5]float64
}

// StandardScalers returns the discipline's standard table: the design
// variable spans of the SSBJ problem and the converged coupling values
// at the nominal point. Total weight is scaled like the load it feeds.
func StandardScalers() ScalerTable {
	return ScalerTable{
		Z:     [6]float64{0.05, 45000, 1.6, 5.5, 55, 1000},
		X:     [2]float64{0.25, 1},
		L:     49909.58578,
		WE:    5748.915355,
		WT:    49909.58578,
		Theta: 0.950978,
		WF:    7306.20261,
		Sigma: [5]float64{1.12255, 1.08170213, 1.0612766, 1.04902128, 1.04085106},
	}
}

// Validate checks that every factor is positive and finite.
func (s ScalerTable) Validate() error {
	check := func(name string, v float64) error {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: scaler %s must be positive and finite, got %g", ErrInvalidConfig, name, v)
		}
		return nil
	}

	for j, v := range s.inputs() {
		if err := check(InputName(j), v); err != nil {
			return err
		}
	}
	for i, v := range s.outputs() {
		if err := check(OutputName(i), v); err != nil {
			return err
		}
	}
	return nil
}

// inputs lists the input factors in Jacobian column order.
func (s ScalerTable) inputs() [NumInputs]float64 {
	var v [NumInputs]float64
	copy(v[:], s.Z[:])
	copy(v[ColX0:], s.X[:])
	v[ColL], v[ColWE] = s.L, s.WE
	return v
}

// outputs lists the output factors in Jacobian row order.
func (s ScalerTable) outputs() [NumOutputs]float64 {
	var v [NumOutputs]float64
	v[RowWT], v[RowTheta], v[RowWF] = s.WT, s.Theta, s.WF
	copy(v[RowSigma0:], s.Sigma[:])
	return v
}

// Descale converts scaled inputs to dimensional ones.
func (s ScalerTable) Descale(in Design) Design {
	var d Design
	for i := range d.Z {
		d.Z[i] = in.Z[i] * s.Z[i]
	}
	for i := range d.X {
		d.X[i] = in.X[i] * s.X[i]
	}
	d.L = in.L * s.L
	d.WE = in.WE * s.WE
	return d
}

// Scale converts dimensional inputs to scaled ones.
func (s ScalerTable) Scale(d Design) Design {
	var in Design
	for i := range in.Z {
		in.Z[i] = d.Z[i] / s.Z[i]
	}
	for i := range in.X {
		in.X[i] = d.X[i] / s.X[i]
	}
	in.L = d.L / s.L
	in.WE = d.WE / s.WE
	return in
}

// ScaleOutputs converts dimensional outputs to scaled ones.
func (s ScalerTable) ScaleOutputs(o Outputs) Outputs {
	out := Outputs{
		WT:    o.WT / s.WT,
		Theta: o.Theta / s.Theta,
		WF:    o.WF / s.WF,
	}
	for k := range out.Sigma {
		out.Sigma[k] = o.Sigma[k] / s.Sigma[k]
	}
	return out
}
