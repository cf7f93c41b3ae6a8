// Package ssbjstruct implements the structures discipline of the supersonic
// business jet (SSBJ) multidisciplinary design problem, with exact analytic
// partial derivatives.
//
// # Overview
//
// The discipline turns a handful of design and coupling variables into
// structural weight, wing twist and stress ratios. The weight buildup is a
// set of closed-form power laws; twist, stresses and a weight-relief factor
// are corrected by anchored second-order response surfaces. Every output
// comes with its exact Jacobian, including the surfaces' trust-region rule
// that switches sensitivity off outside [0.75, 1.25] of the anchor.
//
// # Architecture
//
// The package components:
//
//   - PolynomialSurface    - anchored quadratic response surface (value, gradient, Hessian)
//   - StructuralAnalysis   - geometry (t, b, R) and the weight/stress formulas
//   - SensitivityAssembler - chain rule through the same geometry and surfaces
//   - Discipline           - scaling boundary exposed to the outer solver
//   - CheckPartials        - central-difference audit of the Jacobian
//
// # Quick Start
//
//	d, err := ssbjstruct.NewDiscipline(ssbjstruct.StandardScalers())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := d.Compute(ssbjstruct.ReferenceDesign())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("WT=%.6f Theta=%.6f WF=%.6f\n", out.WT, out.Theta, out.WF)
//
//	jac, err := d.ComputePartials(ssbjstruct.ReferenceDesign())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(jac.At(ssbjstruct.RowWT, ssbjstruct.ColL))
//
// # Variables
//
// Inputs (scaled at the boundary, Jacobian columns in this order):
//
//	z     = (t/c, h, M, AR, Λ, Sref)   shared design variables
//	x_str = (λ, x)                     taper ratio, wingbox section
//	L                                  coupling load
//	WE                                 coupling weight
//
// Outputs (Jacobian rows in this order):
//
//	WT, Theta, WF, sigma[0..4]
//
// # Response Surfaces
//
// A surface corrects a nominal value by
//
//	f(s) = A0 + Aᵀ·s + ½·sᵀ·Q·s,   sᵢ = clamp(xᵢ/anchorᵢ, 0.75, 1.25) - 1
//
// The anchor is the first input vector ever seen under a surface
// identifier and never moves afterwards. Inside the trust region
// ∂sᵢ/∂xᵢ = 1/anchorᵢ; outside it the deviation holds at the boundary and
// the slope is exactly zero. Value and derivative paths read the same
// Deviation record, so they can never disagree on saturation.
//
// # Known Edge Cases
//
//   - Power-law bases and square-root radicands are taken in absolute value.
//     Sign changes during optimization are masked, never reported.
//   - 1/|cos Λ| is unguarded. Keep the sweep input away from 90°.
//   - A zero anchor component makes that dimension's ratio infinite (or NaN).
//
// # Concurrency
//
// A Discipline is meant for one caller at a time. Its anchor store is an
// insert-if-absent cache, so concurrent first use of a surface still
// yields a single anchor, and anchors are immutable once set.
//
// # Testing
//
// Use the assertions to validate the Jacobian of a configured discipline:
//
//	func TestMyPoint(t *testing.T) {
//	    d, _ := ssbjstruct.NewDiscipline(ssbjstruct.StandardScalers())
//	    ssbjstruct.AssertPartialsConsistent(t, d, point, ssbjstruct.DefaultCheckConfig())
//	}
//
// # See Also
//
//   - cmd/ssbjstruct - eval and check from the command line
//   - NASA/TM-1998-208715 - Bi-Level Integrated System Synthesis (BLISS)
package ssbjstruct
