package ssbjstruct

import (
	"io"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// Discipline is the structures discipline as seen by a multidisciplinary
// solver: scaled inputs in, scaled outputs or a scaled Jacobian out.
//
// A Discipline owns its surface anchors. Anchors are set by the first
// evaluation and persist for the lifetime of the instance; create a new
// Discipline to re-anchor.
type Discipline struct {
	scalers     ScalerTable
	surface     *PolynomialSurface
	analysis    *StructuralAnalysis
	sensitivity *SensitivityAssembler
	logger      *slog.Logger
}

type options struct {
	logger *slog.Logger
	lib    CoefficientLibrary
}

// Option configures a Discipline.
type Option func(*options)

// WithLogger routes discipline logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCoefficients replaces the default coefficient library.
func WithCoefficients(lib CoefficientLibrary) Option {
	return func(o *options) { o.lib = lib }
}

// NewDiscipline creates a discipline with an empty anchor cache.
func NewDiscipline(scalers ScalerTable, opts ...Option) (*Discipline, error) {
	if err := scalers.Validate(); err != nil {
		return nil, &OpError{Op: "discipline.new", Kind: KindInvalidConfig, Err: err}
	}

	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		lib:    DefaultCoefficients(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	surface := NewPolynomialSurface(o.lib, o.logger)
	analysis := NewStructuralAnalysis(surface)

	return &Discipline{
		scalers:     scalers,
		surface:     surface,
		analysis:    analysis,
		sensitivity: NewSensitivityAssembler(analysis),
		logger:      o.logger,
	}, nil
}

// Scalers returns the discipline's scaler table.
func (d *Discipline) Scalers() ScalerTable {
	return d.scalers
}

// Anchor returns a copy of the anchor of a surface identifier.
func (d *Discipline) Anchor(id string) (AnchorPoint, bool) {
	return d.surface.Anchor(id)
}

// Anchored returns the number of anchored surfaces.
func (d *Discipline) Anchored() int {
	return d.surface.Len()
}

// Compute evaluates the discipline at scaled inputs and returns scaled
// outputs.
func (d *Discipline) Compute(in Design) (Outputs, error) {
	dim := d.scalers.Descale(in)

	out, err := d.analysis.Compute(dim)
	if err != nil {
		return Outputs{}, err
	}

	scaled := d.scalers.ScaleOutputs(out)
	d.logger.Debug("structures computed",
		"WT", scaled.WT, "Theta", scaled.Theta, "WF", scaled.WF)
	return scaled, nil
}

// ComputePartials returns the NumOutputs×NumInputs Jacobian of the scaled
// outputs with respect to the scaled inputs.
func (d *Discipline) ComputePartials(in Design) (*mat.Dense, error) {
	dim := d.scalers.Descale(in)

	jac, err := d.sensitivity.ComputeJacobian(dim)
	if err != nil {
		return nil, err
	}

	sIn, sOut := d.scalers.inputs(), d.scalers.outputs()
	jac.Apply(func(i, j int, v float64) float64 {
		if v == 0 {
			return 0
		}
		return v * sIn[j] / sOut[i]
	}, jac)

	return jac, nil
}
