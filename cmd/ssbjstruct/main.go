// Command ssbjstruct evaluates the SSBJ structures discipline and audits
// its analytic partials.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/alexshd/ssbjstruct"
)

var logLevel = new(slog.LevelVar)

func init() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: "15:04:05",
		}),
	))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	debug   bool
	scalers string
	point   string
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:          "ssbjstruct",
		Short:        "SSBJ structures discipline with analytic partials",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if f.debug {
				logLevel.Set(slog.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "log surface anchoring and saturation")
	cmd.PersistentFlags().StringVar(&f.scalers, "scalers", "", "YAML scaler table (default: standard table)")
	cmd.PersistentFlags().StringVar(&f.point, "point", "", "YAML design point in scaled form (default: reference point)")

	cmd.AddCommand(newEvalCmd(&f), newCheckCmd(&f))
	return cmd
}

func newEvalCmd(f *rootFlags) *cobra.Command {
	var jacobian bool

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compute scaled outputs at a design point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, point, err := setup(f)
			if err != nil {
				return err
			}

			out, err := d.Compute(point)
			if err != nil {
				return err
			}
			printOutputs(cmd.OutOrStdout(), out)

			if jacobian {
				jac, err := d.ComputePartials(point)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nJacobian (rows WT, Theta, WF, sigma[0..4]; cols z[0..5], x_str[0..1], L, WE):\n%.6g\n",
					mat.Formatted(jac, mat.Prefix("")))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jacobian, "jacobian", false, "also print the analytic Jacobian")
	return cmd
}

func newCheckCmd(f *rootFlags) *cobra.Command {
	var (
		anchor string
		cfg    = ssbjstruct.DefaultCheckConfig()
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare analytic partials with central differences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, point, err := setup(f)
			if err != nil {
				return err
			}

			if anchor != "" {
				a, err := ssbjstruct.LoadDesign(anchor)
				if err != nil {
					return err
				}
				if _, err := d.Compute(a); err != nil {
					return err
				}
				slog.Info("surfaces anchored", "file", anchor, "surfaces", d.Anchored())
			}

			report, err := ssbjstruct.CheckPartials(d, point, cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, e := range report.Entries {
				fmt.Fprintln(w, e)
			}
			fmt.Fprintf(w, "\nworst: %s\n", report.Worst)

			if !report.Passed() {
				slog.Error("partials out of tolerance", "failures", len(report.Failures()), "tolerance", cfg.Tolerance)
				return fmt.Errorf("%d Jacobian entries exceed tolerance %g", len(report.Failures()), cfg.Tolerance)
			}
			slog.Info("partials consistent", "worst", report.Worst.RelError, "tolerance", cfg.Tolerance)
			return nil
		},
	}

	cmd.Flags().StringVar(&anchor, "anchor", "", "YAML design point to anchor the surfaces at before checking")
	cmd.Flags().Float64Var(&cfg.Step, "step", cfg.Step, "central-difference step")
	cmd.Flags().Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "maximum relative error")
	return cmd
}

func setup(f *rootFlags) (*ssbjstruct.Discipline, ssbjstruct.Design, error) {
	scalers := ssbjstruct.StandardScalers()
	if f.scalers != "" {
		s, err := ssbjstruct.LoadScalers(f.scalers)
		if err != nil {
			return nil, ssbjstruct.Design{}, err
		}
		scalers = s
	}

	point := ssbjstruct.ReferenceDesign()
	if f.point != "" {
		p, err := ssbjstruct.LoadDesign(f.point)
		if err != nil {
			return nil, ssbjstruct.Design{}, err
		}
		point = p
	}

	d, err := ssbjstruct.NewDiscipline(scalers, ssbjstruct.WithLogger(slog.Default()))
	if err != nil {
		return nil, ssbjstruct.Design{}, err
	}
	return d, point, nil
}

func printOutputs(w io.Writer, out ssbjstruct.Outputs) {
	fmt.Fprintf(w, "WT     %.10g\n", out.WT)
	fmt.Fprintf(w, "Theta  %.10g\n", out.Theta)
	fmt.Fprintf(w, "WF     %.10g\n", out.WF)
	for k, s := range out.Sigma {
		fmt.Fprintf(w, "sigma[%d] %.10g\n", k, s)
	}
}
