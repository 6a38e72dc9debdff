package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranshivaraju/triage/internal/eval"
	"github.com/kiranshivaraju/triage/internal/logging"
)

func newEvalCmd(d deps, v *viper.Viper) *cobra.Command {
	var (
		casesDir   string
		resultsDir string
		parallel   int
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the labelled eval cases against the configured model (needs RUN_EVALS=1)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := eval.RequireEnabled(d.getenv); err != nil {
				return fmt.Errorf("%w (set RUN_EVALS=1 to spend model calls on evals)", err)
			}

			cases, err := eval.LoadCases(casesDir)
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				return fmt.Errorf("no case files found in %s", casesDir)
			}

			svc, err := d.newService(cmd.Context())
			if err != nil {
				return err
			}

			h := eval.NewHarness(svc, resultsDir,
				eval.WithParallel(parallel),
				eval.WithModel(v.GetString("model")),
				eval.WithClock(d.now),
				eval.WithLogger(logging.New("eval")),
			)
			results, err := h.Run(cmd.Context(), cases)
			if err != nil {
				return err
			}

			eval.RenderSummary(cmd.OutOrStdout(), results, resultsDir)
			if eval.Passed(results) != len(results) {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&casesDir, "cases", "eval/cases", "directory of .json/.yaml case files")
	cmd.Flags().StringVar(&resultsDir, "results", eval.DefaultResultsDir, "directory for per-case reports")
	cmd.Flags().IntVar(&parallel, "concurrency", 1, "cases run at once")
	return cmd
}
