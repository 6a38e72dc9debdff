package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranshivaraju/triage/internal/ai/provider"
	"github.com/kiranshivaraju/triage/internal/config"
	"github.com/kiranshivaraju/triage/internal/logging"
	"github.com/kiranshivaraju/triage/internal/output"
	"github.com/kiranshivaraju/triage/internal/store"
	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/pkg/models"
)

// errReported means the command already printed what went wrong; main only
// needs to exit non-zero.
var errReported = errors.New("command failed")

// deps are the outside-world hooks commands use, swapped out in tests.
type deps struct {
	newGenerator func(ctx context.Context) (models.Generator, config.TriageConfig, error)
	openStore    func(ctx context.Context, databaseURL string) (store.Store, func(), error)
	getenv       func(string) string
	now          func() time.Time
}

func defaultDeps() deps {
	return deps{
		newGenerator: func(ctx context.Context) (models.Generator, config.TriageConfig, error) {
			aiCfg, trCfg, err := config.LoadAI()
			if err != nil {
				return nil, config.TriageConfig{}, err
			}
			gen, err := provider.New(ctx, aiCfg)
			if err != nil {
				return nil, config.TriageConfig{}, err
			}
			return gen, trCfg, nil
		},
		openStore: func(ctx context.Context, databaseURL string) (store.Store, func(), error) {
			pool, err := store.Connect(ctx, config.DatabaseConfig{
				URL:             databaseURL,
				MaxOpenConns:    2,
				ConnMaxLifetime: time.Minute,
			})
			if err != nil {
				return nil, nil, err
			}
			return store.NewPostgresStore(pool), pool.Close, nil
		},
		getenv: os.Getenv,
		now:    time.Now,
	}
}

// newService builds the triage pipeline from the configured provider.
func (d deps) newService(ctx context.Context) (*triage.Service, error) {
	gen, trCfg, err := d.newGenerator(ctx)
	if err != nil {
		return nil, err
	}
	return triage.NewService(gen,
		triage.WithGuardrails(triage.Guardrails{ReproThreshold: trCfg.ReproThresholdChars}),
		triage.WithLogger(logging.New("triage")),
	), nil
}

// newRootCmd builds the command tree. Flags fall back to TRIAGE_* env vars
// through viper, e.g. TRIAGE_MODEL and TRIAGE_OUT.
func newRootCmd(d deps) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "triage",
		Short:         "Turn raw support tickets into validated, structured triage records",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().String("model", "", "model override (default: the provider's default model)")
	root.PersistentFlags().String("out", output.DefaultDir, "directory for run artifacts")
	_ = v.BindPFlag("model", root.PersistentFlags().Lookup("model"))
	_ = v.BindPFlag("out", root.PersistentFlags().Lookup("out"))

	root.AddCommand(
		newRunCmd(d, v),
		newRenderCmd(v),
		newEvalCmd(d, v),
		newWatchCmd(d, v),
		newAPIKeyCmd(d, v),
	)
	return root
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) error {
	root := newRootCmd(d)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// printList writes a heading followed by indented lines.
func printList(w io.Writer, heading string, lines []string) {
	fmt.Fprintln(w, heading)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
}
