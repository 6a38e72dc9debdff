package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranshivaraju/triage/internal/logging"
	"github.com/kiranshivaraju/triage/internal/output"
	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/internal/watch"
)

func newWatchCmd(d deps, v *viper.Viper) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Triage every ticket file written into a directory until interrupted",
		Long: `Watches <dir> for new or changed .txt, .md and .eml files and runs triage on
each one once writes to it settle. The file name (without extension) becomes
the ticket title. A failed run is reported and watching continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := d.newService(cmd.Context())
			if err != nil {
				return err
			}
			w := output.NewWriter(v.GetString("out"))
			model := v.GetString("model")
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			logger := logging.New("watch")

			handle := func(ctx context.Context, path string) {
				text, err := output.ReadTextFile(path)
				if err != nil {
					logger.Warn("skipping ticket file", slog.String("path", path), slog.Any("error", err))
					return
				}
				fmt.Fprintf(stdout, "==> %s\n", path)
				req := triage.Request{TicketText: text, Title: titleFromPath(path), Model: model}
				if err := runTicket(ctx, svc, w, req, stdout, stderr, false); err != nil && !errors.Is(err, errReported) {
					fmt.Fprintln(stderr, "error:", err)
				}
			}

			return watch.New(args[0], handle,
				watch.WithDebounce(debounce),
				watch.WithLogger(logger),
			).Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a file is picked up")
	return cmd
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
