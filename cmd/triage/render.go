package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranshivaraju/triage/internal/output"
	"github.com/kiranshivaraju/triage/internal/triage"
)

func newRenderCmd(_ *viper.Viper) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "render <triage.json>",
		Short: "Validate a saved triage record and print it as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := output.ReadRecord(args[0])
			var recErr *output.RecordError
			if errors.As(err, &recErr) {
				printList(cmd.ErrOrStderr(), recErr.Error()+":", recErr.Violations)
				return errReported
			}
			if err != nil {
				return err
			}

			md := triage.RenderMarkdown(rec)
			if pretty {
				if md, err = renderPretty(md); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render for the terminal instead of printing raw markdown")
	return cmd
}

func renderPretty(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
