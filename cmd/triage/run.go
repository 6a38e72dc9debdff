package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranshivaraju/triage/internal/output"
	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/pkg/models"
)

func newRunCmd(d deps, v *viper.Viper) *cobra.Command {
	var (
		title  string
		source string
		tone   string
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "run <ticket-file>",
		Short: "Triage one ticket file and write its artifacts",
		Example: `  triage run tickets/sample_ticket_good.txt --title "Payments stuck" --tone direct
  TRIAGE_OUT=/tmp/triage triage run mail.txt --source email`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := output.ReadTextFile(args[0])
			if err != nil {
				return err
			}
			svc, err := d.newService(cmd.Context())
			if err != nil {
				return err
			}
			req := triage.Request{
				TicketText: text,
				Title:      title,
				Source:     models.Source(source),
				Tone:       models.Tone(tone),
				Model:      v.GetString("model"),
			}
			return runTicket(cmd.Context(), svc, output.NewWriter(v.GetString("out")), req,
				cmd.OutOrStdout(), cmd.ErrOrStderr(), pretty)
		},
	}
	cmd.Flags().StringVar(&title, "title", "Ticket", "ticket title")
	cmd.Flags().StringVar(&source, "source", string(models.SourceTicket), "where the text came from: ticket or email")
	cmd.Flags().StringVar(&tone, "tone", string(models.ToneNeutral), "reply tone: neutral or direct")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "also print the rendered markdown to the terminal")
	return cmd
}

// runTicket executes one run and writes its artifacts. A validation failure
// still writes the trace, prints the violations and returns errReported.
func runTicket(ctx context.Context, svc *triage.Service, w *output.Writer, req triage.Request, stdout, stderr io.Writer, pretty bool) error {
	res, err := svc.Run(ctx, req)

	var verr *triage.ValidationError
	if errors.As(err, &verr) {
		a, werr := w.WriteFailure(verr)
		fmt.Fprintln(stderr, verr.Message)
		if len(verr.Violations) > 0 {
			fmt.Fprintln(stderr, "Validation errors:")
			for _, v := range verr.Violations {
				fmt.Fprintf(stderr, "  - %s\n", v)
			}
		}
		if werr != nil {
			return werr
		}
		fmt.Fprintf(stderr, "Trace written: %s\n", a.Trace)
		return errReported
	}
	if err != nil {
		return err
	}

	a, err := w.WriteResult(res)
	if err != nil {
		return err
	}

	printList(stdout, "Written:", a.Paths())
	if len(res.Trace.Flags) > 0 {
		fmt.Fprintf(stdout, "Flags: %s\n", strings.Join(res.Trace.Flags, ", "))
	}
	if res.Trace.HasFlag(models.FlagRepairedOutput) {
		fmt.Fprintln(stdout, "Repair: occurred (output was repaired from invalid initial response)")
	}

	if pretty {
		rendered, err := renderPretty(res.Markdown)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, "\n"+rendered)
	}
	return nil
}
