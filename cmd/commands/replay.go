package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pluqqy/editbridge/internal/cli"
	"github.com/pluqqy/editbridge/pkg/router"
	"github.com/pluqqy/editbridge/pkg/transcript"
)

var (
	replayOutput string
	replayStrict bool
	replayHTML   bool
)

// NewReplayCommand creates the replay command
func NewReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <transcript>",
		Short: "Replay a transcript against an in-process editing surface",
		Long: `Replay a transcript against an in-process editing surface and print the
delegate calls every step caused.

The transcript declares the regions of the document and a list of steps.
A step either delivers a raw inbound message, runs a script on the
surface (for example _select or _clickButton to emulate the user) or
invokes an editor operation.

Examples:
  # Replay and print the calls
  editbridge replay review.yaml

  # Include the document after every step
  editbridge replay review.yaml --html

  # Machine readable report
  editbridge replay review.yaml -o json

  # Exit non-zero when any step reports an error
  editbridge replay review.yaml --strict`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateOutputFormat(replayOutput)
		},
		RunE: runReplay,
	}

	cmd.Flags().StringVarP(&replayOutput, "output", "o", "text", "Output format (text, json, yaml)")
	cmd.Flags().BoolVar(&replayStrict, "strict", false, "Fail when any step reports an error")
	cmd.Flags().BoolVar(&replayHTML, "html", false, "Print the document after every step")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	t, err := loadTranscript(args[0])
	if err != nil {
		return err
	}

	report, err := transcript.Replay(cmd.Context(), t,
		transcript.WithLogger(cc.Logger),
		transcript.WithBaseSettings(cc.Settings),
	)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	w := cmd.OutOrStdout()
	if replayOutput == string(cli.FormatText) {
		printReport(w, report, replayHTML)
	} else if err := cli.OutputResults(w, replayOutput, report); err != nil {
		return err
	}

	if failed := report.Failed(); failed > 0 {
		if replayStrict {
			return fmt.Errorf("%d of %d steps failed", failed, len(report.Steps))
		}
		cli.FprintWarning(cmd.ErrOrStderr(), "%d of %d steps reported an error", failed, len(report.Steps))
	}
	return nil
}

func printReport(w io.Writer, report *transcript.Report, withHTML bool) {
	name := report.Name
	if name == "" {
		name = "transcript"
	}
	fmt.Fprintf(w, "Transcript: %s\n", name)
	fmt.Fprintf(w, "Steps: %d\n", len(report.Steps))
	fmt.Fprintln(w, strings.Repeat("-", 60))

	fmt.Fprintln(w, "setup")
	printCalls(w, report.Setup)

	for _, step := range report.Steps {
		fmt.Fprintf(w, "\n%d. %s %s\n", step.Index+1, step.Kind, step.Detail)
		if step.Note != "" {
			fmt.Fprintf(w, "   # %s\n", step.Note)
		}
		if step.Error != "" {
			fmt.Fprintf(w, "   error: %s\n", step.Error)
		}
		printCalls(w, step.Calls)
		if withHTML {
			fmt.Fprintf(w, "   html: %s\n", step.HTML)
		}
	}
}

func printCalls(w io.Writer, calls []router.Entry) {
	for _, call := range calls {
		fmt.Fprintf(w, "   %s\n", call)
	}
}
