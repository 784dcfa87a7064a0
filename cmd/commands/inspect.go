package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/editbridge/pkg/inspector"
	"github.com/pluqqy/editbridge/pkg/transcript"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <transcript>",
		Short: "Step through a transcript interactively",
		Long: `Open a terminal stepper over a transcript replay. The left pane lists the
steps; the right pane shows the delegate calls, the selection and the
document after the selected step.

Keys:
  n, enter   run the next step
  a          run every remaining step
  ←/→        select a step
  tab        switch pane
  ↑/↓        scroll
  q          quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cc.Close()

			t, err := loadTranscript(args[0])
			if err != nil {
				return err
			}

			player, err := transcript.NewPlayer(cmd.Context(), t,
				transcript.WithLogger(cc.Logger),
				transcript.WithBaseSettings(cc.Settings),
			)
			if err != nil {
				return fmt.Errorf("failed to set up replay: %w", err)
			}
			defer player.Close()

			return inspector.Run(cmd.Context(), player)
		},
	}
}
