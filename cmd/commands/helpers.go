package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/editbridge/internal/cli"
	"github.com/pluqqy/editbridge/pkg/transcript"
)

// commandContext reads the settings named by the inherited --config flag
func commandContext(cmd *cobra.Command) (*cli.CommandContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	return cli.NewCommandContext(configPath)
}

// loadTranscript validates and parses the transcript at path
func loadTranscript(path string) (*transcript.Transcript, error) {
	if err := cli.ValidateFilePath(path); err != nil {
		return nil, err
	}
	t, err := transcript.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return t, nil
}
