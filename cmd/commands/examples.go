package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pluqqy/editbridge/internal/cli"
	"github.com/pluqqy/editbridge/pkg/examples"
	"github.com/pluqqy/editbridge/pkg/files"
)

// NewExamplesCommand creates the examples command
func NewExamplesCommand() *cobra.Command {
	var listOnly bool
	var force bool

	cmd := &cobra.Command{
		Use:   "examples [category]",
		Short: "Add example transcripts to your project",
		Long: `Add example transcripts to your .editbridge/transcripts directory.

Each example is a complete editing session you can replay or step through
with the inspector. Files carry an 'example-' prefix to distinguish them
from your own transcripts.

Categories:
  formatting   - Character formats, paragraph styles, lists and undo
  tables       - Inserting and growing tables
  review       - Comment regions with buttons, search and host actions
  all          - Install every category (default)`,
		Example: `  # Add every example
  editbridge examples

  # Add only the table examples
  editbridge examples tables

  # List available examples without installing
  editbridge examples --list

  # Overwrite examples you have edited
  editbridge examples --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := "all"
			if len(args) > 0 {
				category = args[0]
			}

			valid := append(examples.Categories(), "all")
			if !slices.Contains(valid, category) {
				return fmt.Errorf("invalid category '%s'. Valid categories: %s",
					category, strings.Join(valid, ", "))
			}

			if listOnly {
				return listExamples(cmd, category)
			}

			if _, err := os.Stat(files.ProjectDir); os.IsNotExist(err) {
				return fmt.Errorf("no %s directory found. Run 'editbridge init' first", files.ProjectDir)
			}
			return installExamples(cmd, category, force)
		},
	}

	cmd.Flags().BoolVarP(&listOnly, "list", "l", false, "List available examples without installing")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing example files")

	return cmd
}

func listExamples(cmd *cobra.Command, category string) error {
	w := cmd.OutOrStdout()
	for _, set := range examples.GetExamples(category) {
		fmt.Fprintf(w, "[%s] %s\n", set.Category, set.Name)
		fmt.Fprintf(w, "   %s\n", set.Description)
		for _, t := range set.Transcripts {
			fmt.Fprintf(w, "   • %s (%s)\n", t.Name, t.Filename)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "To install these examples, run: editbridge examples %s\n", category)
	return nil
}

func installExamples(cmd *cobra.Command, category string, force bool) error {
	w := cmd.OutOrStdout()
	installed, skipped := 0, 0
	dir := filepath.Join(files.ProjectDir, files.TranscriptsDir)

	for _, set := range examples.GetExamples(category) {
		for _, t := range set.Transcripts {
			ok, err := examples.InstallTranscript(t, force)
			if err != nil {
				return fmt.Errorf("failed to install %s: %w", t.Name, err)
			}
			if !ok {
				skipped++
				cli.FprintWarning(cmd.ErrOrStderr(), "Skipped %s (already exists, use --force to overwrite)", t.Filename)
				continue
			}
			installed++
			cli.FprintSuccess(w, "Installed %s", filepath.Join(dir, t.Filename))
		}
	}

	fmt.Fprintf(w, "%d installed, %d skipped\n", installed, skipped)
	if installed > 0 {
		cli.FprintInfo(w, "Run 'editbridge inspect %s' to step through one", filepath.Join(dir, "example-formatting.yaml"))
	}
	return nil
}
