package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pluqqy/editbridge/cmd/commands"
	"github.com/pluqqy/editbridge/internal/cli"
	"github.com/pluqqy/editbridge/pkg/files"
)

// Version is set during build with -ldflags
var version = "dev"

var (
	quiet       bool
	noColor     bool
	skipConfirm bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "editbridge",
	Short: "Drive and inspect a rich-text editing surface from Go",
	Long: `Editbridge connects a host to a scripted rich-text editing surface. It
replays transcripts of editing sessions against an in-process surface,
steps through them interactively and serves a websocket endpoint for a
live surface.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.SetGlobalFlags(quiet, noColor, skipConfirm, verbose)
	},
}

var resetSettings bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an editbridge project",
	Long:  `Creates the .editbridge folder with a default settings file, a resources folder and a sessions folder`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine current directory: %w", err)
		}

		cli.PrintInfo("Initializing editbridge project in %s...", cwd)

		if resetSettings {
			if _, err := os.Stat(files.SettingsPath()); err == nil {
				ok, err := cli.Confirm("Overwrite "+files.SettingsPath()+" with defaults?", false)
				if err != nil {
					return err
				}
				if !ok {
					cli.PrintInfo("Keeping existing settings")
					return nil
				}
				if err := os.Remove(files.SettingsPath()); err != nil {
					return fmt.Errorf("failed to remove settings: %w", err)
				}
			}
		}

		if err := files.InitProjectStructure(); err != nil {
			return fmt.Errorf("failed to initialize project structure: %w", err)
		}

		cli.PrintSuccess("Created %s", files.ProjectDir)
		cli.PrintSuccess("Settings are in %s", files.SettingsPath())
		cli.PrintInfo("Run 'editbridge replay <transcript>' to replay an editing session.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of editbridge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "editbridge version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable symbols and color in output")
	rootCmd.PersistentFlags().BoolVarP(&skipConfirm, "yes", "y", false, "Answer yes to every confirmation")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Settings file (default .editbridge/settings.yaml)")

	initCmd.Flags().BoolVar(&resetSettings, "reset", false, "Replace an existing settings file with defaults")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(commands.NewReplayCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewVocabCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewExamplesCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
