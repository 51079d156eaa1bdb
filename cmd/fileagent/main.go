// Package main implements the fileagent CLI.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fileagent",
	Short: "Edit project archives with a remote file agent",
	Long: `fileagent uploads a zip archive of a project to an agent service, sends it
natural-language instructions, and downloads the edited project.

Run without a command in a terminal to open the interactive editor.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runRoot,
}

var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	addAgentFlags(rootCmd)
	rootCmd.Flags().StringVar(&tuiArchive, "archive", "", "Archive path to pre-fill")
}

func runRoot(cmd *cobra.Command, args []string) error {
	if !stdoutIsTerminal() {
		return cmd.Help()
	}
	return runTUI(cmd, args)
}
