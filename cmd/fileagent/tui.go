package main

import (
	"errors"
	"os"
	"os/signal"

	"github.com/amonks/fileagent/internal/agenttui"
	"github.com/amonks/fileagent/internal/paths"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive editor",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var tuiArchive string

func init() {
	rootCmd.AddCommand(tuiCmd)
	addAgentFlags(tuiCmd)
	tuiCmd.Flags().StringVar(&tuiArchive, "archive", "", "Archive path to pre-fill")
}

func runTUI(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	env, err := openAgentEnv(ctx, envOptions{defaultLogFile: paths.DefaultLogFile})
	if err != nil {
		return err
	}
	defer func() {
		// Abandon any call still running so close does not block on it.
		stop()
		err = errors.Join(err, env.close())
	}()

	env.logger.Info("starting tui", "url", env.url)
	return agenttui.Run(ctx, env.controller, agenttui.Options{
		Archive:     tuiArchive,
		DownloadDir: env.downloadDir,
	})
}
