package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amonks/fileagent/internal/logging"
	"github.com/amonks/fileagent/internal/stubagent"
	"github.com/spf13/cobra"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve a local stand-in for the agent service",
	Long: `Stub serves the agent HTTP API from memory. It understands only the
instructions "delete <path>" and "create <path>", which is enough to try the
client without the real service.`,
	Args: cobra.NoArgs,
	RunE: runStub,
}

var (
	stubListen   string
	stubDelay    time.Duration
	stubAddrFile string
	stubLogLevel string
)

func init() {
	rootCmd.AddCommand(stubCmd)
	stubCmd.Flags().StringVar(&stubListen, "listen", "127.0.0.1:8000", "Address to listen on")
	stubCmd.Flags().DurationVar(&stubDelay, "delay", 0, "Delay added to every response")
	stubCmd.Flags().StringVar(&stubAddrFile, "addr-file", "", "Write the service URL to this file once listening")
	stubCmd.Flags().StringVar(&stubLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func runStub(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog, err := logging.New(logging.Options{Level: stubLogLevel, Terminal: cmd.ErrOrStderr()})
	if err != nil {
		return exitError{code: exitUsage, err: err}
	}
	defer closeLog()

	server := stubagent.New(stubagent.Options{Logger: logger, Delay: stubDelay})
	return server.Serve(ctx, stubListen, func(addr net.Addr) error {
		url := "http://" + addr.String()
		fmt.Fprintf(cmd.OutOrStdout(), "stub agent listening on %s\n", url)
		if stubAddrFile == "" {
			return nil
		}
		return writeFileAtomic(stubAddrFile, []byte(url+"\n"))
	})
}

// writeFileAtomic replaces path so readers never observe partial content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
