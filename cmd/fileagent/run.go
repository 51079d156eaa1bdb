package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/amonks/fileagent/agent"
	"github.com/amonks/fileagent/internal/editor"
	internalstrings "github.com/amonks/fileagent/internal/strings"
	"github.com/amonks/fileagent/internal/ui"
	"github.com/amonks/fileagent/workflow"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Upload an archive, apply instructions, and download the result",
	Long: `Run uploads the archive, submits each --prompt in order, and prints the file
listing and the agent's message after every step. With --out the edited
project is downloaded when all instructions succeed.`,
	Example: `  fileagent run --archive project.zip --prompt "delete main.py" --out edited.zip
  fileagent run --archive project.zip --edit`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runArchive string
	runPrompts []string
	runEdit    bool
	runOut     string
	runJSON    bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	addAgentFlags(runCmd)
	setFlagAliases(runCmd.Flags(), promptFlagAliases)
	runCmd.Flags().StringVarP(&runArchive, "archive", "a", "", "Zip archive to upload")
	runCmd.Flags().StringArrayVarP(&runPrompts, "prompt", "p", nil, "Instruction to submit (repeatable)")
	runCmd.Flags().BoolVarP(&runEdit, "edit", "e", false, "Compose one more instruction in $EDITOR")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "Write the edited archive to this file or directory")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output JSON")
}

// runStep is one controller operation reported by run.
type runStep struct {
	Step      string   `json:"step"`
	SessionID string   `json:"session_id"`
	Prompt    string   `json:"prompt,omitempty"`
	Files     []string `json:"files"`
	Message   string   `json:"message"`
	Output    string   `json:"output,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := validateRunFlags(); err != nil {
		return exitError{code: exitUsage, err: err}
	}
	if runEdit && !isInteractive() {
		return exitError{code: exitUsage, err: errors.New("--edit requires an interactive terminal")}
	}

	archive, err := os.ReadFile(runArchive)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	env, err := openAgentEnv(ctx, envOptions{terminal: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer env.close()

	runner := newSequentialRunner(env.controller)
	defer runner.close()

	out := cmd.OutOrStdout()
	var steps []runStep
	report := func(step runStep) error {
		steps = append(steps, step)
		if runJSON {
			return nil
		}
		return printRunStep(out, step, wrapWidth())
	}

	name := filepath.Base(runArchive)
	event, err := runner.do(workflow.OpUploading, func() error {
		return env.controller.StartUpload(name, archive)
	})
	if err != nil {
		return err
	}
	if err := report(stepFromEvent("upload "+name, event)); err != nil {
		return err
	}

	prompts := runPrompts
	if runEdit {
		snapshot := env.controller.Snapshot()
		text, err := editInstruction(editor.InstructionData{Archive: name, Files: snapshot.Files})
		if err != nil {
			return err
		}
		if internalstrings.IsBlank(text) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Empty instruction; nothing submitted from the editor.")
		} else {
			prompts = append(append([]string(nil), prompts...), text)
		}
	}

	for _, prompt := range prompts {
		event, err := runner.do(workflow.OpSubmittingInstruction, func() error {
			return env.controller.StartInstruction(prompt)
		})
		if err != nil {
			return err
		}
		step := stepFromEvent("instruction", event)
		step.Prompt = prompt
		if err := report(step); err != nil {
			return err
		}
	}

	if runOut != "" {
		event, err := runner.do(workflow.OpDownloading, env.controller.StartDownload)
		if err != nil {
			return err
		}
		path, err := writeArchive(runOut, *event.Archive)
		if err != nil {
			return err
		}
		step := stepFromEvent("download", event)
		step.Output = path
		if err := report(step); err != nil {
			return err
		}
	}

	if runJSON {
		return encodeJSON(out, steps)
	}
	return nil
}

// validateRunFlags rejects bad input before anything is uploaded.
func validateRunFlags() error {
	if internalstrings.IsBlank(runArchive) {
		return errors.New("--archive is required")
	}
	for i, prompt := range runPrompts {
		if internalstrings.IsBlank(prompt) {
			return fmt.Errorf("prompt %d is blank", i+1)
		}
	}
	return nil
}

var isInteractive = editor.IsInteractive

var editInstruction = editor.EditInstruction

func stepFromEvent(name string, event workflow.Event) runStep {
	files := event.Snapshot.Files
	if files == nil {
		files = []string{}
	}
	return runStep{
		Step:      name,
		SessionID: event.Snapshot.ID,
		Files:     files,
		Message:   event.Snapshot.Message,
	}
}

func printRunStep(w io.Writer, step runStep, width int) error {
	var header string
	switch {
	case step.Output != "":
		header = fmt.Sprintf("== %s: saved %s", step.Step, step.Output)
	case step.Prompt != "":
		header = fmt.Sprintf("== %s: %s", step.Step, ui.TruncateTableCell(internalstrings.FirstLine(step.Prompt)))
	default:
		header = fmt.Sprintf("== %s (session %s)", step.Step, step.SessionID)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if step.Output != "" {
		_, err := fmt.Fprintln(w)
		return err
	}
	if _, err := fmt.Fprint(w, formatFileTable(step.Files)); err != nil {
		return err
	}
	if message := wrapMessage(step.Message, width); message != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", message); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeArchive saves archive at out, or inside out when it is a directory.
func writeArchive(out string, archive agent.Archive) (string, error) {
	path := out
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		name := filepath.Base(archive.Filename)
		if name == "." || name == string(filepath.Separator) || name == "" {
			return "", errors.New("archive has no file name")
		}
		path = filepath.Join(out, name)
	}
	if err := os.WriteFile(path, archive.Data, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}

// sequentialRunner drives the controller one operation at a time.
type sequentialRunner struct {
	controller  *workflow.Controller
	events      chan workflow.Event
	unsubscribe func()
}

func newSequentialRunner(controller *workflow.Controller) *sequentialRunner {
	events := make(chan workflow.Event, 16)
	unsubscribe := controller.Subscribe(func(event workflow.Event) {
		events <- event
	})
	return &sequentialRunner{controller: controller, events: events, unsubscribe: unsubscribe}
}

// do starts op and blocks until the controller reports its outcome.
func (r *sequentialRunner) do(op workflow.Operation, start func() error) (workflow.Event, error) {
	if err := start(); err != nil {
		return workflow.Event{}, operationError{op: op, err: err}
	}
	for event := range r.events {
		if event.Operation != op {
			continue
		}
		switch event.Kind {
		case workflow.EventCompleted:
			return event, nil
		case workflow.EventFailed:
			return event, operationError{op: op, err: event.Err}
		}
	}
	return workflow.Event{}, operationError{op: op, err: context.Canceled}
}

func (r *sequentialRunner) close() {
	r.unsubscribe()
}
