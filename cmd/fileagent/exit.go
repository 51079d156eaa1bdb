package main

import (
	"fmt"

	"github.com/amonks/fileagent/workflow"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}

func (e exitError) Unwrap() error {
	return e.err
}

// operationError presents a controller failure the way the TUI does.
type operationError struct {
	op  workflow.Operation
	err error
}

func (e operationError) Error() string {
	return workflow.Describe(e.op, e.err)
}

func (e operationError) Unwrap() error {
	return e.err
}
