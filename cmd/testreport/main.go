package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bgricker/testreport/internal/report"
)

// Exit codes reported by the CLI.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case report.IsConfigError(err):
		return exitConfigError
	default:
		return exitFailure
	}
}
