// ABOUTME: Helpers for consistent CLI error messages with next steps.
// ABOUTME: Provides structured error metadata for human-friendly output.

package main

import (
	"errors"
	"strings"
)

type cliError struct {
	msg  string
	next string
	err  error
}

func (e *cliError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.msg) != "" {
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return "unknown error"
}

func (e *cliError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func newCLIError(msg, next string) error {
	return &cliError{msg: strings.TrimSpace(msg), next: strings.TrimSpace(next)}
}

// formatCLIError renders an error for stderr, appending the next-step
// hint when one is attached.
func formatCLIError(err error) string {
	if err == nil {
		return ""
	}
	var cerr *cliError
	if errors.As(err, &cerr) && cerr.next != "" {
		return cerr.Error() + "\nNext: " + cerr.next
	}
	return err.Error()
}
