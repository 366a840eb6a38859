package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/rivalwatch/internal/cli"
	"github.com/Veraticus/rivalwatch/internal/common"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// explainFailure prints a blocked request in full and returns an error
// suitable for the exit status. Other errors pass through unchanged.
func explainFailure(w io.Writer, err error, asJSON bool) error {
	var blocked *common.GuardrailBlockedError
	if !errors.As(err, &blocked) {
		return err
	}

	if asJSON {
		if encErr := writeJSON(w, map[string]any{
			"error":      err.Error(),
			"violations": blocked.Violations,
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprint(w, cli.RenderBlocked(blocked))
	}
	return common.NewUserError("request blocked by guardrails", err)
}

// formatCommandError renders errors for the terminal.
func formatCommandError(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return cli.FormatError(userErr.UserMessage)
	}
	return cli.FormatError(err.Error())
}
