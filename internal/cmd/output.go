package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/driftguard/internal/display"
	"github.com/harrison/driftguard/internal/models"
)

// ExitError carries the process exit code for a command that ran but did
// not succeed. main exits with Code without printing anything further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// errNotOK marks a result whose ok flag is false.
var errNotOK = &ExitError{Code: 1}

// IsExitError reports whether err only carries an exit code.
func IsExitError(err error) (int, bool) {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code, true
	}
	return 0, false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPrinter(cmd *cobra.Command) *display.Printer {
	out := cmd.OutOrStdout()
	return display.NewPrinter(out, display.ColorEnabled(out))
}

// reportError renders an operation error as JSON or a warning and returns
// the exit error.
func reportError(cmd *cobra.Command, asJSON bool, err error) error {
	if asJSON {
		if werr := writeJSON(cmd.OutOrStdout(), map[string]models.ToolError{"error": models.ToToolError(err)}); werr != nil {
			return werr
		}
	} else {
		display.NewPrinter(cmd.ErrOrStderr(), display.ColorEnabled(cmd.ErrOrStderr())).Error(err)
	}
	return errNotOK
}

func finish(ok bool) error {
	if ok {
		return nil
	}
	return errNotOK
}
