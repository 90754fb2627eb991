package cmdutil

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/puterize/glabu/internal/cmdtypes"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/output"
	"github.com/puterize/glabu/internal/release"
	"github.com/puterize/glabu/internal/releasefile"
)

// ParseOutputFormat validates the --output value.
func ParseOutputFormat(raw string) (output.OutputFormat, error) {
	if raw == "" {
		return output.FormatYAML, nil
	}
	format, ok := output.ParseFormat(raw)
	if !ok {
		return "", oerrors.NewExitError(
			fmt.Errorf("%w: invalid output format %q (valid: %s)", oerrors.ErrValidation, raw, strings.Join(output.ValidFormats(), ", ")),
			oerrors.ExitValidationError,
		)
	}
	return format, nil
}

// WriteResult writes v in the requested format.
func WriteResult(w io.Writer, rawFormat string, v any) error {
	format, err := ParseOutputFormat(rawFormat)
	if err != nil {
		return err
	}
	if err := output.Write(w, format, v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// PrintValidationError prints a release file validation error with one
// line per schema violation. Other errors fall back to the key-value format.
func PrintValidationError(msg string, err error) {
	var ve *releasefile.ValidationError
	if errors.As(err, &ve) && len(ve.Violations) > 0 {
		output.Error(fmt.Sprintf("%s: %s", msg, ve.Path))
		lines := make([]string, 0, len(ve.Violations))
		for _, v := range ve.Violations {
			lines = append(lines, fmt.Sprintf("  %s: %s", v.Location, v.Message))
		}
		output.Details(strings.Join(lines, "\n"))
		return
	}
	output.Error(msg, "error", err)
}

// PrintStageError prints the stage that aborted a release.
func PrintStageError(err error) {
	var stageErr release.StageError
	if !errors.As(err, &stageErr) {
		output.Error("release failed", "error", err)
		return
	}
	keyvals := []any{"stage", stageErr.Stage()}
	var upErr *release.UploadError
	if errors.As(err, &upErr) {
		keyvals = append(keyvals, "reason", string(upErr.Reason))
	}
	output.Error(fmt.Sprintf("release failed: %v", err), keyvals...)
}

// ExitErrorFor wraps err with the exit code derived from its category.
// printed reports whether the caller already logged it.
func ExitErrorFor(err error, printed bool) *cmdtypes.ExitError {
	return &cmdtypes.ExitError{Err: err, Code: oerrors.ExitCodeFromError(err), Printed: printed}
}
