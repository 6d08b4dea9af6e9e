package upload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeviceError indicates that the controller answered a command with an
	// error message.
	ErrDeviceError = errors.New("upload: device reported an error")

	// ErrEmptyProgram indicates that the program has no line to upload.
	ErrEmptyProgram = errors.New("upload: program has no lines")

	// ErrInvalidProgramName indicates a program name the controller cannot store.
	ErrInvalidProgramName = errors.New("upload: invalid program name")
)

// StepError describes the upload step that failed.
//
// It wraps ErrDeviceError when the controller rejected the command, or the
// transport error returned by the session otherwise.
type StepError struct {
	Step     Step
	Line     int // zero-based source line for StepInsert, -1 otherwise
	Command  string
	Response string
	Err      error
}

func (e *StepError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "upload: %s", e.Step)
	if e.Line >= 0 {
		fmt.Fprintf(&sb, " line %d", e.Line)
	}
	fmt.Fprintf(&sb, " %q", e.Command)
	if e.Response != "" {
		fmt.Fprintf(&sb, ": %s", e.Response)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrDeviceError) {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *StepError) Unwrap() error { return e.Err }

// IsDeviceError reports whether a controller response carries an error
// message. The controller prefixes every error with '%'.
func IsDeviceError(response string) bool {
	return strings.Contains(response, "%")
}
