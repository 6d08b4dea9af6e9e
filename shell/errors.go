package shell

import "errors"

var (
	// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
	ErrConnConfigNil = errors.New("shell: connection config is nil")

	// ErrSessionClosed indicates that the session was closed, either before
	// the call or while it was waiting on the controller.
	ErrSessionClosed = errors.New("shell: session closed")

	// ErrInvalidCommand indicates a command containing a line break. A command
	// is a single line; the carriage return is appended on transmission.
	ErrInvalidCommand = errors.New("shell: command must be a single line")
)
