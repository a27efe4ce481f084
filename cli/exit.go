package cli

import "fmt"

// Exit codes map the gateway's startup phases: bad configuration before
// anything is constructed, a failed startup probe before the transport
// binds, and faults while serving. Zero means the peer closed cleanly.
const (
	exitConfig  = 2
	exitStartup = 3
	exitRuntime = 4
)

// ExitError tells main which process exit code a failed command wants.
// Commands return it from RunE; main unwraps it with errors.As.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError formats a message into an ExitError with the given code.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
