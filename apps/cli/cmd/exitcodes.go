package cmd

// Exit codes for the pollhttp CLI
const (
	// ExitSuccess indicates every request passed
	ExitSuccess = 0

	// ExitTestFailure indicates a failed request, assertion or threshold
	ExitTestFailure = 1

	// ExitParseError indicates a batch file could not be loaded
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a request never got a response
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
