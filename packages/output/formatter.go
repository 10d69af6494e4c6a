package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/runner"
)

// Formatter renders batch runs
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	// Flush writes anything accumulated so far
	Flush(total time.Duration) error
}

// Formats lists the names New accepts
var Formats = []string{"console", "json", "junit"}

// New returns the formatter registered under format
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
	}
}
