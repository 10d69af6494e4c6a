package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/runner"
	"github.com/abdul-hamid-achik/pollhttp/packages/history"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

// formatValue formats a value for display, summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
	dim    *color.Color
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
		dim:    color.New(color.Faint),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		for _, c := range []*color.Color{f.green, f.red, f.yellow, f.cyan, f.bold, f.dim} {
			c.DisableColor()
		}
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	name := result.File
	if name == "" {
		name = "batch"
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", f.bold.Sprint("Running: "+name))

	for _, r := range result.Results {
		if r.Skipped {
			fmt.Fprintf(f.writer, "  %s %s", f.yellow.Sprint("-"), r.Name)
			if r.SkipReason != "" && r.SkipReason != "filtered out" {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintln(f.writer)
			continue
		}

		if r.Error != nil {
			fmt.Fprintf(f.writer, "  %s %s %s\n", f.red.Sprint("x"), r.Name, f.red.Sprintf("(%v)", r.Error))
			continue
		}

		symbol := f.green.Sprint("✓")
		if !r.Passed {
			symbol = f.red.Sprint("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, f.cyan.Sprintf("(%dms)", r.Duration().Milliseconds()))

		if f.verbose {
			fmt.Fprintf(f.writer, "    %s %s -> %d\n", r.Response.Method, r.Response.URL, r.Response.ResponseCode)
		}

		if !r.Passed {
			for _, a := range r.Assertions {
				if a.Passed {
					continue
				}
				fmt.Fprintf(f.writer, "    %s %s %s\n", f.red.Sprint("→"), a.Subject, a.Operator)
				fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
				fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
				if a.Message != "" {
					fmt.Fprintf(f.writer, "      %s\n", a.Message)
				}
			}
		}

		if f.verbose && len(r.Captures) > 0 {
			fmt.Fprintf(f.writer, "    Captures:\n")
			names := make([]string, 0, len(r.Captures))
			for n := range r.Captures {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(f.writer, "      %s = %s\n", n, formatValue(r.Captures[n], 100))
			}
		}
	}

	fmt.Fprintf(f.writer, "\nRequests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", f.green.Sprintf("%d passed", result.Passed))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", f.red.Sprintf("%d failed", result.Failed))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", f.yellow.Sprintf("%d skipped", result.Skipped))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(result.Results))
	fmt.Fprintf(f.writer, "Time:     %dms\n\n", result.Duration.Milliseconds())
}

// FormatResponse prints the outcome of a single send
func (f *ConsoleFormatter) FormatResponse(resp http.Response) {
	if resp.Status != http.StatusCompleted {
		fmt.Fprintf(f.writer, "%s %s %s\n", f.red.Sprint(resp.Status.String()), resp.Method, resp.URL)
		if resp.Duration > 0 {
			fmt.Fprintf(f.writer, "%s\n", f.dim.Sprintf("after %s", resp.Duration.Round(time.Millisecond)))
		}
		return
	}

	code := f.green
	switch {
	case resp.IsServerError(), resp.IsClientError():
		code = f.red
	case resp.IsRedirect():
		code = f.yellow
	}
	fmt.Fprintf(f.writer, "%s %s %s %s\n",
		code.Sprintf("%d", resp.ResponseCode),
		resp.Method,
		resp.URL,
		f.cyan.Sprintf("(%dms)", resp.DurationMs()),
	)

	if f.verbose {
		if resp.ContentType != "" {
			fmt.Fprintf(f.writer, "%s %s\n", f.dim.Sprint("Content-Type:"), resp.ContentType)
		}
		fmt.Fprintf(f.writer, "%s %d\n", f.dim.Sprint("Content-Length:"), resp.ContentLength)
		if resp.Server != "" {
			fmt.Fprintf(f.writer, "%s %s\n", f.dim.Sprint("Server:"), resp.Server)
		}
		fmt.Fprintf(f.writer, "%s %s\n", f.dim.Sprint("Request-Id:"), resp.RequestID)
	}

	if resp.Body != "" {
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, strings.TrimRight(resp.Body, "\r\n"))
	}
}

// FormatHistory prints stored responses, newest first
func (f *ConsoleFormatter) FormatHistory(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(f.writer, f.dim.Sprint("no history"))
		return
	}
	for _, e := range entries {
		status := f.green.Sprint(e.Status)
		if e.Status != http.StatusCompleted.String() {
			status = f.red.Sprint(e.Status)
		}
		code := "-"
		if e.Code != 0 {
			code = fmt.Sprintf("%d", e.Code)
		}
		fmt.Fprintf(f.writer, "%s  %-6s %-3s %s %s %s\n",
			f.dim.Sprint(e.CreatedAt.Format(time.DateTime)),
			e.Method,
			code,
			e.URL,
			status,
			f.cyan.Sprintf("(%dms)", e.Duration.Milliseconds()),
		)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", f.red.Sprint("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s %s\n", f.bold.Sprint("pollhttp"), version)
}

// Flush is a no-op; console output is written as it arrives
func (f *ConsoleFormatter) Flush(time.Duration) error {
	return nil
}
