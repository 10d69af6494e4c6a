package stress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/pollhttp/packages/stats"
)

// Reporter handles output for bench runs
type Reporter struct {
	writer     io.Writer
	noColor    bool
	noProgress bool
	verbose    bool

	c palette
}

// palette holds the reporter's colors; all of them are plain when color is off
type palette struct {
	ok, fail, warn, info, strong *color.Color
}

func newPalette(noColor bool) palette {
	mk := func(attr color.Attribute) *color.Color {
		c := color.New(attr)
		if noColor {
			c.DisableColor()
		}
		return c
	}
	return palette{
		ok:     mk(color.FgGreen),
		fail:   mk(color.FgRed),
		warn:   mk(color.FgYellow),
		info:   mk(color.FgCyan),
		strong: mk(color.Bold),
	}
}

type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

func WithNoProgress(noProgress bool) ReporterOption {
	return func(r *Reporter) {
		r.noProgress = noProgress
	}
}

// WithVerbose adds the per-target breakdown to the summary
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = verbose
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{writer: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	r.c = newPalette(r.noColor)
	return r
}

// Header prints the run header
func (r *Reporter) Header(config *Config, targets int) {
	fmt.Fprintln(r.writer)
	r.c.strong.Fprintln(r.writer, "pollhttp bench")
	fmt.Fprintln(r.writer)

	details := []string{
		fmt.Sprintf("Target: %s req/s", formatRate(config.Rate)),
		fmt.Sprintf("Duration: %s", config.Duration),
		fmt.Sprintf("Requests: %d", targets),
	}
	r.c.info.Fprintf(r.writer, "%s\n", strings.Join(details, " | "))
	fmt.Fprintln(r.writer)
}

// Progress prints real-time progress
func (r *Reporter) Progress(s *stats.Summary, duration time.Duration) {
	if r.noProgress {
		return
	}

	fmt.Fprint(r.writer, "\r\033[K")

	progress := float64(s.Duration) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	barWidth := 30
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	fmt.Fprintf(r.writer, "Progress %s %s / %s\n", bar, formatDuration(s.Duration), formatDuration(duration))

	fmt.Fprintf(r.writer, "Requests: ")
	r.c.strong.Fprintf(r.writer, "%s", formatNumber(s.Total))
	fmt.Fprintf(r.writer, " total | ")
	r.c.ok.Fprintf(r.writer, "%s", formatNumber(s.Success))
	fmt.Fprintf(r.writer, " success | ")
	if s.Errors > 0 {
		r.c.fail.Fprintf(r.writer, "%s", formatNumber(s.Errors))
	} else {
		fmt.Fprintf(r.writer, "%s", formatNumber(s.Errors))
	}
	fmt.Fprintf(r.writer, " errors (%.2f%%)\n", s.ErrorRate*100)

	fmt.Fprintf(r.writer, "Rate: ")
	r.c.info.Fprintf(r.writer, "%.1f", s.RPS)
	fmt.Fprintf(r.writer, " req/s | Rejected: %s\n", formatNumber(s.Rejected))

	fmt.Fprintf(r.writer, "Latency: p50: %s | p95: %s | p99: %s | max: %s\n",
		formatLatency(s.P50),
		formatLatency(s.P95),
		formatLatency(s.P99),
		formatLatency(s.Max))

	fmt.Fprint(r.writer, "\033[4A")
}

// ClearProgress clears the progress display
func (r *Reporter) ClearProgress() {
	if r.noProgress {
		return
	}
	fmt.Fprint(r.writer, "\033[4B\r\033[K\033[A\r\033[K\033[A\r\033[K\033[A\r\033[K")
}

// Summary prints the final summary
func (r *Reporter) Summary(result *Result) {
	s := result.Summary

	fmt.Fprintln(r.writer)
	r.c.strong.Fprintln(r.writer, "BENCH SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(s.Duration))
	fmt.Fprintf(r.writer, "Total:      ")
	r.c.strong.Fprintf(r.writer, "%s", formatNumber(s.Total))
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", s.RPS)

	fmt.Fprintf(r.writer, "Success:    ")
	r.c.ok.Fprintf(r.writer, "%s", formatNumber(s.Success))
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.SuccessRate*100)

	fmt.Fprintf(r.writer, "Failed:     ")
	if s.Errors > 0 {
		r.c.fail.Fprintf(r.writer, "%s", formatNumber(s.Errors))
	} else {
		fmt.Fprintf(r.writer, "%s", formatNumber(s.Errors))
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.ErrorRate*100)

	if s.Timeouts > 0 {
		fmt.Fprintf(r.writer, "Timeouts:   ")
		r.c.warn.Fprintf(r.writer, "%s\n", formatNumber(s.Timeouts))
	}
	if s.Rejected > 0 {
		fmt.Fprintf(r.writer, "Rejected:   ")
		r.c.warn.Fprintf(r.writer, "%s", formatNumber(s.Rejected))
		fmt.Fprintln(r.writer, " (pool exhausted)")
	}
	if result.Abandoned > 0 {
		fmt.Fprintf(r.writer, "Abandoned:  ")
		r.c.warn.Fprintf(r.writer, "%d\n", result.Abandoned)
	}

	if len(s.Codes) > 0 {
		codes := make([]int, 0, len(s.Codes))
		for code := range s.Codes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		parts := make([]string, len(codes))
		for i, code := range codes {
			parts[i] = fmt.Sprintf("%d: %s", code, formatNumber(s.Codes[code]))
		}
		fmt.Fprintf(r.writer, "Codes:      %s\n", strings.Join(parts, " | "))
	}

	fmt.Fprintln(r.writer)
	r.c.strong.Fprintln(r.writer, "LATENCY (ms)")
	fmt.Fprintf(r.writer, "  p50: %-6s | p95: %-6s | p99: %-6s | max: %s\n",
		formatLatencyMs(s.P50),
		formatLatencyMs(s.P95),
		formatLatencyMs(s.P99),
		formatLatencyMs(s.Max))
	fmt.Fprintf(r.writer, "  min: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(s.Min),
		formatLatencyMs(s.Mean),
		formatLatencyMs(s.StdDev))

	if r.verbose && len(s.Targets) > 0 {
		fmt.Fprintln(r.writer)
		r.c.strong.Fprintln(r.writer, "PER-TARGET BREAKDOWN")
		names := make([]string, 0, len(s.Targets))
		for name := range s.Targets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ts := s.Targets[name]
			fmt.Fprintf(r.writer, "  %s:\n", name)
			fmt.Fprintf(r.writer, "    Total: %s | Success: %s | Errors: %s\n",
				formatNumber(ts.Total), formatNumber(ts.Success), formatNumber(ts.Errors))
			fmt.Fprintf(r.writer, "    p50: %s | p95: %s | p99: %s\n",
				formatLatency(ts.P50), formatLatency(ts.P95), formatLatency(ts.P99))
		}
	}

	if len(result.Thresholds) > 0 {
		fmt.Fprintln(r.writer)
		r.c.strong.Fprintln(r.writer, "THRESHOLDS")
		for _, tr := range result.Thresholds {
			if tr.Passed {
				r.c.ok.Fprintf(r.writer, "  ✓ ")
			} else {
				r.c.fail.Fprintf(r.writer, "  ✗ ")
			}
			fmt.Fprintf(r.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}

		fmt.Fprintln(r.writer)
		if result.Passed {
			r.c.ok.Fprintln(r.writer, "All thresholds passed!")
		} else {
			r.c.fail.Fprintln(r.writer, "Some thresholds failed!")
		}
	}

	fmt.Fprintln(r.writer)
}

// JSONSummary outputs the result as JSON
func (r *Reporter) JSONSummary(result *Result) error {
	s := result.Summary
	output := map[string]any{
		"duration": s.Duration.String(),
		"requests": map[string]any{
			"total":     s.Total,
			"success":   s.Success,
			"failed":    s.Errors,
			"timeouts":  s.Timeouts,
			"rejected":  s.Rejected,
			"abandoned": result.Abandoned,
		},
		"rates": map[string]any{
			"rps":         s.RPS,
			"successRate": s.SuccessRate,
			"errorRate":   s.ErrorRate,
		},
		"latency": map[string]any{
			"p50":    s.P50.Milliseconds(),
			"p95":    s.P95.Milliseconds(),
			"p99":    s.P99.Milliseconds(),
			"min":    s.Min.Milliseconds(),
			"max":    s.Max.Milliseconds(),
			"mean":   s.Mean.Milliseconds(),
			"stddev": s.StdDev.Milliseconds(),
		},
		"statuses": s.Statuses,
		"passed":   result.Passed,
	}

	if len(result.Thresholds) > 0 {
		thresholds := make([]map[string]any, len(result.Thresholds))
		for i, tr := range result.Thresholds {
			thresholds[i] = map[string]any{
				"name":     tr.Name,
				"passed":   tr.Passed,
				"expected": tr.Expected,
				"actual":   tr.Actual,
			}
		}
		output["thresholds"] = thresholds
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Error prints an error message
func (r *Reporter) Error(format string, args ...any) {
	r.c.fail.Fprintf(r.writer, "Error: "+format+"\n", args...)
}

// Info prints an info message
func (r *Reporter) Info(format string, args ...any) {
	fmt.Fprintf(r.writer, format+"\n", args...)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// formatDuration prints whole minutes as "2m 05s" and shorter spans with
// one decimal
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m, sec := int(d/time.Minute), int(d%time.Minute/time.Second)
	if sec == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm %02ds", m, sec)
}

func formatLatency(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dμs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// formatLatencyMs keeps about two significant digits below 10ms
func formatLatencyMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	prec := 0
	switch {
	case ms < 1:
		prec = 2
	case ms < 10:
		prec = 1
	}
	return strconv.FormatFloat(ms, 'f', prec, 64)
}

// formatNumber groups thousands with commas
func formatNumber(n int64) string {
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, ch := range digits {
		if i > 0 && ch != '-' && (len(digits)-i)%3 == 0 && digits[i-1] != '-' {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return b.String()
}
