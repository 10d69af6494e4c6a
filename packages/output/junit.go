package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/runner"
)

// junitCounts is shared by <testsuites> and <testsuite>
type junitCounts struct {
	Tests    int     `xml:"tests,attr"`
	Failures int     `xml:"failures,attr"`
	Errors   int     `xml:"errors,attr"`
	Skipped  int     `xml:"skipped,attr"`
	Time     float64 `xml:"time,attr"`
}

func (c *junitCounts) add(o junitCounts) {
	c.Tests += o.Tests
	c.Failures += o.Failures
	c.Errors += o.Errors
	c.Skipped += o.Skipped
}

type junitReport struct {
	XMLName xml.Name `xml:"testsuites"`
	Name    string   `xml:"name,attr,omitempty"`
	junitCounts
	Timestamp string       `xml:"timestamp,attr,omitempty"`
	Suites    []junitSuite `xml:"testsuite"`
}

// junitSuite is one batch file
type junitSuite struct {
	Name string `xml:"name,attr"`
	junitCounts
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitCase     `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// junitCase is one request
type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	Skipped   *junitSkip    `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// junitProblem is the body of both <failure> and <error>
type junitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Detail  string `xml:",chardata"`
}

type junitSkip struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter collects batch results and writes them as one JUnit XML
// document on Flush
type JUnitFormatter struct {
	writer io.Writer
	now    func() time.Time
	suites []junitSuite
}

type JUnitOption func(*JUnitFormatter)

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	className := strings.TrimSuffix(filepath.Base(result.File), filepath.Ext(result.File))

	suite := junitSuite{
		Name:      result.File,
		Timestamp: f.now().Format(time.RFC3339),
		Properties: []junitProperty{
			{Name: "passed", Value: fmt.Sprint(result.Passed)},
			{Name: "failed", Value: fmt.Sprint(result.Failed)},
		},
		Cases: make([]junitCase, 0, len(result.Results)),
	}
	suite.Tests = len(result.Results)
	suite.Time = result.Duration.Seconds()

	for _, r := range result.Results {
		tc := junitCase{
			Name:      r.Name,
			ClassName: className,
			Time:      r.Duration().Seconds(),
		}
		if r.Request != nil {
			tc.SystemOut = fmt.Sprintf("%s %s -> %s %d", r.Request.Method, r.Request.URL, r.Status, r.Response.ResponseCode)
		}

		if r.Skipped {
			suite.Skipped++
			tc.Skipped = &junitSkip{Message: r.SkipReason}
		} else if r.Error != nil {
			suite.Errors++
			tc.Error = &junitProblem{Message: r.Error.Error(), Type: r.Status.String()}
		} else if !r.Passed {
			suite.Failures++
			tc.Failure = assertionFailure(r)
		}
		suite.Cases = append(suite.Cases, tc)
	}

	f.suites = append(f.suites, suite)
}

func assertionFailure(r *runner.RequestResult) *junitProblem {
	var detail strings.Builder
	failed := 0
	for _, a := range r.Assertions {
		if a.Passed {
			continue
		}
		failed++
		fmt.Fprintf(&detail, "%s %s: expected %v, got %v. %s\n",
			a.Subject, a.Operator, a.Expected, a.Actual, a.Message)
	}
	return &junitProblem{
		Message: fmt.Sprintf("%d of %d assertions failed", failed, len(r.Assertions)),
		Type:    "AssertionError",
		Detail:  detail.String(),
	}
}

// FormatError records a file that could not run as an errored suite
func (f *JUnitFormatter) FormatError(err error) {
	suite := junitSuite{
		Name: "error",
		Cases: []junitCase{{
			Name:      "load",
			ClassName: "pollhttp",
			Error:     &junitProblem{Message: err.Error(), Type: "Error"},
		}},
	}
	suite.Tests, suite.Errors = 1, 1
	f.suites = append(f.suites, suite)
}

// Flush writes every collected suite and starts over
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	report := junitReport{
		Name:      "pollhttp",
		Timestamp: f.now().Format(time.RFC3339),
		Suites:    f.suites,
	}
	for _, s := range f.suites {
		report.add(s.junitCounts)
	}
	report.Time = totalDuration.Seconds()
	f.suites = nil

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode junit report: %w", err)
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
