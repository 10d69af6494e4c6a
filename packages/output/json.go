package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/runner"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

// JSONOutput is the document written by Flush
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	Requests []JSONRequest `json:"requests"`
	Errors   []string      `json:"errors,omitempty"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONSummary counts request outcomes
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONRequest is one batch entry
type JSONRequest struct {
	Name       string          `json:"name"`
	File       string          `json:"file,omitempty"`
	Method     string          `json:"method,omitempty"`
	URL        string          `json:"url,omitempty"`
	Passed     bool            `json:"passed"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason string          `json:"skipReason,omitempty"`
	Error      string          `json:"error,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Captures   map[string]any  `json:"captures,omitempty"`
}

// JSONResponse mirrors http.Response
type JSONResponse struct {
	RequestID     string  `json:"requestId,omitempty"`
	Status        string  `json:"status"`
	Code          int     `json:"code,omitempty"`
	ContentType   string  `json:"contentType,omitempty"`
	ContentLength int     `json:"contentLength,omitempty"`
	Server        string  `json:"server,omitempty"`
	Body          string  `json:"body,omitempty"`
	Duration      float64 `json:"duration"`
}

// NewJSONResponse converts an engine response
func NewJSONResponse(resp http.Response) *JSONResponse {
	return &JSONResponse{
		RequestID:     resp.RequestID,
		Status:        resp.Status.String(),
		Code:          resp.ResponseCode,
		ContentType:   resp.ContentType,
		ContentLength: resp.ContentLength,
		Server:        resp.Server,
		Body:          resp.Body,
		Duration:      float64(resp.DurationMs()),
	}
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter collects batch results and writes them as one document
type JSONFormatter struct {
	writer  io.Writer
	results []JSONRequest
	errors  []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONRequest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.results = append(f.results, newJSONRequest(result.File, r))
	}
}

func newJSONRequest(file string, r *runner.RequestResult) JSONRequest {
	entry := JSONRequest{
		Name:     r.Name,
		File:     file,
		Passed:   r.Passed,
		Skipped:  r.Skipped,
		Captures: r.Captures,
	}
	if r.SkipReason != "filtered out" {
		entry.SkipReason = r.SkipReason
	}
	if r.Error != nil {
		entry.Error = r.Error.Error()
	}
	if r.Request != nil {
		entry.Method, entry.URL = r.Request.Method, r.Request.URL
	}
	// Sent means the request never settled, so there is nothing to show
	if r.Status != 0 && r.Status != http.StatusSent {
		resp := r.Response
		if resp.Status == 0 {
			resp.Status = r.Status
		}
		entry.Response = NewJSONResponse(resp)
	}
	for _, a := range r.Assertions {
		entry.Assertions = append(entry.Assertions, JSONAssertion{
			Subject:  a.Subject,
			Operator: a.Operator,
			Expected: a.Expected,
			Actual:   a.Actual,
			Passed:   a.Passed,
			Message:  a.Message,
		})
	}
	return entry
}

func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

// Flush writes the accumulated document and starts over
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	doc := JSONOutput{
		Summary:  JSONSummary{Total: len(f.results)},
		Requests: f.results,
		Errors:   f.errors,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}
	for _, r := range f.results {
		switch {
		case r.Skipped:
			doc.Summary.Skipped++
		case r.Passed:
			doc.Summary.Passed++
		default:
			doc.Summary.Failed++
		}
	}
	f.results, f.errors = make([]JSONRequest, 0), nil

	return WriteJSON(f.writer, doc)
}

// WriteJSON writes v indented
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
