package capture

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
	SourceOutcome
)

func (s Source) String() string {
	switch s {
	case SourceBody:
		return "body"
	case SourceHeader:
		return "header"
	case SourceStatus:
		return "status"
	case SourceDuration:
		return "duration"
	case SourceOutcome:
		return "outcome"
	default:
		return "unknown"
	}
}

type Capture struct {
	Name   string
	Source Source
	Path   string
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// Parse reads a capture expression
func Parse(name, expr string) (*Capture, error) {
	expr = strings.TrimSpace(expr)
	c := &Capture{Name: name}

	switch {
	case expr == "status":
		c.Source = SourceStatus
	case expr == "duration":
		c.Source = SourceDuration
	case expr == "outcome":
		c.Source = SourceOutcome
	case strings.HasPrefix(expr, "header "):
		c.Source = SourceHeader
		c.Path = strings.TrimSpace(strings.TrimPrefix(expr, "header "))
	case expr == "body":
		c.Source = SourceBody
	case strings.HasPrefix(expr, "body."), strings.HasPrefix(expr, "body["):
		c.Source = SourceBody
		path := bracketIndex.ReplaceAllString(strings.TrimPrefix(expr, "body"), ".$1")
		c.Path = strings.TrimPrefix(path, ".")
	default:
		return nil, fmt.Errorf("capture %s: unknown source %q", name, expr)
	}
	return c, nil
}

// ParseAll parses a name to expression map, failing on the first bad entry
func ParseAll(captures map[string]string) ([]*Capture, error) {
	out := make([]*Capture, 0, len(captures))
	for name, expr := range captures {
		c, err := Parse(name, expr)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type Extractor struct {
	response http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp http.Response) *Extractor {
	e := &Extractor{response: resp}
	if gjson.Valid(resp.Body) {
		e.bodyJSON = gjson.Parse(resp.Body)
	}
	return e
}

func (e *Extractor) Extract(c *Capture) (any, bool) {
	switch c.Source {
	case SourceBody:
		return e.fromBody(c.Path)
	case SourceHeader:
		return e.fromHeader(c.Path)
	case SourceStatus:
		return e.response.ResponseCode, true
	case SourceDuration:
		return e.response.DurationMs(), true
	case SourceOutcome:
		return e.response.Status.String(), true
	default:
		return nil, false
	}
}

func (e *Extractor) fromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.Body, true
		}
		return nil, false
	}
	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) fromHeader(name string) (any, bool) {
	var value string
	switch strings.ToLower(name) {
	case "content-type":
		value = e.response.ContentType
	case "content-length":
		return e.response.ContentLength, true
	case "server":
		value = e.response.Server
	}
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll returns every capture that found a value, keyed by name
func ExtractAll(resp http.Response, captures []*Capture) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}
