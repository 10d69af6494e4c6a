package batch

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/pollhttp/packages/assertions"
	"github.com/abdul-hamid-achik/pollhttp/packages/capture"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

type File struct {
	Name      string         `yaml:"name"`
	Env       string         `yaml:"env,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty"`
	WaitFor   *WaitFor       `yaml:"waitFor,omitempty"`
	Requests  []*Request     `yaml:"requests"`

	Path string `yaml:"-"`
}

// Dir is the directory relative paths in the file are resolved against
func (f *File) Dir() string {
	if f.Path == "" {
		return "."
	}
	return filepath.Dir(f.Path)
}

// WaitFor delays a run until URL answers with Status
type WaitFor struct {
	URL      string        `yaml:"url"`
	Status   int           `yaml:"status,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

type Request struct {
	Name     string            `yaml:"name"`
	Method   string            `yaml:"method,omitempty"`
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Query    map[string]string `yaml:"query,omitempty"`
	Body     string            `yaml:"body,omitempty"`
	JSON     any               `yaml:"json,omitempty"`
	Form     map[string]string `yaml:"form,omitempty"`
	Auth     *Auth             `yaml:"auth,omitempty"`
	Weight   int               `yaml:"weight,omitempty"`
	Wait     bool              `yaml:"wait,omitempty"`
	Skip     bool              `yaml:"skip,omitempty"`
	Captures map[string]string `yaml:"capture,omitempty"`
	Expect   *Expect           `yaml:"expect,omitempty"`
}

type Auth struct {
	Bearer string     `yaml:"bearer,omitempty"`
	Basic  *BasicAuth `yaml:"basic,omitempty"`
}

type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Expect struct {
	Status int            `yaml:"status,omitempty"`
	JSON   map[string]any `yaml:"json,omitempty"`
	Schema any            `yaml:"schema,omitempty"`
	Assert []string       `yaml:"assert,omitempty"`
}

// Load reads and validates a batch file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse decodes and validates a batch document. Unknown keys are errors.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate fills in default methods and names and checks every request
func (f *File) Validate() error {
	if len(f.Requests) == 0 {
		return fmt.Errorf("batch file has no requests")
	}

	if f.WaitFor != nil && f.WaitFor.URL == "" {
		return fmt.Errorf("waitFor needs a url")
	}

	seen := make(map[string]bool, len(f.Requests))
	for i, r := range f.Requests {
		if r == nil {
			return fmt.Errorf("request %d is empty", i+1)
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("request-%d", i+1)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate request name %q", r.Name)
		}
		seen[r.Name] = true

		if err := r.validate(); err != nil {
			return fmt.Errorf("request %s: %w", r.Name, err)
		}
	}
	return nil
}

func (r *Request) validate() error {
	if r.Method == "" {
		r.Method = "GET"
	}
	r.Method = strings.ToUpper(r.Method)
	if !validMethods[r.Method] {
		return fmt.Errorf("unsupported method %s", r.Method)
	}
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if r.Weight < 0 {
		return fmt.Errorf("weight cannot be negative")
	}

	bodies := 0
	if r.Body != "" {
		bodies++
	}
	if r.JSON != nil {
		bodies++
	}
	if len(r.Form) > 0 {
		bodies++
	}
	if bodies > 1 {
		return fmt.Errorf("only one of body, json and form may be set")
	}

	if r.Auth != nil && r.Auth.Bearer != "" && r.Auth.Basic != nil {
		return fmt.Errorf("auth takes either bearer or basic")
	}

	if _, err := capture.ParseAll(r.Captures); err != nil {
		return err
	}
	if _, err := r.Assertions(); err != nil {
		return err
	}
	return nil
}

// Assertions expands the expect block. Status comes first, then the json
// paths in sorted order, then the schema and finally the free-form lines.
func (r *Request) Assertions() ([]assertions.Assertion, error) {
	if r.Expect == nil {
		return nil, nil
	}
	var out []assertions.Assertion

	if r.Expect.Status != 0 {
		out = append(out, assertions.Assertion{Subject: "status", Operator: assertions.OpEquals, Expected: r.Expect.Status})
	}

	paths := make([]string, 0, len(r.Expect.JSON))
	for p := range r.Expect.JSON {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		out = append(out, assertions.Assertion{Subject: "jsonpath " + p, Operator: assertions.OpEquals, Expected: r.Expect.JSON[p]})
	}

	if r.Expect.Schema != nil {
		out = append(out, assertions.Assertion{Subject: "body", Operator: assertions.OpSchema, Expected: r.Expect.Schema})
	}

	for _, line := range r.Expect.Assert {
		a, err := assertions.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("assert %q: %w", line, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// CaptureSpecs parses the capture block
func (r *Request) CaptureSpecs() []*capture.Capture {
	caps, _ := capture.ParseAll(r.Captures)
	return caps
}

// Build resolves templates with resolve and produces an engine request.
// Headers are written in sorted order after the auth and body headers.
func (r *Request) Build(resolve func(string) string) (*http.Request, error) {
	if resolve == nil {
		resolve = func(s string) string { return s }
	}

	req := http.NewRequest(r.Method, appendQuery(resolve(r.URL), r.Query, resolve))

	if r.Auth != nil {
		switch {
		case r.Auth.Bearer != "":
			req.SetHeader("Authorization", "Bearer "+resolve(r.Auth.Bearer))
		case r.Auth.Basic != nil:
			creds := resolve(r.Auth.Basic.Username) + ":" + resolve(r.Auth.Basic.Password)
			req.SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
		}
	}

	switch {
	case r.JSON != nil:
		data, err := json.Marshal(resolveValue(r.JSON, resolve))
		if err != nil {
			return nil, fmt.Errorf("request %s: encoding json body: %w", r.Name, err)
		}
		req.SetTypedBody(http.ContentTypeJSON, string(data))
	case len(r.Form) > 0:
		values := url.Values{}
		for k, v := range r.Form {
			values.Set(k, resolve(v))
		}
		req.SetFormBody(values)
	case r.Body != "":
		body := resolve(r.Body)
		req.SetTypedBody(guessContentType(body), body)
	}

	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.SetHeader(k, resolve(r.Headers[k]))
	}

	return req, nil
}

func appendQuery(rawURL string, query map[string]string, resolve func(string) string) string {
	if len(query) == 0 {
		return rawURL
	}
	values := url.Values{}
	for k, v := range query {
		values.Set(k, resolve(v))
	}

	if _, rest, ok := strings.Cut(rawURL, "://"); ok && !strings.Contains(rest, "/") {
		rawURL += "/"
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + values.Encode()
}

// resolveValue walks a decoded YAML value and resolves every string in it
func resolveValue(v any, resolve func(string) string) any {
	switch val := v.(type) {
	case string:
		return resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item, resolve)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, resolve)
		}
		return out
	default:
		return v
	}
}

func guessContentType(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return http.ContentTypeJSON
	}
	return "text/plain"
}

// Targets returns the requests that are not skipped
func (f *File) Targets() []*Request {
	out := make([]*Request, 0, len(f.Requests))
	for _, r := range f.Requests {
		if !r.Skip {
			out = append(out, r)
		}
	}
	return out
}
