package http

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Request describes a request for Engine.Do. Headers are written verbatim
// as "Key: value" lines in the order they were set.
type Request struct {
	Method  string
	URL     string
	Headers []string
	Body    string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method: method,
		URL:    requestURL,
	}
}

// SetHeader adds a header, replacing an earlier one with the same name
func (r *Request) SetHeader(key, value string) *Request {
	line := key + ": " + value
	for i, h := range r.Headers {
		name, _, _ := strings.Cut(h, ":")
		if strings.EqualFold(strings.TrimSpace(name), key) {
			r.Headers[i] = line
			return r
		}
	}
	r.Headers = append(r.Headers, line)
	return r
}

// Header returns the value of the named header, or ""
func (r *Request) Header(key string) string {
	for _, h := range r.Headers {
		name, value, found := strings.Cut(h, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// SetTypedBody sets the body along with its Content-Type and Content-Length
func (r *Request) SetTypedBody(contentType, body string) *Request {
	r.SetHeader("Content-Type", contentType)
	r.SetHeader("Content-Length", strconv.Itoa(len(body)))
	return r.SetBody(body)
}

// SetJSONBody marshals v as the request body
func (r *Request) SetJSONBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.SetTypedBody(ContentTypeJSON, string(data))
	return nil
}

// SetFormBody url-encodes values as the request body
func (r *Request) SetFormBody(values url.Values) *Request {
	return r.SetTypedBody(ContentTypeForm, values.Encode())
}

// typedBodyHeaders returns the header lines the convenience senders attach
// to a body
func typedBodyHeaders(contentType, body string) []string {
	return []string{
		"Content-Type: " + contentType,
		"Content-Length: " + strconv.Itoa(len(body)),
	}
}
