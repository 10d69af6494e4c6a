package http

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is delivered once per request. Only Status is meaningful for
// synchronous failures; the HTTP fields are filled for Completed responses.
type Response struct {
	Status        Status
	ResponseCode  int
	ContentType   string
	ContentLength int
	Server        string
	Body          string

	RequestID string
	Method    string
	URL       string
	Duration  time.Duration
}

// ParseResponse extracts the status code, the Content-Type, Content-Length
// and Server headers and the body from a raw response. Status is left zero
// for the caller to stamp.
//
// Header names are matched as case-sensitive prefixes. When the blank line
// ending the headers is reached before any Content-Length, everything after
// it is taken as the body length. The body is always the last ContentLength
// bytes of raw.
func ParseResponse(raw []byte) Response {
	var r Response

	start := 0
scan:
	for i, c := range raw {
		if c != '\n' {
			continue
		}
		line := bytes.TrimSpace(raw[start:i])
		start = i + 1

		switch {
		case bytes.HasPrefix(line, []byte("HTTP/")):
			r.ResponseCode = parseResponseCode(line)
		case bytes.HasPrefix(line, []byte("Content-Type")):
			r.ContentType = valueAfterColon(line)
		case bytes.HasPrefix(line, []byte("Content-Length")):
			r.ContentLength = leadingInt(valueAfterColon(line))
		case bytes.HasPrefix(line, []byte("Server")):
			r.Server = valueAfterColon(line)
		case len(line) == 0 && r.ContentLength == 0:
			r.ContentLength = len(raw) - i - 1
			break scan
		}
	}

	if r.ContentLength > 0 && r.ContentLength <= len(raw) {
		r.Body = string(raw[len(raw)-r.ContentLength:])
	}

	return r
}

// parseResponseCode returns the token between the first and second space
func parseResponseCode(line []byte) int {
	_, rest, found := bytes.Cut(line, []byte(" "))
	if !found {
		return 0
	}
	code, _, _ := bytes.Cut(rest, []byte(" "))
	return leadingInt(string(code))
}

func valueAfterColon(line []byte) string {
	_, value, found := bytes.Cut(line, []byte(":"))
	if !found {
		return ""
	}
	return string(bytes.TrimSpace(value))
}

// leadingInt parses the decimal digits at the start of s, ignoring leading
// whitespace and an optional sign. It returns 0 when there are none.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		return -n
	}
	return n
}

// JSON looks up a gjson path in the body
func (r Response) JSON(path string) gjson.Result {
	return gjson.Get(r.Body, path)
}

// DecodeJSON unmarshals the body into v
func (r Response) DecodeJSON(v any) error {
	return json.Unmarshal([]byte(r.Body), v)
}

func (r Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

func (r Response) IsSuccess() bool {
	return r.ResponseCode >= 200 && r.ResponseCode < 300
}

func (r Response) IsRedirect() bool {
	return r.ResponseCode >= 300 && r.ResponseCode < 400
}

func (r Response) IsClientError() bool {
	return r.ResponseCode >= 400 && r.ResponseCode < 500
}

func (r Response) IsServerError() bool {
	return r.ResponseCode >= 500
}

func (r Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
