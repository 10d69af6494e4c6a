package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected ParsedURL
	}{
		{
			name:     "explicit port and path",
			url:      "http://example.com:8080/a/b",
			expected: ParsedURL{Host: "example.com", Port: 8080, Path: "/a/b"},
		},
		{
			name:     "https without path",
			url:      "https://example.com",
			expected: ParsedURL{Host: "example.com", Port: 443, Path: "", TLS: true},
		},
		{
			name:     "https scheme is case insensitive",
			url:      "HTTPS://Example.com/x",
			expected: ParsedURL{Host: "Example.com", Port: 443, Path: "/x", TLS: true},
		},
		{
			name:     "http default port",
			url:      "http://10.0.0.5/api/v1?x=1",
			expected: ParsedURL{Host: "10.0.0.5", Port: 80, Path: "/api/v1?x=1"},
		},
		{
			name:     "root path",
			url:      "http://example.com/",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/"},
		},
		{
			name:     "port without path",
			url:      "http://example.com:9000",
			expected: ParsedURL{Host: "example.com", Port: 9000},
		},
		{
			name:     "explicit port on https",
			url:      "https://example.com:8443/secure",
			expected: ParsedURL{Host: "example.com", Port: 8443, Path: "/secure", TLS: true},
		},
		{
			name:     "other scheme uses port 80",
			url:      "ws://example.com/socket",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/socket"},
		},
		{
			name:     "no separator",
			url:      "not-a-url",
			expected: ParsedURL{Port: 80, Failed: true},
		},
		{
			name:     "nothing after separator",
			url:      "http://",
			expected: ParsedURL{Port: 80, Failed: true},
		},
		{
			name:     "empty",
			url:      "",
			expected: ParsedURL{Port: 80, Failed: true},
		},
		{
			name:     "non numeric port",
			url:      "http://example.com:abc/x",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/x", Failed: true},
		},
		{
			name:     "port out of range",
			url:      "http://example.com:70000/",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/", Failed: true},
		},
		{
			name:     "port zero",
			url:      "http://example.com:0/x",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/x", Failed: true},
		},
		{
			name:     "empty port",
			url:      "http://example.com:/x",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/x", Failed: true},
		},
		{
			name:     "empty port without path",
			url:      "https://example.com:",
			expected: ParsedURL{Host: "example.com", Port: 443, TLS: true, Failed: true},
		},
		{
			name:     "signed port",
			url:      "http://example.com:+80/",
			expected: ParsedURL{Host: "example.com", Port: 80, Path: "/", Failed: true},
		},
		{
			name:     "highest port",
			url:      "http://example.com:65535",
			expected: ParsedURL{Host: "example.com", Port: 65535},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseURL(tt.url))
		})
	}
}
