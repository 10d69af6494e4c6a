package http

import (
	"strconv"
	"strings"
)

const (
	schemeSeparator = "://"
	httpsPrefix     = "https://"

	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
)

// ParsedURL is the result of ParseURL. Callers must check Failed before
// using the other fields.
type ParsedURL struct {
	Host   string
	Port   int
	Path   string
	TLS    bool
	Failed bool
}

// ParseURL splits a URL into host, port and path. An https scheme selects
// port 443, anything else port 80, and an explicit ":port" wins over both.
// Path keeps its leading slash and is empty when the URL has none.
// Failed is set when the scheme separator is missing or nothing follows it,
// and when an explicit port is not a number in 1..65535.
func ParseURL(raw string) ParsedURL {
	var u ParsedURL

	u.TLS = len(raw) >= len(httpsPrefix) && strings.EqualFold(raw[:len(httpsPrefix)], httpsPrefix)
	u.Port = DefaultHTTPPort
	if u.TLS {
		u.Port = DefaultHTTPSPort
	}

	sep := strings.Index(raw, schemeSeparator)
	if sep < 0 || sep+len(schemeSeparator) == len(raw) {
		u.Failed = true
		return u
	}
	rest := raw[sep+len(schemeSeparator):]

	hostEnd := strings.IndexAny(rest, ":/")
	if hostEnd < 0 {
		u.Host = rest
		return u
	}
	u.Host = rest[:hostEnd]

	if rest[hostEnd] == ':' {
		portAndPath := rest[hostEnd+1:]
		portEnd := strings.IndexByte(portAndPath, '/')
		portStr := portAndPath
		if portEnd >= 0 {
			portStr = portAndPath[:portEnd]
			u.Path = portAndPath[portEnd:]
		}
		// Only 1..65535 in plain digits; an empty or signed port is invalid
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil || port == 0 {
			u.Failed = true
			return u
		}
		u.Port = int(port)
		return u
	}

	u.Path = rest[hostEnd:]
	return u
}
