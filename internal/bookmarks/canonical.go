package bookmarks

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrMissingHost       = errors.New("url has no host")
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// CanonicalURL normalizes a bookmark URL into its identity key: scheme and
// host are lower-cased, default ports and fragments dropped, an empty path
// becomes "/" and query parameters are sorted.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[scheme]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrMissingHost
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	out := scheme + "://"
	if u.User != nil {
		out += u.User.String() + "@"
	}
	out += host + path
	if q := canonicalQuery(u.RawQuery); q != "" {
		out += "?" + q
	}
	return out, nil
}

func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}

	var params []string
	for _, p := range strings.Split(raw, "&") {
		if p != "" {
			params = append(params, p)
		}
	}
	sort.Strings(params)
	return strings.Join(params, "&")
}
