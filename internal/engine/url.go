package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes raw user input into an absolute URL.
// It trims whitespace, defaults the scheme to https, strips a leading
// "www." from the host, and collapses an empty or root path. The result is
// idempotent: NormalizeURL(NormalizeURL(x)) == NormalizeURL(x).
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty url")
	}
	if !hasHTTPScheme(s) {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	host := u.Host
	if strings.HasPrefix(strings.ToLower(u.Hostname()), "www.") {
		host = u.Hostname()[len("www."):]
		if p := u.Port(); p != "" {
			host += ":" + p
		}
	}
	u.Host = host
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String(), nil
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// VideoID extracts the video identifier ("v" query parameter) from a
// normalized URL. Empty when absent or unparseable.
func VideoID(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
