// Package template renders link templates by substituting bracketed
// placeholders derived from a target URL.
package template

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Placeholder keys. The key set is closed: substitution of any key not
// listed here yields the empty string.
const (
	KeyProtocol       = "PROTOCOL"
	KeySubdomain      = "SUBDOMAIN"
	KeyDomainName     = "DOMAINNAME"
	KeyTLD            = "TLD"
	KeyHost           = "HOST"
	KeyPort           = "PORT"
	KeyPath           = "PATH"
	KeyQuery          = "QUERY"
	KeyParams         = "PARAMS"
	KeyFragment       = "FRAGMENT"
	KeyURL            = "URL"
	KeyDomain         = "DOMAIN"
	KeyNoProtocolURL  = "NOPROTOCOL_URL"
	KeyNoSubdomainURL = "NOSUBDOMAIN_URL"
	KeyID             = "ID"
)

const encodePrefix = "ENCODE_"

// PlaceholderMap is the derived key to value table for one URL. Built fresh
// per URL and never mutated after construction. Every base key also has an
// ENCODE_<key> percent-encoded counterpart.
type PlaceholderMap struct {
	values map[string]string
}

// BuildMap derives the placeholder table for a target URL. videoID is
// optional; when empty the ID key is absent (substitutes to empty).
func BuildMap(target string, videoID string) (*PlaceholderMap, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target url: %w", err)
	}
	host := u.Hostname()
	domainName, tld := splitDomain(host)
	subdomain := subdomainOf(host, domainName, tld)
	hostNoWWW := strings.TrimPrefix(host, "www.")

	port := ""
	if p := u.Port(); p != "" {
		port = ":" + p
	}
	query := ""
	params := ""
	if u.RawQuery != "" {
		query = "?" + u.RawQuery
		params = u.RawQuery
	}
	fragment := ""
	if u.Fragment != "" {
		fragment = "#" + u.Fragment
	}
	tail := u.EscapedPath() + query + fragment

	values := map[string]string{
		KeyProtocol:       u.Scheme + ":",
		KeySubdomain:      subdomain,
		KeyDomainName:     domainName,
		KeyTLD:            tld,
		KeyHost:           host,
		KeyPort:           port,
		KeyPath:           u.EscapedPath(),
		KeyQuery:          query,
		KeyParams:         params,
		KeyFragment:       fragment,
		KeyURL:            target,
		KeyDomain:         host,
		KeyNoProtocolURL:  host + tail,
		KeyNoSubdomainURL: hostNoWWW + tail,
	}
	if videoID != "" {
		values[KeyID] = videoID
	}
	// Snapshot the base keys first; inserting while ranging over the same
	// map can re-visit the new entries and mint ENCODE_ENCODE_* keys.
	base := make([]string, 0, len(values))
	for key := range values {
		base = append(base, key)
	}
	for _, key := range base {
		values[encodePrefix+key] = encodeComponent(values[key])
	}
	return &PlaceholderMap{values: values}, nil
}

// Lookup resolves an uppercase key, reporting whether it is part of the
// fixed key set for this URL.
func (m *PlaceholderMap) Lookup(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// splitDomain separates a hostname into its registrable name and public
// suffix ("example" and "co.uk" for example.co.uk). Hosts the suffix list
// cannot classify (IPs, single labels) fall back to a plain label split.
func splitDomain(host string) (name, tld string) {
	if host == "" {
		return "", ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err == nil {
		suffix, _ := publicsuffix.PublicSuffix(host)
		return strings.TrimSuffix(etld1, "."+suffix), suffix
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host, ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

func subdomainOf(host, name, tld string) string {
	registrable := name
	if tld != "" {
		registrable = name + "." + tld
	}
	if host == registrable {
		return ""
	}
	if strings.HasSuffix(host, "."+registrable) {
		return strings.TrimSuffix(host, registrable)
	}
	return ""
}

// encodeComponent percent-encodes a value the way browser templates expect:
// everything outside A-Za-z0-9 -_.!~*'() becomes UTF-8 %XX escapes.
func encodeComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isComponentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(fmt.Sprintf("%%%02X", c))
	}
	return b.String()
}

func isComponentSafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
