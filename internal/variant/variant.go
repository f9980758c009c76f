// Package variant groups generated URLs that point at interchangeable
// archival mirror hosts into ordered fallback sequences.
package variant

import (
	"net/url"
	"strings"
)

// MirrorHosts is the closed set of interchangeable archival hosts, in
// fallback order.
var MirrorHosts = []string{
	"archive.today",
	"archive.li",
	"archive.vn",
	"archive.fo",
	"archive.md",
	"archive.ph",
	"archive.is",
}

// IsMirrorHost reports whether hostname belongs to the mirror set.
func IsMirrorHost(hostname string) bool {
	h := strings.ToLower(hostname)
	for _, m := range MirrorHosts {
		if h == m {
			return true
		}
	}
	return false
}

// Group returns one URL per mirror host sharing finalURL's path, query and
// fragment, in the set's declared order, or nil when finalURL's host is not
// a mirror host or the URL does not parse.
func Group(finalURL string) []string {
	u, err := url.Parse(finalURL)
	if err != nil || !IsMirrorHost(u.Hostname()) {
		return nil
	}
	out := make([]string, 0, len(MirrorHosts))
	for _, host := range MirrorHosts {
		v := *u
		v.Host = host
		out = append(out, v.String())
	}
	return out
}

// GroupKey identifies a mirror group independently of its host: two archive
// URLs differing only by mirror host collapse to the same key. The second
// return is false when the URL does not parse.
func GroupKey(finalURL string) (string, bool) {
	u, err := url.Parse(finalURL)
	if err != nil {
		return "", false
	}
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("//")
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.Fragment)
	}
	return b.String(), true
}

// Deduper tracks mirror group keys seen during one queue build so a
// redundant mirror fan-out is enqueued at most once per run.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Admit records the group key for finalURL and reports whether this is the
// first time it has been seen.
func (d *Deduper) Admit(finalURL string) bool {
	key, ok := GroupKey(finalURL)
	if !ok {
		return true
	}
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}
