package template

import (
	"regexp"
	"strings"
)

// The four accepted placeholder bracket dialects, rewritten to the
// canonical [KEY] form before substitution: percent-encoded brackets,
// HTML-entity brackets, double braces, and percent-encoded double braces.
var dialectRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)%5B\s*(ENCODE_)?([A-Z0-9_]+)\s*%5D`), "[${1}${2}]"},
	{regexp.MustCompile(`(?i)&#(?:x5b|91);\s*(ENCODE_)?([A-Z0-9_]+)\s*&#(?:x5d|93);`), "[${1}${2}]"},
	{regexp.MustCompile(`(?i)\{\{\s*(ENCODE_)?([A-Z0-9_]+)\s*\}\}`), "[${1}${2}]"},
	{regexp.MustCompile(`(?i)%7B%7B\s*(ENCODE_)?([A-Z0-9_]+)\s*%7D%7D`), "[${1}${2}]"},
}

var (
	tokenRe = regexp.MustCompile(`(?i)(\{\{|\[)\s*(ENCODE_)?([A-Z0-9_]+)\s*(\}\}|\])`)
	// url= immediately before the token, within the lookback window.
	urlParamBeforeRe = regexp.MustCompile(`(?i)\burl\s*=\s*$`)
	urlParamAnyRe    = regexp.MustCompile(`(?i)\burl\s*=`)
)

// lookbackWindow bounds how far back the url= prefix check reaches.
const lookbackWindow = 30

// Render produces a concrete URL from a link template and a normalized
// target URL. videoID fills the ID placeholder when present. An empty
// template renders to the empty string; unknown keys substitute to empty.
func Render(tpl, target, videoID string) (string, error) {
	if tpl == "" {
		return "", nil
	}
	for _, d := range dialectRewrites {
		tpl = d.re.ReplaceAllString(tpl, d.repl)
	}
	m, err := BuildMap(target, videoID)
	if err != nil {
		return "", err
	}
	return substitute(tpl, m), nil
}

func substitute(tpl string, m *PlaceholderMap) string {
	matches := tokenRe.FindAllStringSubmatchIndex(tpl, -1)
	if len(matches) == 0 {
		return tpl
	}
	hasURLParam := urlParamAnyRe.MatchString(tpl)

	var b strings.Builder
	last := 0
	for _, idx := range matches {
		start, end := idx[0], idx[1]
		b.WriteString(tpl[last:start])
		b.WriteString(resolveToken(tpl, idx, m, hasURLParam))
		last = end
	}
	b.WriteString(tpl[last:])
	return b.String()
}

func resolveToken(tpl string, idx []int, m *PlaceholderMap, hasURLParam bool) string {
	wantsEncode := idx[4] >= 0
	key := strings.ToUpper(tpl[idx[6]:idx[7]])

	if wantsEncode {
		if v, ok := m.Lookup(encodePrefix + key); ok {
			return v
		}
		if v, ok := m.Lookup(key); ok {
			return encodeComponent(v)
		}
		return ""
	}

	// Bare URL tokens sitting in a query parameter are encoded anyway:
	// templates written for auto-encoding engines expect it.
	if key == KeyURL {
		before := tpl[max(0, idx[0]-lookbackWindow):idx[0]]
		if urlParamBeforeRe.MatchString(before) || hasURLParam {
			if v, ok := m.Lookup(KeyURL); ok {
				return encodeComponent(v)
			}
			return ""
		}
	}

	v, _ := m.Lookup(key)
	return v
}
