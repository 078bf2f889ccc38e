// Package address turns raw address-bar input into a navigable target. Input
// that already carries an http(s) scheme is kept, host-like input gets an
// https scheme, and everything else becomes a search query.
package address

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// SearchTemplate is the search engine URL; the escaped query is appended.
const SearchTemplate = "https://duckduckgo.com/?q="

var errMissingHost = errors.New("missing scheme or host")

// Classify resolves raw input into a target URL. It performs no I/O and keeps
// no state. Callers are expected to trim the input first.
func Classify(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	if strings.Contains(raw, ".") && !strings.ContainsFunc(raw, unicode.IsSpace) {
		return "https://" + raw
	}

	return SearchTemplate + escapeQuery(raw)
}

// IsSearch reports whether target was produced by the search fallback.
func IsSearch(target string) bool {
	return strings.HasPrefix(target, SearchTemplate)
}

// Query extracts the decoded search query from a target built by Classify.
// The second result is false when target is not a search URL.
func Query(target string) (string, bool) {
	if !IsSearch(target) {
		return "", false
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}

	return u.Query().Get("q"), true
}

// Validate reports whether target is an absolute URL with a host that an
// engine can be asked to load.
func Validate(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return err
	}

	if u.Scheme == "" || u.Host == "" {
		return &url.Error{Op: "parse", URL: target, Err: errMissingHost}
	}

	return nil
}

// escapeQuery encodes s for use as a query-string value. Spaces become %20
// rather than '+', matching how browsers encode typed search terms.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
