// Package normalizers provides key and value normalization used when
// correlating records that arrive from loosely validated sources.
package normalizers

import (
	"regexp"
	"strings"
)

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)
	schemeRe  = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
)

// CompanyKey returns the canonical grouping key for a company record.
// Domain wins when present, otherwise the name is used. Records with
// neither produce an empty key and should be excluded by callers.
func CompanyKey(domain, name string) string {
	if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
		return d
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// Domain lowercases and trims a domain, stripping any scheme, path and
// leading www prefix so "https://www.Acme.com/about" and "acme.com"
// compare equal.
func Domain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return ""
	}
	d = schemeRe.ReplaceAllString(d, "")
	if idx := strings.IndexAny(d, "/?#"); idx >= 0 {
		d = d[:idx]
	}
	d = strings.TrimPrefix(d, "www.")
	return d
}

// Name lowercases and trims a display name for comparison purposes.
func Name(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Date coerces partial dates into full ISO dates. Bare years become
// January 1st and year-month values become the 1st of the month. Any
// other non-empty value passes through unchanged so the database layer
// can reject genuinely malformed input.
func Date(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if yearOnly.MatchString(v) {
		return v + "-01-01"
	}
	if yearMonth.MatchString(v) {
		return v + "-01"
	}
	return v
}
