package contentblock

import (
	"net/url"
	"strings"
)

// Match reports whether any rule blocks a load of rawURL made by a document
// at documentURL. An empty documentURL is treated as a top-level load, which
// is always first-party.
func (s *RuleSet) Match(rawURL, documentURL string) bool {
	third := isThirdParty(rawURL, documentURL)

	for i, r := range s.rules {
		if r.Trigger.ThirdPartyOnly() && !third {
			continue
		}
		if firstPartyOnly(r.Trigger) && third {
			continue
		}
		if s.filters[i].MatchString(rawURL) {
			return true
		}
	}
	return false
}

// URLPatterns returns one wildcard pattern per rule, in table order, for
// engines that pre-filter requests with '*' and '?' globs before consulting
// Match. A filter that cannot be expressed as a glob becomes "*".
func (s *RuleSet) URLPatterns() []string {
	out := make([]string, 0, len(s.rules))
	seen := make(map[string]bool, len(s.rules))
	for _, r := range s.rules {
		p := wildcard(r.Trigger.URLFilter)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func firstPartyOnly(t Trigger) bool {
	if len(t.LoadType) == 0 {
		return false
	}
	for _, lt := range t.LoadType {
		if lt != LoadTypeFirstParty {
			return false
		}
	}
	return true
}

// isThirdParty compares hosts: a load is first-party when its host equals the
// document host or one is a subdomain of the other.
func isThirdParty(rawURL, documentURL string) bool {
	if documentURL == "" {
		return false
	}

	req, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	doc, err := url.Parse(documentURL)
	if err != nil {
		return false
	}

	a, b := strings.ToLower(req.Hostname()), strings.ToLower(doc.Hostname())
	if a == "" || b == "" {
		return false
	}
	return a != b && !strings.HasSuffix(a, "."+b) && !strings.HasSuffix(b, "."+a)
}

// wildcard turns the common regular-expression shapes used in url-filters
// (".*" runs and escaped dots) into a glob.
func wildcard(filter string) string {
	p := strings.ReplaceAll(filter, ".*", "*")
	p = strings.ReplaceAll(p, `\.`, "\x00")
	p = strings.TrimPrefix(p, "^")
	p = strings.TrimSuffix(p, "$")

	if strings.ContainsAny(p, `.?+()[]{}|\^$`) {
		return "*"
	}

	p = strings.ReplaceAll(p, "\x00", ".")
	if !strings.HasPrefix(p, "*") {
		p = "*" + p
	}
	if !strings.HasSuffix(p, "*") {
		p += "*"
	}
	return p
}
