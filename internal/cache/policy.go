package cache

import (
	"path"
	"strings"
	"time"
)

// Rule binds a route pattern to a TTL.
//
// Patterns are matched segment by segment against the endpoint path (without
// the /api/ prefix and without query). Each segment uses path.Match syntax, so
// "*" matches exactly one segment. A trailing "**" segment matches the
// remainder of the path, including nothing: "settings/**" matches "settings"
// and "settings/site/theme".
type Rule struct {
	Pattern string
	TTL     time.Duration
}

// Policy decides how long a read response stays fresh.
type Policy struct {
	DefaultTTL time.Duration
	Rules      []Rule
}

// TTLFor returns the TTL for endpoint path p. The first matching rule wins;
// otherwise DefaultTTL applies. Zero means "do not cache".
func (p Policy) TTLFor(endpoint string) time.Duration {
	endpoint = normalize(endpoint)
	for _, rule := range p.Rules {
		if matchPattern(normalize(rule.Pattern), endpoint) {
			return rule.TTL
		}
	}
	return p.DefaultTTL
}

func normalize(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return strings.Trim(p, "/")
}

func matchPattern(pattern, endpoint string) bool {
	patternSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(endpoint, "/")

	for i, seg := range patternSegs {
		if seg == "**" && i == len(patternSegs)-1 {
			return true
		}
		if i >= len(pathSegs) {
			return false
		}
		ok, err := path.Match(seg, pathSegs[i])
		if err != nil || !ok {
			return false
		}
	}
	return len(patternSegs) == len(pathSegs)
}
