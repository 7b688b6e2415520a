package cache

import (
	"net/url"
	"strings"
)

// NormalizeURL builds a cache key as scheme + "//" + host + path (without a
// trailing slash) + search. Falls back to the raw URL if it doesn't parse.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	path := strings.TrimSuffix(u.Path, "/")
	key := u.Scheme + "//" + u.Host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
