package edgepurge

import (
	"net/url"
	"path"
	"strings"
)

// uniqueNonEmpty removes empty/whitespace-only strings and duplicates from
// urls, preserving first-seen order. The provider wire format wants an
// indexed list, so order is kept stable for logging even though the provider
// itself does not care.
func uniqueNonEmpty(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidURLs keeps only entries that parse as absolute http(s) URLs.
func ValidURLs(urls []string) []string {
	var out []string
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// JoinUploadURL joins an upload base URL with a relative file path without
// adding a trailing slash.
func JoinUploadURL(base, rel string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, rel)
	return u.String()
}

// MaskToken hides all but the last 8 characters of a secret for display.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-8) + token[len(token)-8:]
}
