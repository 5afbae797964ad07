package models

import (
	"net/url"
	"strings"
)

// Handle is a channel handle as shown on the listing site, always
// "@"-prefixed. Handles are unique within one listing page but are not
// deduplicated across pages or keywords.
type Handle string

// NormalizeHandle trims surrounding whitespace and enforces the leading "@".
func NormalizeHandle(raw string) Handle {
	h := strings.TrimSpace(raw)
	if !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	return Handle(h)
}

// PathEscape returns the handle percent-encoded for embedding in a URL path
// segment. Non-ASCII handles (e.g. "@雑学博士") encode to pure ASCII and
// round-trip under percent-decoding.
func (h Handle) PathEscape() string {
	return url.PathEscape(string(h))
}

func (h Handle) String() string {
	return string(h)
}
